package presexch

import (
	"context"
	"fmt"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
)

// SubmittedCredential is a credential located through a descriptor map entry.
type SubmittedCredential struct {
	DescriptorID string
	Format       string
	// Value is the selected value as embedded: a compact JWT or a JSON document.
	Value interface{}
}

// Evaluate checks a received submission against the definition. root is the
// value the descriptor map paths apply to, typically the vp_token. Nested
// paths are evaluated against the value selected by their parent, with
// compact JWTs replaced by their payload first.
func (pd *PresentationDefinition) Evaluate(root interface{}, submission *PresentationSubmission) ([]*SubmittedCredential, error) {
	if submission == nil {
		return nil, oid4vcerr.New(oid4vcerr.KindParse, "evaluate submission", "presentation_submission is missing")
	}

	compiled, err := pd.compile()
	if err != nil {
		return nil, err
	}

	if submission.DefinitionID != pd.ID {
		return nil, &UnsatisfiedDefinitionError{
			DefinitionID: pd.ID,
			Reason:       fmt.Sprintf("submission answers definition %q", submission.DefinitionID),
		}
	}

	byID := make(map[string]*compiledDescriptor, len(compiled))
	for _, cd := range compiled {
		byID[cd.descriptor.ID] = cd
	}

	matched := make(map[string]bool, len(submission.DescriptorMap))
	result := make([]*SubmittedCredential, 0, len(submission.DescriptorMap))

	for _, mapping := range submission.DescriptorMap {
		if mapping == nil {
			return nil, oid4vcerr.New(oid4vcerr.KindParse, "evaluate submission", "descriptor_map entry is null")
		}

		// The id MUST match the id of an input descriptor of the definition.
		cd, ok := byID[mapping.ID]
		if !ok {
			return nil, oid4vcerr.New(oid4vcerr.KindParse, "evaluate submission",
				"descriptor_map id %q does not match any input descriptor", mapping.ID)
		}

		value, format, err := selectByPath(root, mapping)
		if err != nil {
			return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, "evaluate submission", err, "descriptor %q", mapping.ID)
		}

		doc, err := decodeEmbedded(value)
		if err != nil {
			return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, "evaluate submission", err, "descriptor %q", mapping.ID)
		}

		if !pd.acceptsFormat(cd.descriptor, format) || !cd.satisfiedBy(doc) {
			return nil, &UnsatisfiedDefinitionError{
				DefinitionID: pd.ID,
				DescriptorID: mapping.ID,
				Reason:       "submitted credential does not satisfy the constraints",
			}
		}

		matched[mapping.ID] = true
		result = append(result, &SubmittedCredential{DescriptorID: mapping.ID, Format: format, Value: value})
	}

	if err := pd.checkRequirements(matched); err != nil {
		return nil, err
	}

	return result, nil
}

// selectByPath follows a descriptor mapping and its nested mappings. It
// returns the selected value and the format declared by the innermost mapping.
func selectByPath(root interface{}, mapping *InputDescriptorMapping) (interface{}, string, error) {
	current := root

	for {
		doc, err := decodeEmbedded(current)
		if err != nil {
			return nil, "", err
		}

		path, err := pathLanguage.NewEvaluable(mapping.Path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to build new json path evaluator: %w", err)
		}

		current, err = path(context.Background(), doc)
		if err != nil {
			return nil, "", fmt.Errorf("failed to evaluate json path [%s]: %w", mapping.Path, err)
		}

		if mapping.PathNested == nil {
			return current, mapping.Format, nil
		}

		mapping = mapping.PathNested
	}
}
