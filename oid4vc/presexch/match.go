package presexch

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
)

var logger = log.New("oid4vc/presexch")

// MatchResult is the outcome of a successful match.
type MatchResult struct {
	Submission *PresentationSubmission
	// Credentials are the selected credentials. Descriptor map entry k points
	// at Credentials[k] through "$.verifiableCredential[k]".
	Credentials []*Credential
}

type matchOptions struct {
	submissionID string
}

// MatchOpt customizes Match.
type MatchOpt func(*matchOptions)

// WithSubmissionID sets the id of the produced submission. Defaults to a
// random UUID.
func WithSubmissionID(id string) MatchOpt {
	return func(o *matchOptions) {
		o.submissionID = id
	}
}

// Match selects credentials for the definition's input descriptors.
//
// Descriptors are visited in declared order and each takes the first
// credential, in input order, that satisfies all of its fields and that no
// earlier descriptor has claimed. Choices are never revisited, so the outcome
// depends on both orders. Submission requirements are then checked against the
// matched descriptors.
func (pd *PresentationDefinition) Match(credentials []*Credential, opts ...MatchOpt) (*MatchResult, error) {
	options := &matchOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if options.submissionID == "" {
		options.submissionID = uuid.NewString()
	}

	compiled, err := pd.compile()
	if err != nil {
		return nil, err
	}

	docs := make([]interface{}, len(credentials))

	for i, c := range credentials {
		if c == nil {
			continue
		}

		doc, err := c.Document()
		if err != nil {
			logger.Debugf("skipping credential %d: %v", i, err)
			continue
		}

		docs[i] = doc
	}

	claimed := make(map[int]bool, len(credentials))
	chosen := make(map[string]int, len(compiled))
	matched := make(map[string]bool, len(compiled))

	for _, cd := range compiled {
		for i, c := range credentials {
			if c == nil || docs[i] == nil || claimed[i] {
				continue
			}

			if !pd.acceptsFormat(cd.descriptor, c.Format) || !cd.satisfiedBy(docs[i]) {
				continue
			}

			claimed[i] = true
			chosen[cd.descriptor.ID] = i
			matched[cd.descriptor.ID] = true

			logger.Debugf("input descriptor %s matched credential %d", cd.descriptor.ID, i)

			break
		}
	}

	if err := pd.checkRequirements(matched); err != nil {
		return nil, err
	}

	groups := map[string]bool{}
	requiredGroups(pd.SubmissionRequirements, groups)

	result := &MatchResult{
		Submission: &PresentationSubmission{
			ID:            options.submissionID,
			DefinitionID:  pd.ID,
			DescriptorMap: []*InputDescriptorMapping{},
		},
	}

	for _, d := range pd.InputDescriptors {
		i, ok := chosen[d.ID]
		if !ok || !pd.submitted(d, groups) {
			continue
		}

		k := len(result.Credentials)
		result.Credentials = append(result.Credentials, credentials[i])
		result.Submission.DescriptorMap = append(result.Submission.DescriptorMap, &InputDescriptorMapping{
			ID:     d.ID,
			Format: credentials[i].Format,
			Path:   fmt.Sprintf("$.verifiableCredential[%d]", k),
		})
	}

	return result, nil
}

func (pd *PresentationDefinition) compile() ([]*compiledDescriptor, error) {
	if pd == nil {
		return nil, oid4vcerr.New(oid4vcerr.KindParse, "match", "presentation definition is nil")
	}

	seen := make(map[string]bool, len(pd.InputDescriptors))
	compiled := make([]*compiledDescriptor, 0, len(pd.InputDescriptors))

	for i, d := range pd.InputDescriptors {
		if d == nil || d.ID == "" {
			return nil, oid4vcerr.New(oid4vcerr.KindParse, "match", "input descriptor %d has no id", i)
		}

		if seen[d.ID] {
			return nil, oid4vcerr.New(oid4vcerr.KindParse, "match", "duplicate input descriptor id %q", d.ID)
		}

		seen[d.ID] = true

		cd, err := compileDescriptor(d)
		if err != nil {
			return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, "match", err, "invalid presentation definition")
		}

		compiled = append(compiled, cd)
	}

	return compiled, nil
}
