package presexch

import (
	"errors"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const (
	// All rule`s value.
	All Selection = "all"
	// Pick rule`s value.
	Pick Selection = "pick"

	// Required limit_disclosure value.
	Required Preference = "required"
	// Preferred limit_disclosure value.
	Preferred Preference = "preferred"
)

type (
	// Selection can be "all" or "pick".
	Selection string
	// Preference can be "required" or "preferred".
	Preference string
)

// ClaimFormat maps claim format designations (jwt_vc_json, ldp_vc, ...) to
// the algorithms or proof types the verifier accepts for them.
type ClaimFormat map[string]*FormatProperties

// FormatProperties describes one claim format designation.
type FormatProperties struct {
	Alg       []string `json:"alg,omitempty"`
	ProofType []string `json:"proof_type,omitempty"`
}

// PresentationDefinition presentation definitions (https://identity.foundation/presentation-exchange/).
type PresentationDefinition struct {
	// ID unique resource identifier.
	ID string `json:"id"`
	// Name human-friendly name that describes what the Presentation Definition pertains to.
	Name string `json:"name,omitempty"`
	// Purpose describes the purpose for which the Presentation Definition’s inputs are being requested.
	Purpose string      `json:"purpose,omitempty"`
	Format  ClaimFormat `json:"format,omitempty"`
	// SubmissionRequirements must conform to the Submission Requirement Format.
	// If not present, all inputs listed in the InputDescriptors array are required for submission.
	SubmissionRequirements []*SubmissionRequirement `json:"submission_requirements,omitempty"`
	InputDescriptors       []*InputDescriptor       `json:"input_descriptors"`
}

// SubmissionRequirement describes input that must be submitted via a Presentation Submission
// to satisfy Verifier demands.
type SubmissionRequirement struct {
	Name       string                   `json:"name,omitempty"`
	Purpose    string                   `json:"purpose,omitempty"`
	Rule       Selection                `json:"rule"`
	Count      *int                     `json:"count,omitempty"`
	Min        int                      `json:"min,omitempty"`
	Max        int                      `json:"max,omitempty"`
	From       string                   `json:"from,omitempty"`
	FromNested []*SubmissionRequirement `json:"from_nested,omitempty"`
}

// InputDescriptor input descriptors.
type InputDescriptor struct {
	ID          string       `json:"id"`
	Group       []string     `json:"group,omitempty"`
	Name        string       `json:"name,omitempty"`
	Purpose     string       `json:"purpose,omitempty"`
	Format      ClaimFormat  `json:"format,omitempty"`
	Constraints *Constraints `json:"constraints,omitempty"`
}

// Constraints describes InputDescriptor`s Constraints field.
type Constraints struct {
	// LimitDisclosure "required" forbids submitting a credential that does not
	// carry every constrained field.
	LimitDisclosure Preference `json:"limit_disclosure,omitempty"`
	Fields          []*Field   `json:"fields,omitempty"`
}

// Field describes Constraints`s Fields field.
type Field struct {
	Path    []string `json:"path"`
	ID      string   `json:"id,omitempty"`
	Name    string   `json:"name,omitempty"`
	Purpose string   `json:"purpose,omitempty"`
	// Filter is a JSON Schema the selected value must validate against.
	Filter   map[string]interface{} `json:"filter,omitempty"`
	Optional bool                   `json:"optional,omitempty"`
}

// ValidateSchema validates presentation definition.
func (pd *PresentationDefinition) ValidateSchema() error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(definitionSchema),
		gojsonschema.NewGoLoader(struct {
			PD *PresentationDefinition `json:"presentation_definition"`
		}{PD: pd}),
	)
	if err != nil {
		return err
	}

	if result.Valid() {
		return nil
	}

	resultErrors := result.Errors()

	errs := make([]string, len(resultErrors))
	for i := range resultErrors {
		errs[i] = resultErrors[i].String()
	}

	return errors.New(strings.Join(errs, ","))
}

func (pd *PresentationDefinition) inputDescriptor(id string) *InputDescriptor {
	for i := range pd.InputDescriptors {
		if pd.InputDescriptors[i].ID == id {
			return pd.InputDescriptors[i]
		}
	}

	return nil
}

func (d *InputDescriptor) inGroup(group string) bool {
	for _, g := range d.Group {
		if g == group {
			return true
		}
	}

	return false
}

func (d *InputDescriptor) fields() []*Field {
	if d.Constraints == nil {
		return nil
	}

	return d.Constraints.Fields
}

func (d *InputDescriptor) limitDisclosureRequired() bool {
	return d.Constraints != nil && d.Constraints.LimitDisclosure == Required
}

// acceptsFormat reports whether format is allowed by the descriptor, falling
// back to the definition-wide format restrictions.
func (pd *PresentationDefinition) acceptsFormat(d *InputDescriptor, format string) bool {
	formats := d.Format
	if len(formats) == 0 {
		formats = pd.Format
	}

	if len(formats) == 0 || format == "" {
		return true
	}

	_, ok := formats[format]

	return ok
}
