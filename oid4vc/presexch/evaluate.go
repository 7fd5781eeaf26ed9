package presexch

import (
	"context"
	"fmt"
	"regexp"

	"github.com/PaesslerAG/gval"
	"github.com/PaesslerAG/jsonpath"
	"github.com/xeipuuv/gojsonschema"
)

var (
	pathLanguage = gval.Full(jsonpath.PlaceholderExtension())

	// Wildcards, recursive descent and filter expressions select a list of
	// candidates rather than a single value.
	multiValuedPath = regexp.MustCompile(`\*|\.\.|\[\?`)
)

type compiledPath struct {
	expr  string
	eval  gval.Evaluable
	multi bool
}

type compiledField struct {
	field  *Field
	paths  []compiledPath
	filter *gojsonschema.Schema
}

type compiledDescriptor struct {
	descriptor *InputDescriptor
	fields     []*compiledField
}

func compileDescriptor(d *InputDescriptor) (*compiledDescriptor, error) {
	compiled := &compiledDescriptor{descriptor: d}

	for i, f := range d.fields() {
		if f == nil {
			return nil, fmt.Errorf("input descriptor %s: field %d is null", d.ID, i)
		}

		cf, err := compileField(f)
		if err != nil {
			return nil, fmt.Errorf("input descriptor %s: %w", d.ID, err)
		}

		compiled.fields = append(compiled.fields, cf)
	}

	return compiled, nil
}

func compileField(f *Field) (*compiledField, error) {
	if len(f.Path) == 0 {
		return nil, fmt.Errorf("field has no path")
	}

	cf := &compiledField{field: f}

	for _, p := range f.Path {
		eval, err := pathLanguage.NewEvaluable(p)
		if err != nil {
			return nil, fmt.Errorf("failed to build new json path evaluator for %q: %w", p, err)
		}

		cf.paths = append(cf.paths, compiledPath{expr: p, eval: eval, multi: multiValuedPath.MatchString(p)})
	}

	if f.Filter != nil {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(f.Filter))
		if err != nil {
			return nil, fmt.Errorf("invalid filter for path %v: %w", f.Path, err)
		}

		cf.filter = schema
	}

	return cf, nil
}

// resolve returns the candidates selected by the first path, in declared
// order, that resolves against doc.
func (cf *compiledField) resolve(doc interface{}) ([]interface{}, bool) {
	for _, p := range cf.paths {
		value, err := p.eval(context.Background(), doc)
		if err != nil || value == nil {
			continue
		}

		if !p.multi {
			return []interface{}{value}, true
		}

		values, ok := value.([]interface{})
		if !ok {
			return []interface{}{value}, true
		}

		if len(values) > 0 {
			return values, true
		}
	}

	return nil, false
}

func (cf *compiledField) accepts(value interface{}) bool {
	if cf.filter == nil {
		return true
	}

	result, err := cf.filter.Validate(gojsonschema.NewGoLoader(value))
	if err != nil {
		return false
	}

	return result.Valid()
}

// satisfiedBy reports whether every field of the descriptor holds for doc. A
// field that resolves to nothing holds only when it is optional and the
// descriptor does not require limited disclosure.
func (cd *compiledDescriptor) satisfiedBy(doc interface{}) bool {
	if len(cd.fields) == 0 {
		return false
	}

	for _, cf := range cd.fields {
		values, found := cf.resolve(doc)
		if !found {
			if cf.field.Optional && !cd.descriptor.limitDisclosureRequired() {
				continue
			}

			return false
		}

		if !anyAccepted(cf, values) {
			return false
		}
	}

	return true
}

func anyAccepted(cf *compiledField, values []interface{}) bool {
	for _, v := range values {
		if cf.accepts(v) {
			return true
		}
	}

	return false
}
