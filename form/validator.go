package form

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
)

// Rule holds the user-facing messages for one field.
type Rule struct {
	Field    string
	Required string // missing or empty
	Min      string // below minimum
	Format   string // format mismatch
}

// Validator checks a form value against a compiled JSON schema and turns
// schema failures into field messages.
type Validator struct {
	name   string
	schema *jsonschema.Schema
	rules  []Rule
}

// NewValidator compiles schema. rules are listed in display order; fields
// without a rule get generic messages.
func NewValidator(name string, schema []byte, rules ...Rule) (*Validator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSchema, name, err)
	}

	c := jsonschema.NewCompiler()
	c.AssertFormat()
	url := name + ".json"
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSchema, name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSchema, name, err)
	}

	return &Validator{name: name, schema: compiled, rules: rules}, nil
}

// MustValidator is NewValidator for schemas embedded in the binary.
func MustValidator(name string, schema []byte, rules ...Rule) *Validator {
	v, err := NewValidator(name, schema, rules...)
	if err != nil {
		panic(err)
	}
	return v
}

// Name returns the form name used in errors.
func (v *Validator) Name() string { return v.name }

// Validate returns nil or a *ValidationError. value is encoded with
// encoding/json, so its JSON tags name the fields.
func (v *Validator) Validate(value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("form: encode %s: %w", v.name, err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("form: decode %s: %w", v.name, err)
	}

	err = v.schema.Validate(inst)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return fmt.Errorf("form: validate %s: %w", v.name, err)
	}
	return v.translate(verr)
}

type candidate struct {
	message string
	rank    int
}

func (v *Validator) translate(root *jsonschema.ValidationError) *ValidationError {
	found := map[string]candidate{}
	offer := func(field, msg string, rank int) {
		if cur, ok := found[field]; ok && cur.rank <= rank {
			return
		}
		found[field] = candidate{message: msg, rank: rank}
	}

	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}

		field := ""
		if n := len(e.InstanceLocation); n > 0 {
			field = e.InstanceLocation[n-1]
		}
		rule := v.rule(field)

		switch k := e.ErrorKind.(type) {
		case *kind.Required:
			for _, missing := range k.Missing {
				offer(missing, or(v.rule(missing).Required, missing+" is required"), 0)
			}
		case *kind.MinLength:
			offer(field, or(rule.Required, field+" is required"), 0)
		case *kind.Minimum:
			offer(field, or(rule.Min, field+" is out of range"), 1)
		case *kind.Format:
			offer(field, or(rule.Format, "Invalid "+field), 1)
		case *kind.Type:
			offer(field, field+" has the wrong type", 1)
		default:
			offer(field, field+" is invalid", 2)
		}
	}
	walk(root)

	out := &ValidationError{Form: v.name}
	for _, r := range v.rules {
		if c, ok := found[r.Field]; ok {
			out.Fields = append(out.Fields, FieldError{Field: r.Field, Message: c.message})
			delete(found, r.Field)
		}
	}
	rest := make([]string, 0, len(found))
	for field := range found {
		rest = append(rest, field)
	}
	slices.Sort(rest)
	for _, field := range rest {
		out.Fields = append(out.Fields, FieldError{Field: field, Message: found[field].message})
	}
	return out
}

// order sorts fields into rule order; fields without a rule go last, by name.
func (v *Validator) order(fields []FieldError) {
	rank := func(field string) int {
		for i, r := range v.rules {
			if r.Field == field {
				return i
			}
		}
		return len(v.rules)
	}
	slices.SortStableFunc(fields, func(a, b FieldError) int {
		if d := rank(a.Field) - rank(b.Field); d != 0 {
			return d
		}
		return strings.Compare(a.Field, b.Field)
	})
}

func (v *Validator) rule(field string) Rule {
	for _, r := range v.rules {
		if r.Field == field {
			return r
		}
	}
	return Rule{Field: field}
}

func or(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
