package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validation rule identifiers reported in FieldError.Rule.
const (
	RuleRequired  = "required"
	RuleType      = "type"
	RuleLength    = "length"
	RuleMinLength = "min_length"
	RuleMaxLength = "max_length"
	RulePattern   = "pattern"
	RuleEnum      = "enum"
	RuleInteger   = "integer"
	RuleFormat    = "format"
)

// FieldError describes one violated rule on one field.
type FieldError struct {
	Field   string   `json:"field"`
	Rule    string   `json:"rule"`
	Message string   `json:"message"`
	Allowed []string `json:"allowed,omitempty"`
}

// ValidationError lists every offending field of a submission.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// validator collects field errors while a record is decoded.
type validator struct {
	fields map[string]any
	errs   []FieldError
}

func newValidator(fields map[string]any) *validator {
	if fields == nil {
		fields = map[string]any{}
	}
	return &validator{fields: fields}
}

func (v *validator) fail(field, rule, message string, allowed ...string) {
	v.errs = append(v.errs, FieldError{Field: field, Rule: rule, Message: message, Allowed: allowed})
}

func (v *validator) err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.errs}
}

// lookup returns the raw value of name; JSON null counts as absent.
func (v *validator) lookup(name string) (any, bool) {
	raw, ok := v.fields[name]
	if !ok || raw == nil {
		return nil, false
	}
	return raw, true
}

func (v *validator) requiredString(name string) (string, bool) {
	raw, ok := v.lookup(name)
	if !ok {
		v.fail(name, RuleRequired, "field is required")
		return "", false
	}
	s, ok := raw.(string)
	if !ok {
		v.fail(name, RuleType, "must be a string")
		return "", false
	}
	return s, true
}

func (v *validator) optionalString(name string) (*string, bool) {
	raw, ok := v.lookup(name)
	if !ok {
		return nil, true
	}
	s, ok := raw.(string)
	if !ok {
		v.fail(name, RuleType, "must be a string")
		return nil, false
	}
	return &s, true
}

// text trims a required string and checks its length in characters.
func (v *validator) text(name string, maxLen int) string {
	s, ok := v.requiredString(name)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		v.fail(name, RuleMinLength, "must not be empty")
	case utf8.RuneCountInString(s) > maxLen:
		v.fail(name, RuleMaxLength, fmt.Sprintf("must be at most %d characters", maxLen))
	}
	return s
}

// enum reads a string restricted to allowed. An absent value yields def,
// or a required failure when def is empty.
func (v *validator) enum(name string, allowed []string, def string) string {
	raw, ok := v.lookup(name)
	if !ok {
		if def == "" {
			v.fail(name, RuleRequired, "field is required")
		}
		return def
	}
	s, ok := raw.(string)
	if !ok {
		v.fail(name, RuleType, "must be a string")
		return def
	}
	for _, candidate := range allowed {
		if s == candidate {
			return s
		}
	}
	v.fail(name, RuleEnum, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")), allowed...)
	return s
}
