// Package validation checks inbound request data against typed schemas and
// produces a normalized envelope of body, query and path parameters.
//
// A schema is a struct type per request section. Fields are matched by their
// json tag and checked with go-playground/validator rules from the validate
// tag. Body keys that the schema does not declare are rejected; undeclared
// query and path keys are dropped. Query and path schemas may only declare
// string or *string fields.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"pulsewatch/backend/internal/apperror"
)

// Section names used as the first element of every violation path.
const (
	SectionBody   = "body"
	SectionQuery  = "query"
	SectionParams = "params"
)

// None declares an empty section. Sections typed None are not inspected.
type None struct{}

// Raw is the unvalidated request input.
type Raw struct {
	Body   []byte
	Query  url.Values
	Params map[string]string
}

// Envelope is the validated, typed request input.
type Envelope[B, Q, P any] struct {
	Body   B
	Query  Q
	Params P
}

// Violation is one failed rule.
type Violation struct {
	Path   string
	Reason string
}

func (v Violation) String() string {
	return v.Path + ": " + v.Reason
}

// Validator wraps a configured go-playground validator.
type Validator struct {
	validate *validator.Validate
}

// New returns a Validator reporting fields by their json names.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	return &Validator{validate: v}
}

// Parse validates raw against the B, Q and P schemas. Every violation found
// is reported in a single apperror.KindValidation error.
func Parse[B, Q, P any](v *Validator, raw Raw) (*Envelope[B, Q, P], error) {
	env := &Envelope[B, Q, P]{}
	var violations []Violation

	if !isNone[B]() {
		found, err := v.decodeBody(raw.Body, &env.Body)
		if err != nil {
			return nil, err
		}
		violations = append(violations, found...)
	}
	if !isNone[Q]() {
		found, err := v.decodeStrings(SectionQuery, firstValues(raw.Query), &env.Query)
		if err != nil {
			return nil, err
		}
		violations = append(violations, found...)
	}
	if !isNone[P]() {
		found, err := v.decodeStrings(SectionParams, raw.Params, &env.Params)
		if err != nil {
			return nil, err
		}
		violations = append(violations, found...)
	}

	if len(violations) > 0 {
		return nil, &apperror.Error{
			Kind:    apperror.KindValidation,
			Message: Message(violations),
			Err:     ViolationsError(violations),
		}
	}
	return env, nil
}

// Message renders violations as one human-readable line.
func Message(violations []Violation) string {
	parts := make([]string, 0, len(violations))
	for _, v := range violations {
		parts = append(parts, v.String())
	}
	return "Validation error: " + strings.Join(parts, "; ")
}

// ViolationsError keeps the structured violations on the error chain.
type ViolationsError []Violation

func (e ViolationsError) Error() string {
	paths := make([]string, 0, len(e))
	for _, v := range e {
		paths = append(paths, v.Path)
	}
	return "invalid " + strings.Join(paths, ", ")
}

// Violations returns the structured violations carried by err, if any.
func Violations(err error) []Violation {
	var ve ViolationsError
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}

func (v *Validator) decodeBody(body []byte, dst any) ([]Violation, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return []Violation{{Path: SectionBody, Reason: "is required"}}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return []Violation{{Path: SectionBody, Reason: "must be a JSON object"}}, nil
	}

	target := reflect.ValueOf(dst).Elem()
	declared := fieldIndex(target.Type())

	var violations []Violation
	unknown := make([]string, 0)
	for key := range fields {
		if _, ok := declared[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		violations = append(violations, Violation{Path: SectionBody + "." + key, Reason: "unrecognized field"})
	}

	mistyped := make(map[string]bool)
	for _, name := range sortedNames(declared) {
		value, ok := fields[name]
		if !ok {
			continue
		}
		field := target.Field(declared[name])
		path := SectionBody + "." + name
		// null is never accepted in place of a value, optional or not
		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			violations = append(violations, Violation{Path: path, Reason: "expected " + describeKind(field.Type()) + ", received null"})
			mistyped[path] = true
			continue
		}
		if err := json.Unmarshal(value, field.Addr().Interface()); err != nil {
			violations = append(violations, Violation{Path: path, Reason: "expected " + describeKind(field.Type())})
			mistyped[path] = true
			field.Set(reflect.Zero(field.Type()))
		}
	}

	ruled, err := v.check(SectionBody, dst)
	if err != nil {
		return nil, err
	}
	for _, violation := range ruled {
		if !mistyped[violation.Path] {
			violations = append(violations, violation)
		}
	}
	return violations, nil
}

func (v *Validator) decodeStrings(section string, src map[string]string, dst any) ([]Violation, error) {
	target := reflect.ValueOf(dst).Elem()
	declared := fieldIndex(target.Type())

	for name, idx := range declared {
		value, ok := src[name]
		if !ok {
			continue
		}
		field := target.Field(idx)
		switch {
		case field.Kind() == reflect.String:
			field.SetString(value)
		case field.Kind() == reflect.Pointer && field.Type().Elem().Kind() == reflect.String:
			ptr := reflect.New(field.Type().Elem())
			ptr.Elem().SetString(value)
			field.Set(ptr)
		default:
			return nil, fmt.Errorf("validation: %s field %q must be a string, got %s", section, name, field.Type())
		}
	}

	return v.check(section, dst)
}

func (v *Validator) check(section string, dst any) ([]Violation, error) {
	err := v.validate.Struct(dst)
	if err == nil {
		return nil, nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return nil, fmt.Errorf("validation: %w", err)
	}

	violations := make([]Violation, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		violations = append(violations, Violation{
			Path:   section + "." + fieldPath(fe),
			Reason: reasonFor(fe),
		})
	}
	return violations, nil
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "uuid", "uuid4":
		return "must be a valid UUID"
	default:
		return fmt.Sprintf("failed %q rule", fe.Tag())
	}
}

// fieldPath drops the struct type name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func jsonName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

func fieldIndex(t reflect.Type) map[string]int {
	out := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		fld := t.Field(i)
		if !fld.IsExported() {
			continue
		}
		if name := jsonName(fld); name != "" {
			out[name] = i
		}
	}
	return out
}

func sortedNames(index map[string]int) []string {
	names := make([]string, 0, len(index))
	for name := range index {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return index[names[i]] < index[names[j]] })
	return names
}

func describeKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}

func firstValues(values url.Values) map[string]string {
	out := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			out[key] = vals[0]
		}
	}
	return out
}

func isNone[T any]() bool {
	return reflect.TypeFor[T]() == reflect.TypeFor[None]()
}
