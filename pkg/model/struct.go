package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	mferrors "github.com/gomanifold/manifold/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct returns a factory for a descriptor backed by the Go type T. The
// payload is decoded into a T, rejecting unknown fields, and the result is
// checked against T's `validate` tags. identifier is the registry's model
// identifier, which need not match T's name.
func Struct[T any](identifier string) Factory {
	return func() (Descriptor, error) {
		return &structDescriptor[T]{
			identifier: identifier,
			kinds:      structKinds(reflect.TypeOf((*T)(nil)).Elem()),
		}, nil
	}
}

type structDescriptor[T any] struct {
	identifier string
	kinds      fieldKinds
}

func (d *structDescriptor[T]) CoerceQuery(fields map[string]any) map[string]any {
	return d.kinds.coerce(fields)
}

func (d *structDescriptor[T]) Identifier() string {
	return d.identifier
}

func (d *structDescriptor[T]) Validate(payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return mferrors.NewInvalidPayload(d.identifier, []string{err.Error()})
	}

	var value T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&value); err != nil {
		return mferrors.NewInvalidPayload(d.identifier, []string{err.Error()})
	}

	if err := validate.Struct(value); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			// T is not a struct; there are no tags to check.
			return nil
		}
		return mferrors.NewInvalidPayload(d.identifier, fieldProblems(err))
	}
	return nil
}

func fieldProblems(err error) []string {
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return []string{err.Error()}
	}

	problems := make([]string, 0, len(valErrs))
	for _, ve := range valErrs {
		problems = append(problems, fieldName(ve)+": "+formatValidationError(ve))
	}
	return problems
}

// fieldName drops the root type from the namespace ("Bet.Amount" → "Amount").
func fieldName(ve validator.FieldError) string {
	ns := ve.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ve.Field()
}

func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", ve.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", ve.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}
