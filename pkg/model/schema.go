package model

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	mferrors "github.com/gomanifold/manifold/pkg/errors"
)

// Schema compiles a JSON Schema document into a descriptor.
func Schema(identifier string, document []byte) (Descriptor, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", identifier, err)
	}
	return &schemaDescriptor{
		identifier: identifier,
		schema:     compiled,
		kinds:      schemaKinds(document),
	}, nil
}

type schemaDescriptor struct {
	identifier string
	schema     *gojsonschema.Schema
	kinds      fieldKinds
}

func (d *schemaDescriptor) Identifier() string {
	return d.identifier
}

func (d *schemaDescriptor) CoerceQuery(fields map[string]any) map[string]any {
	return d.kinds.coerce(fields)
}

func (d *schemaDescriptor) Validate(payload any) error {
	result, err := d.schema.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		return mferrors.NewInvalidPayload(d.identifier, []string{err.Error()})
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return mferrors.NewInvalidPayload(d.identifier, problems)
}
