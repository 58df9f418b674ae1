package seed

import (
	"context"
	"errors"
	"fmt"
)

// Validator checks a seed document against the live schema before any
// write happens.
type Validator struct {
	schema SchemaInspector
}

// NewValidator returns a Validator using schema.
func NewValidator(schema SchemaInspector) (*Validator, error) {
	if schema == nil {
		return nil, errors.New("schema inspector is required")
	}
	return &Validator{schema: schema}, nil
}

// Validate parses body and checks that the target table and every column
// used by any record exist. The returned error is a *Error for document and
// schema problems, or a wrapped store error when the schema cannot be read.
func (v *Validator) Validate(ctx context.Context, name string, body []byte) (*Artifact, error) {
	artifact, err := Parse(name, body)
	if err != nil {
		return nil, err
	}

	exists, err := v.schema.HasTable(ctx, artifact.Table)
	if err != nil {
		return nil, fmt.Errorf("seeder %q: inspect table %q: %w", name, artifact.Table, err)
	}
	if !exists {
		return nil, &Error{Kind: KindTableNotFound, Seeder: name, Table: artifact.Table}
	}

	if len(artifact.Records) == 0 {
		return artifact, nil
	}

	columns, err := v.schema.Columns(ctx, artifact.Table)
	if err != nil {
		return nil, fmt.Errorf("seeder %q: list columns of %q: %w", name, artifact.Table, err)
	}
	known := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		known[col] = struct{}{}
	}

	// Records may carry different keys, so every record contributes.
	for _, col := range artifact.Columns() {
		if _, ok := known[col]; !ok {
			return nil, &Error{Kind: KindColumnNotFound, Seeder: name, Table: artifact.Table, Column: col}
		}
	}

	return artifact, nil
}
