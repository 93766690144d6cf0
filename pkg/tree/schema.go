package tree

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/headfinder/pkg/tree/schemas"
)

// ErrSchemaViolation is matched by every *ValidationError.
var ErrSchemaViolation = errors.New("tree does not match schema")

// Violation is one schema failure.
type Violation struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

// ValidationError lists every schema violation of one document.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))

	for idx, v := range e.Violations {
		msgs[idx] = v.Field + ": " + v.Description
	}

	return fmt.Sprintf("%s: %s", ErrSchemaViolation, strings.Join(msgs, "; "))
}

// Unwrap lets errors.Is match ErrSchemaViolation.
func (e *ValidationError) Unwrap() error { return ErrSchemaViolation }

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		data, err := schemas.TreeSchemaFS.ReadFile(schemas.SchemaFile)
		if err != nil {
			schemaErr = fmt.Errorf("read embedded schema: %w", err)

			return
		}

		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile embedded schema: %w", schemaErr)
		}
	})

	return schema, schemaErr
}

// Validate checks data against the embedded tree schema. Malformed JSON and
// schema violations both return an error; violations are a *ValidationError.
func Validate(data []byte) error {
	compiled, err := loadSchema()
	if err != nil {
		return err
	}

	result, err := compiled.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate tree: %w", err)
	}

	if result.Valid() {
		return nil
	}

	verr := &ValidationError{}

	for _, re := range result.Errors() {
		verr.Violations = append(verr.Violations, Violation{
			Field:       re.Field(),
			Description: re.Description(),
		})
	}

	return verr
}
