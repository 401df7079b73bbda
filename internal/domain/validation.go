// Package domain defines the grading entities: assignments and student work,
// the rubrics, feedback and summaries generated for them, processing status
// and LLM usage records.
package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the package-level validator instance used for struct validation.
var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs struct validation and tags any failure with sentinel.
func validateStruct(sentinel error, v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return nil
}
