package orchestrator

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/procurement-caller/internal/types"
)

// JobRequest asks for one procurement call.
type JobRequest struct {
	Items        []types.OrderItem `json:"items" validate:"min=1,dive"`
	Specialty    string            `json:"specialty" validate:"required"`
	SupplierPool []types.Supplier  `json:"supplierPool" validate:"min=1,dive"`
	Language     types.Language    `json:"language,omitempty" validate:"omitempty,oneof=en es"`
}

var validate = validator.New()

// Validate checks the request before any side effect.
func (r JobRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return &ValidationError{Message: "invalid request"}
	}
	fields := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fields = append(fields, fmt.Sprintf("%s: %s", trimNamespace(fe.Namespace()), fe.Tag()))
	}
	return &ValidationError{Message: "invalid job request", Fields: fields}
}

// trimNamespace drops the struct name prefix, e.g. "JobRequest.Items[0]" -> "Items[0]".
func trimNamespace(ns string) string {
	for i := 0; i < len(ns); i++ {
		if ns[i] == '.' {
			return ns[i+1:]
		}
	}
	return ns
}
