package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Sentinel errors returned by the services. The handler layer maps these to
// HTTP status codes and stable machine-readable error codes.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrNotFound           = errors.New("record not found")
	ErrDuplicateName      = errors.New("category name already exists")
	ErrCategoryInUse      = errors.New("category is referenced by existing products")
	ErrInvalidCategory    = errors.New("category does not exist")
)

// ValidationError carries the complete set of failing fields so callers can
// render per-field messages. Validation never fails fast on the first field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("validation failed on fields: %s", strings.Join(names, ", "))
}

// newValidationError converts validator field errors into a ValidationError
// keyed by the lowercase field name used on the wire.
func newValidationError(errs validator.ValidationErrors) *ValidationError {
	fields := make(map[string]string, len(errs))
	for _, e := range errs {
		fields[strings.ToLower(e.Field())] = fmt.Sprintf("field '%s' failed on the '%s' rule", strings.ToLower(e.Field()), e.Tag())
	}
	return &ValidationError{Fields: fields}
}
