package importer

import (
	"fmt"
	"strings"

	"go-retail-catalog/pkg/validator"
)

// Validate returns human-readable violations in field order. In partial mode
// only the fields the input supplied are checked.
func Validate(d *Draft, partial bool) []string {
	var errs []*validator.ErrorResponse
	if partial {
		errs = validator.ValidatePartial(d, d.Supplied()...)
	} else {
		errs = validator.ValidateStruct(d)
	}

	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, message(e))
	}
	return msgs
}

func message(e *validator.ErrorResponse) string {
	switch e.Tag {
	case "required":
		return fmt.Sprintf("%s is required", e.FailedField)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", e.FailedField, e.Value)
	case "gte":
		return fmt.Sprintf("%s must be %s or more", e.FailedField, e.Value)
	case "finite":
		return fmt.Sprintf("%s must be a finite number", e.FailedField)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", e.FailedField, strings.ReplaceAll(e.Value, " ", ", "))
	case "ymd":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", e.FailedField)
	}
	return fmt.Sprintf("%s is invalid (%s)", e.FailedField, e.Tag)
}
