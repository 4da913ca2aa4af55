package validator

import (
	"math"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type ErrorResponse struct {
	FailedField string
	Tag         string
	Value       string
}

var (
	validate = validator.New(validator.WithRequiredStructEnabled())
	ymdRe    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

func init() {
	// Report fields by their JSON names so messages match the wire format
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// finite rejects NaN and +/-Inf on float fields
	validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		switch fl.Field().Kind() {
		case reflect.Float32, reflect.Float64:
			f := fl.Field().Float()
			return !math.IsNaN(f) && !math.IsInf(f, 0)
		}
		return true
	})

	// ymd accepts a real calendar date written as YYYY-MM-DD
	validate.RegisterValidation("ymd", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if !ymdRe.MatchString(s) {
			return false
		}
		_, err := time.Parse("2006-01-02", s)
		return err == nil
	})
}

func ValidateStruct(data interface{}) []*ErrorResponse {
	return collect(validate.Struct(data))
}

// ValidatePartial only checks the named struct fields (Go field names).
func ValidatePartial(data interface{}, fields ...string) []*ErrorResponse {
	if len(fields) == 0 {
		return nil
	}
	return collect(validate.StructPartial(data, fields...))
}

func collect(err error) []*ErrorResponse {
	var errors []*ErrorResponse
	if err == nil {
		return errors
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []*ErrorResponse{{FailedField: "", Tag: "invalid", Value: err.Error()}}
	}
	for _, err := range verrs {
		var element ErrorResponse
		element.FailedField = err.Field()
		element.Tag = err.Tag()
		element.Value = err.Param()
		errors = append(errors, &element)
	}
	return errors
}
