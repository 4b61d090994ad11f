package validator

import (
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	hhmmPattern  = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	phoneNoise   = regexp.MustCompile(`[\s\-().]`)
)

var weekdayNames = map[string]bool{
	"sunday": true, "monday": true, "tuesday": true, "wednesday": true,
	"thursday": true, "friday": true, "saturday": true,
}

type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	v := validator.New()

	// Report fields by their JSON name so errors match the request body.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(CleanPhone(fl.Field().String()))
	})
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return hhmmPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01-02", fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		return weekdayNames[strings.ToLower(fl.Field().String())]
	})

	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// CleanPhone strips separators and the whatsapp: prefix; the leading + is kept.
func CleanPhone(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "whatsapp:")
	return phoneNoise.ReplaceAllString(s, "")
}

func (cv *CustomValidator) FormatValidationErrors(err error) map[string]string {
	errors := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			field := e.Field()
			switch e.Tag() {
			case "required":
				errors[field] = field + " is required"
			case "email":
				errors[field] = field + " must be a valid email address"
			case "min":
				errors[field] = field + " must be at least " + e.Param() + " characters"
			case "max":
				errors[field] = field + " must be at most " + e.Param() + " characters"
			case "gte":
				errors[field] = field + " must be greater than or equal to " + e.Param()
			case "lte":
				errors[field] = field + " must be less than or equal to " + e.Param()
			case "alphanum":
				errors[field] = field + " may only contain letters and digits"
			case "oneof":
				errors[field] = field + " must be one of: " + e.Param()
			case "phone":
				errors[field] = field + " must be a phone number with 10 to 15 digits"
			case "hhmm":
				errors[field] = field + " must use the HH:MM format"
			case "isodate":
				errors[field] = field + " must use the YYYY-MM-DD format"
			case "weekday":
				errors[field] = field + " must be an English weekday name"
			default:
				errors[field] = field + " is invalid"
			}
		}
	}

	return errors
}
