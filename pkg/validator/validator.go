package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var enums = map[string][]string{
	"sex":            {"Male", "Female"},
	"prefix":         {"", "Dr.", "Dra."},
	"payment_method": {"Cash", "Gcash"},
	"payment_status": {"Paid", "Pending"},
	"account_type":   {"employee", "assoc_doctor", "clinic_doctor"},
}

var messages = map[string]string{
	"required":       "This field is required.",
	"email":          "Enter a valid email address.",
	"min":            "Value is too short.",
	"max":            "Value is too long.",
	"gt":             "Value must be greater than zero.",
	"sex":            "Select Male or Female.",
	"prefix":         "Prefix must be empty, Dr. or Dra.",
	"payment_method": "Payment method must be Cash or Gcash.",
	"payment_status": "Payment status must be Paid or Pending.",
	"account_type":   "Account type must be employee, assoc_doctor or clinic_doctor.",
	"data_url":       "Expected a base64 data URL.",
	"numeric":        "Value must be numeric.",
}

// Register installs the custom tags and json field naming on v.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	for tag, allowed := range enums {
		allowed := allowed
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return oneOf(fl.Field().String(), allowed)
		}); err != nil {
			return err
		}
	}

	return v.RegisterValidation("data_url", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || (strings.HasPrefix(s, "data:") && strings.Contains(s, ";base64,"))
	})
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// FieldErrors flattens validator errors into field -> message.
func FieldErrors(err error) (map[string]string, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg, ok := messages[fe.Tag()]
		if !ok {
			msg = fe.Error()
		}
		fields[fe.Field()] = msg
	}
	return fields, true
}
