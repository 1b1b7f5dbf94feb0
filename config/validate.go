package config

import (
	"fmt"
	"reflect"
	"strings"

	validatorV10 "github.com/go-playground/validator/v10"

	apperrors "github.com/leeforge/sncicd-plugin-activate/errors"
)

// SecretsHint is appended to the missing secrets message.
const SecretsHint = ". Configure Github secrets please"

var validator *validatorV10.Validate

func init() {
	validator = validatorV10.New()
	validator.RegisterTagNameFunc(fieldName)
}

// fieldName reports fields by their environment variable when they have one,
// otherwise by their configuration key.
func fieldName(f reflect.StructField) string {
	if env := f.Tag.Get("env"); env != "" {
		return env
	}
	name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func getValidationMessage(fe validatorV10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is not set"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed validation for tag '%s'", fe.Tag())
	}
}

// Validate checks the settings. Missing secrets are all reported in one
// MISSING_SECRETS error; any other violation is an INCORRECT_CONFIG error.
func Validate(s *Settings) error {
	if s == nil {
		return apperrors.NewIncorrectConfig()
	}

	err := validator.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrors, ok := err.(validatorV10.ValidationErrors)
	if !ok {
		return apperrors.WrapWithType(err, apperrors.ErrorTypeConfiguration, apperrors.MsgIncorrectConfig).
			WithCode(apperrors.CodeIncorrectConfig)
	}

	missing := apperrors.NewChain(". ")
	var invalid *apperrors.AppError
	for _, fe := range fieldErrors {
		msg := fe.Field() + " " + getValidationMessage(fe)
		if fe.Tag() == "required" {
			missing.Add(apperrors.New(apperrors.ErrorTypeConfiguration, msg))
			continue
		}
		if invalid == nil {
			invalid = apperrors.NewIncorrectConfig()
		}
		invalid.WithDetail(fe.Namespace(), msg)
	}

	if missing.HasErrors() {
		return missing.Collapse(apperrors.ErrorTypeConfiguration, apperrors.CodeMissingSecrets, SecretsHint)
	}
	return invalid
}
