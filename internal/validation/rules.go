// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/streamgate/internal/errors"
)

// deviceIDRegex rejects whitespace and the delimiters used by the token payload
// ("|") and the identification string (":", ";", "(", ")").
var deviceIDRegex = regexp.MustCompile(`^[^\s|:;()]{1,128}$`)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// DeviceID validates that a string can be embedded in a token payload and an
// identification string without ambiguity.
var DeviceID = validation.NewStringRuleWithError(
	func(s string) bool {
		return deviceIDRegex.MatchString(s)
	},
	validation.NewError(
		"validation_device_id",
		"must be 1-128 characters without whitespace or any of | : ; ( )",
	),
)
