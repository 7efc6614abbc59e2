package common

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// UploadRequest is the transport-independent shape of a bill upload.
type UploadRequest struct {
	BillType    string `validate:"required,max=64"`
	FileName    string `validate:"required,max=255"`
	ContentType string `validate:"required,oneof=application/pdf image/jpeg image/png image/tiff"`
	FileSize    int64  `validate:"gt=0"`
}

var validate = validator.New()

// ValidateUpload rejects malformed uploads before any processing.
func ValidateUpload(req UploadRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return InvalidInputError(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, ValidationError{
			Field:   fe.Field(),
			Value:   fe.Value(),
			Message: ruleMessage(fe),
		}.Error())
	}
	return InvalidInputError(strings.Join(msgs, "; "))
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gt":
		return "must not be empty"
	default:
		return "failed rule " + fe.Tag()
	}
}
