package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes carried by AppError.
const (
	CodeConfig                 = "CONFIG_ERROR"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeNotFound               = "NOT_FOUND"
	CodeUnsupportedFileType    = "UNSUPPORTED_FILE_TYPE"
	CodeDocumentParse          = "DOCUMENT_PARSE_ERROR"
	CodeOCR                    = "OCR_ERROR"
	CodeEmissionUnknownUtility = "EMISSION_UNKNOWN_UTILITY"
	CodeNarrativeGeneration    = "NARRATIVE_GENERATION_ERROR"
	CodePersistence            = "PERSISTENCE_ERROR"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")

	ErrUnsupportedFileType    = errors.New("unsupported file type")
	ErrDocumentParse          = errors.New("document parse error")
	ErrOCR                    = errors.New("ocr error")
	ErrEmissionUnknownUtility = errors.New("unknown utility type")
	ErrNarrativeGeneration    = errors.New("narrative generation error")
	ErrPersistence            = errors.New("persistence error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// kindError builds an AppError that matches both the sentinel and the underlying cause.
func kindError(code string, sentinel error, message string, cause error) *AppError {
	if cause == nil {
		return NewAppError(code, message, sentinel)
	}
	return NewAppError(code, message, fmt.Errorf("%w: %w", sentinel, cause))
}

func UnsupportedFileTypeError(ext string) error {
	return kindError(CodeUnsupportedFileType, ErrUnsupportedFileType, fmt.Sprintf("extension %q is not a supported bill document", ext), nil)
}

func DocumentParseError(message string, cause error) error {
	return kindError(CodeDocumentParse, ErrDocumentParse, message, cause)
}

func OCRError(message string, cause error) error {
	return kindError(CodeOCR, ErrOCR, message, cause)
}

func EmissionUnknownUtilityError(utility string) error {
	return kindError(CodeEmissionUnknownUtility, ErrEmissionUnknownUtility, fmt.Sprintf("no emission factor for %q", utility), nil)
}

func NarrativeGenerationError(message string, cause error) error {
	return kindError(CodeNarrativeGeneration, ErrNarrativeGeneration, message, cause)
}

func PersistenceError(message string, cause error) error {
	return kindError(CodePersistence, ErrPersistence, message, cause)
}

func NotFoundError(message string) error {
	return kindError(CodeNotFound, ErrNotFound, message, nil)
}

func InvalidInputError(message string) error {
	return kindError(CodeInvalidInput, ErrInvalidInput, message, nil)
}

func InvalidInputErrorf(format string, args ...interface{}) error {
	return InvalidInputError(fmt.Sprintf(format, args...))
}

// CodeOf returns the AppError code in err's chain, or "" if there is none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
