package common

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
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

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Kind classifies ingestion pipeline failures.
type Kind string

const (
	KindMissingCredential    Kind = "MissingCredential"
	KindInvalidCredential    Kind = "InvalidCredential"
	KindUnsupportedInputType Kind = "UnsupportedInputType"
	KindUnsupportedLanguage  Kind = "UnsupportedLanguage"
	KindEmptyInput           Kind = "EmptyInput"
	KindFetchFailed          Kind = "FetchFailed"
	KindContentTooShort      Kind = "ContentTooShort"
	KindAntiBotBlocked       Kind = "AntiBotBlocked"
	KindOCRFailed            Kind = "OCRFailed"
	KindModelError           Kind = "ModelError"
	KindMalformedModelOutput Kind = "MalformedModelOutput"
	KindContentRejected      Kind = "ContentRejected"
)

// IsExtractionError reports whether k belongs to the extractor failure family.
func IsExtractionError(k Kind) bool {
	switch k {
	case KindFetchFailed, KindContentTooShort, KindAntiBotBlocked, KindOCRFailed:
		return true
	}
	return false
}

// HTTPStatus maps a kind onto the status the HTTP API answers with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnsupportedInputType, KindUnsupportedLanguage, KindEmptyInput:
		return http.StatusBadRequest
	case KindContentRejected, KindContentTooShort, KindAntiBotBlocked:
		return http.StatusUnprocessableEntity
	case KindMissingCredential, KindInvalidCredential:
		return http.StatusServiceUnavailable
	case KindFetchFailed, KindOCRFailed, KindModelError, KindMalformedModelOutput:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (k Kind) GRPCCode() codes.Code {
	switch k {
	case KindUnsupportedInputType, KindUnsupportedLanguage, KindEmptyInput:
		return codes.InvalidArgument
	case KindContentRejected, KindContentTooShort, KindAntiBotBlocked:
		return codes.FailedPrecondition
	case KindMissingCredential, KindInvalidCredential:
		return codes.Unauthenticated
	case KindFetchFailed, KindOCRFailed, KindModelError, KindMalformedModelOutput:
		return codes.Unavailable
	}
	return codes.Internal
}

// PipelineError is a classified ingestion failure. Remediation is set for
// failures a blind retry cannot fix.
type PipelineError struct {
	Kind        Kind
	Message     string
	Remediation string
	Cause       error
}

func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *PipelineError) Unwrap() error { return e.Cause }

// Is matches another *PipelineError by kind, so errors.Is(err, &PipelineError{Kind: k}) works.
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	return ok && t.Kind == e.Kind
}

func NewPipelineError(kind Kind, message string, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Message: message, Cause: cause}
}

// WithRemediation returns e with remediation text attached.
func (e *PipelineError) WithRemediation(text string) *PipelineError {
	e.Remediation = text
	return e
}

// KindOf extracts the pipeline kind from err, or "" when err is unclassified.
func KindOf(err error) Kind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// UserMessage is the text shown to operators: remediation if present, else the message.
func UserMessage(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		if pe.Remediation != "" {
			return pe.Remediation
		}
		if pe.Cause != nil {
			return pe.Message + ": " + pe.Cause.Error()
		}
		return pe.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...any) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...any) error {
	return InternalError(fmt.Sprintf(format, args...))
}

// GRPCError converts any error into a gRPC status, keeping pipeline kinds.
func GRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if k := KindOf(err); k != "" {
		return status.Error(k.GRPCCode(), UserMessage(err))
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrUnauthorized):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
