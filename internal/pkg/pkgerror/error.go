package pkgerror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound indicates that the requested resource could not be found.
	ErrNotFound = errors.New("resource not found")
)

// Type classifies errors into high-level buckets used by the application.
type Type int

const (
	TypeServer     Type = iota // Server-side errors (e.g., transport or upstream issues).
	TypeBusiness               // Business errors (e.g., the host rejected the request).
	TypeValidation             // Validation errors (e.g., malformed links or input).
)

func (t Type) String() string {
	switch t {
	case TypeValidation:
		return "ERROR_TYPE_VALIDATION"
	case TypeBusiness:
		return "ERROR_TYPE_BUSINESS"
	case TypeServer:
		return "ERROR_TYPE_SERVER"
	default:
		return "ERROR_TYPE_UNKNOWN"
	}
}

// Code is a stable identifier for a failure kind.
//
// The transfer codes mirror what the hosts and Drive can do to us; they end
// up verbatim in result rows and HTTP error payloads.
type Code int

const (
	CodeUnknown      Code = iota // Unclassified failure.
	CodeInvalidInput             // Error code for invalid request input.
	CodeInvalidLink              // Error code for a URL that matches no known host pattern.
	CodeNotFound                 // Error code for a missing or removed resource.
	CodeDecryption               // Error code for a bad or missing Mega key.
	CodeRateLimited              // Error code for host-side rate or bandwidth limits.
	CodeNetwork                  // Error code for transport-level failures.
	CodeAuth                     // Error code for an absent or expired Drive credential.
	CodeQuota                    // Error code for exhausted Drive storage quota.
	CodeConflict                 // Error code for conflict situations (e.g., duplicate entries).
)

func (c Code) String() string {
	switch c {
	case CodeInvalidInput:
		return "ERROR_CODE_INVALID_INPUT"
	case CodeInvalidLink:
		return "ERROR_CODE_INVALID_LINK"
	case CodeNotFound:
		return "ERROR_CODE_NOT_FOUND"
	case CodeDecryption:
		return "ERROR_CODE_DECRYPTION"
	case CodeRateLimited:
		return "ERROR_CODE_RATE_LIMITED"
	case CodeNetwork:
		return "ERROR_CODE_NETWORK"
	case CodeAuth:
		return "ERROR_CODE_AUTH"
	case CodeQuota:
		return "ERROR_CODE_QUOTA"
	case CodeConflict:
		return "ERROR_CODE_CONFLICT"
	default:
		return "ERROR_CODE_UNKNOWN"
	}
}

// Error is a structured error used across the application.
//
// It can wrap an underlying error while also carrying a user-facing message,
// a high-level type, and a stable error code.
type Error struct {
	err     error
	msg     string
	errType Type
	code    Code
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.err != nil {
		return e.err.Error()
	}

	if e.msg != "" {
		return e.msg
	}

	if e.errType == TypeValidation {
		return "Validation violation"
	}

	if e.errType == TypeBusiness {
		return "Request rejected by the remote side"
	}

	if e.errType == TypeServer {
		return "Internal error"
	}

	return "Unknown error"
}

// String returns a verbose representation of the error for debugging/logging.
func (e *Error) String() string {
	return fmt.Sprintf(
		"Error Type: %s, Code: %s, Message: %s, Underlying Error: %v",
		e.errType.String(),
		e.code.String(),
		e.msg,
		e.err,
	)
}

// Msg returns the user-facing error message, if set.
func (e *Error) Msg() string {
	return e.msg
}

// Type returns the high-level error type.
func (e *Error) Type() Type {
	return e.errType
}

// Code returns the stable error code.
func (e *Error) Code() Code {
	return e.code
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.err
}

// StatusCode maps the error code to an HTTP status code.
func (e *Error) StatusCode() int {
	switch e.code {
	case CodeInvalidInput:
		return http.StatusUnprocessableEntity
	case CodeInvalidLink:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDecryption:
		return http.StatusUnprocessableEntity
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeNetwork:
		return http.StatusBadGateway
	case CodeAuth:
		return http.StatusUnauthorized
	case CodeQuota:
		return http.StatusForbidden
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func new(err error, msg string, et Type, code Code) error {
	return &Error{err: err, msg: msg, errType: et, code: code}
}

// NewServer creates a server-type error with the provided error.
func NewServer(err error) error {
	return new(err, "Internal server error", TypeServer, CodeUnknown)
}

// NewBusiness creates a business-type error with the specified message and code.
func NewBusiness(msg string, code Code) error {
	return new(nil, msg, TypeBusiness, code)
}

// NewInvalidInput creates a validation error for invalid input with a message and underlying error.
func NewInvalidInput(err error) error {
	return new(err, "validation error", TypeValidation, CodeInvalidInput)
}

// NewInvalidLink creates a validation error for a URL no downloader recognizes.
func NewInvalidLink(err error) error {
	return new(err, "link is not a supported host URL", TypeValidation, CodeInvalidLink)
}

// NewNotFound creates a business error for a missing or removed remote resource.
func NewNotFound(msg string) error {
	return new(nil, msg, TypeBusiness, CodeNotFound)
}

// NewDecryption creates a business error for content that cannot be decrypted
// with the key carried in the link.
func NewDecryption(err error) error {
	return new(err, "content could not be decrypted with the provided key", TypeBusiness, CodeDecryption)
}

// NewRateLimited creates a business error for host-side rate limiting.
func NewRateLimited(msg string) error {
	return new(nil, msg, TypeBusiness, CodeRateLimited)
}

// NewNetwork creates a server-type error for transport-level failures.
func NewNetwork(err error) error {
	return new(err, "network failure talking to the remote host", TypeServer, CodeNetwork)
}

// NewAuth creates a business error for an absent or expired Drive credential.
func NewAuth(err error) error {
	return new(err, "Drive credential is missing or expired", TypeBusiness, CodeAuth)
}

// NewQuota creates a business error for exhausted Drive storage quota.
func NewQuota(msg string) error {
	return new(nil, msg, TypeBusiness, CodeQuota)
}

// CodeOf extracts the taxonomy code from err, or CodeUnknown for plain errors.
func CodeOf(err error) Code {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Code()
	}

	return CodeUnknown
}
