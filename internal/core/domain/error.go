package domain

import "fmt"

// FailureCode is the discriminable condition carried by a service failure.
type FailureCode string

const (
	CodeTimeout            FailureCode = "timeout"
	CodeNetwork            FailureCode = "network"
	CodeRateLimit          FailureCode = "rate_limit"
	CodeServiceUnavailable FailureCode = "service_unavailable"
	CodeAuthentication     FailureCode = "authentication"
	CodeInvalidPayload     FailureCode = "invalid_payload"
	CodeNotFound           FailureCode = "not_found"
	CodeUnknown            FailureCode = "unknown"
)

// ErrorKind partitions failures by retryability.
type ErrorKind string

const (
	ErrorKindTransient ErrorKind = "transient"
	ErrorKindPermanent ErrorKind = "permanent"
)

// Severity grades an outcome for the alerting pipeline.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// ServiceError is a failure raised by an external service call. The code
// tags the originating condition so classification never needs to parse
// message text.
type ServiceError struct {
	Code    FailureCode
	Service string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Service, e.Message, e.Code)
}

// NewServiceError builds a tagged service failure.
func NewServiceError(code FailureCode, service, message string) *ServiceError {
	return &ServiceError{Code: code, Service: service, Message: message}
}

// ErrorFromStatus maps an HTTP status code to a tagged service failure.
func ErrorFromStatus(service string, status int, message string) *ServiceError {
	var code FailureCode
	switch {
	case status == 503:
		code = CodeServiceUnavailable
	case status == 429:
		code = CodeRateLimit
	case status == 408 || status == 504:
		code = CodeTimeout
	case status == 401 || status == 403:
		code = CodeAuthentication
	case status == 404:
		code = CodeNotFound
	case status == 400:
		code = CodeInvalidPayload
	case status >= 500 && status < 600:
		code = CodeServiceUnavailable
	default:
		code = CodeUnknown
	}
	return &ServiceError{
		Code:    code,
		Service: service,
		Message: fmt.Sprintf("%s (status %d)", message, status),
	}
}
