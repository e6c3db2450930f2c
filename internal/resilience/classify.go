package resilience

import (
	"errors"

	"github.com/vietddude/callguard/internal/core/domain"
)

// Classify maps a service failure to its retryability kind.
//
// Only conditions known to resolve on their own are transient. Anything
// unrecognized is permanent so an unexpected condition can never burn the
// retry budget in a loop.
func Classify(err error) domain.ErrorKind {
	var se *domain.ServiceError
	if !errors.As(err, &se) {
		return domain.ErrorKindPermanent
	}

	switch se.Code {
	case domain.CodeTimeout,
		domain.CodeNetwork,
		domain.CodeRateLimit,
		domain.CodeServiceUnavailable:
		return domain.ErrorKindTransient
	case domain.CodeAuthentication,
		domain.CodeInvalidPayload,
		domain.CodeNotFound:
		return domain.ErrorKindPermanent
	default:
		return domain.ErrorKindPermanent
	}
}
