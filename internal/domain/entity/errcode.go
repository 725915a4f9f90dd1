package entity

import "fmt"

// Provider-reported error codes, preserved verbatim from the keyed
// distribution API. Positive codes are server-reported; negative codes
// indicate a client-side or transport failure and are bucketed
// separately.
const (
	CodeInvalidParams    = 1001
	CodeKeyExpired       = 7001
	CodeKeyInvalid       = 7002
	CodeQuotaExhausted   = 7003
	CodeKeyMismatched    = 7004
	CodeKeyBlocked       = 7005
	CodeRateLimited      = 7006
	CodeResourceNotFound = 8001
)

// ProviderError carries a numeric provider error code and its original
// message. The code is never remapped before reaching the caller.
type ProviderError struct {
	Code int
	Msg  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Msg)
}

// IsClientSide reports whether the code is the negative transport /
// client-side bucket rather than a server-reported failure.
func (e *ProviderError) IsClientSide() bool {
	return e.Code < 0
}

// IsKeyError reports whether the error is user-actionable by fixing
// the access key, as opposed to a generic failure.
func (e *ProviderError) IsKeyError() bool {
	switch e.Code {
	case CodeInvalidParams, CodeKeyExpired, CodeKeyInvalid,
		CodeKeyMismatched, CodeKeyBlocked:
		return true
	}
	return false
}

// ErrorCodeMessage maps a provider error code to a human-readable
// message. Unmapped positive codes fall into the unknown bucket,
// negative codes into the client-side bucket.
func ErrorCodeMessage(code int) string {
	switch code {
	case CodeInvalidParams:
		return "access key is malformed"
	case CodeKeyExpired:
		return "access key has expired"
	case CodeKeyInvalid:
		return "access key is invalid"
	case CodeQuotaExhausted:
		return "access key download quota is exhausted"
	case CodeKeyMismatched:
		return "access key does not match this resource"
	case CodeKeyBlocked:
		return "access key has been blocked"
	case CodeRateLimited:
		return "too many requests, try again later"
	case CodeResourceNotFound:
		return "update resource not found"
	}
	if code < 0 {
		return "network or client error while contacting the update provider"
	}
	return fmt.Sprintf("unknown provider error (%d)", code)
}
