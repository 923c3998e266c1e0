package api

import (
	"errors"
	"fmt"
)

// Station error codes (payload-level, distinct from HTTP status).
var apiErrorText = map[int]string{
	100: "Unknown error",
	101: "Invalid parameters",
	102: "API does not exist",
	103: "Method does not exist",
	104: "This API version is not supported",
	105: "Insufficient user privilege",
	106: "Connection time out",
	107: "Multiple login detected",
	119: "SID not found",
	400: "Execution failed",
	401: "Parameter invalid",
	402: "Camera disabled",
	407: "CMS closed",
	412: "Need to run as admin",
	413: "Need to enable home mode first",
}

// sessionErrorCodes are the payload codes that mean the current SID is
// no longer valid and a re-login is worth attempting.
var sessionErrorCodes = map[int]bool{
	105: true,
	106: true,
	107: true,
	119: true,
}

type AuthReason string

const (
	AuthNetworkUnreachable AuthReason = "network_unreachable"
	AuthInvalidCredentials AuthReason = "invalid_credentials"
	AuthTLSVerification    AuthReason = "tls_verification_failed"
)

// AuthError is a connect/login failure with a machine-readable reason.
type AuthError struct {
	Reason AuthReason
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("auth failed (%s)", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

type ErrorKind string

const (
	KindServerRejected ErrorKind = "server_rejected"
	KindSessionLost    ErrorKind = "session_lost"
	KindTimeout        ErrorKind = "timeout"
)

// ApiError is a failed API call. Code carries the station's payload
// error code when Kind is server_rejected.
type ApiError struct {
	Kind ErrorKind
	Code int
	Err  error
}

func (e *ApiError) Error() string {
	switch e.Kind {
	case KindServerRejected:
		msg, ok := apiErrorText[e.Code]
		if !ok {
			msg = "unrecognized error"
		}
		return fmt.Sprintf("api error %d: %s", e.Code, msg)
	case KindSessionLost:
		return "session lost: re-authentication failed or expired again"
	case KindTimeout:
		return "api request timed out"
	}
	return fmt.Sprintf("api error (%s)", e.Kind)
}

func (e *ApiError) Unwrap() error { return e.Err }

// sessionExpired reports whether the error means the SID went stale.
func (e *ApiError) sessionExpired() bool {
	return e.Kind == KindServerRejected && sessionErrorCodes[e.Code]
}

// IsSessionLost reports whether err is an ApiError of kind session_lost.
func IsSessionLost(err error) bool {
	var apiErr *ApiError
	return errors.As(err, &apiErr) && apiErr.Kind == KindSessionLost
}
