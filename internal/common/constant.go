package common

// AuthorizationHeaderName carries the bearer session token on API requests.
const AuthorizationHeaderName = "Authorization"

// RequestIDHeaderName is echoed back on every response.
const RequestIDHeaderName = "X-Request-ID"

// Token purposes embedded in the signed payload.
const (
	PurposeRegister = "register"
	PurposeLogin    = "login"
	PurposeReset    = "reset"
	PurposeSession  = "session"
)
