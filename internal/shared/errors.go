package shared

import "errors"

var (
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AuthReason classifies why a request could not be authenticated.
type AuthReason string

// Authentication failure reasons.
const (
	AuthMissingOrMalformed AuthReason = "missing_or_malformed"
	AuthInvalidOrExpired   AuthReason = "invalid_or_expired"
	AuthUserNotFound       AuthReason = "user_not_found"
	AuthAccountDeactivated AuthReason = "account_deactivated"
)

var authMessages = map[AuthReason]string{
	AuthMissingOrMalformed: "Access denied. No token provided or invalid format.",
	AuthInvalidOrExpired:   "Access denied. Invalid or expired token.",
	AuthUserNotFound:       "Access denied. User not found.",
	AuthAccountDeactivated: "Account is deactivated. Please contact administrator.",
}

// AuthError is returned when the caller cannot be authenticated. It maps to 401.
type AuthError struct {
	Reason AuthReason
}

// NewAuthError builds an AuthError for reason.
func NewAuthError(reason AuthReason) *AuthError {
	return &AuthError{Reason: reason}
}

func (e *AuthError) Error() string {
	return "auth: " + string(e.Reason)
}

// Message is the client-facing text for the failure.
func (e *AuthError) Message() string {
	if msg, ok := authMessages[e.Reason]; ok {
		return msg
	}
	return "Access denied."
}

// AuthzReason classifies why an authenticated caller was refused.
type AuthzReason string

// Authorization failure reasons.
const (
	AuthzInsufficientRole AuthzReason = "insufficient_role"
	AuthzForbidden        AuthzReason = "forbidden"
)

// Messages used for AuthzError responses.
const (
	MsgInsufficientRole = "Access denied. Insufficient permissions."
	MsgOwnStudentOnly   = "Access denied. You can only access your own data."
	MsgOwnHostelOnly    = "Access denied. You can only manage your assigned hostel."
)

// AuthzError is returned when an authenticated caller may not proceed. It maps to 403 and
// never reveals whether the target record exists.
type AuthzError struct {
	Reason AuthzReason
	Msg    string
}

// NewAuthzError builds an AuthzError with a client-facing message.
func NewAuthzError(reason AuthzReason, msg string) *AuthzError {
	return &AuthzError{Reason: reason, Msg: msg}
}

func (e *AuthzError) Error() string {
	return "authz: " + string(e.Reason)
}

// Message is the client-facing text for the failure.
func (e *AuthzError) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Reason == AuthzInsufficientRole {
		return MsgInsufficientRole
	}
	return "Access denied."
}

// AsAuthError unwraps an AuthError from err.
func AsAuthError(err error) (*AuthError, bool) {
	var ae *AuthError
	ok := errors.As(err, &ae)
	return ae, ok
}

// AsAuthzError unwraps an AuthzError from err.
func AsAuthzError(err error) (*AuthzError, bool) {
	var ae *AuthzError
	ok := errors.As(err, &ae)
	return ae, ok
}
