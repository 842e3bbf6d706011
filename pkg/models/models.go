package models

// Error tags carried in the "error" field of API error responses.
const (
	ErrTagAuth  = "AuthError"
	ErrTagToken = "TokenError"
)

type UserInfo struct {
	UserID   int64  `db:"user_id"`
	Username string `db:"username"`
}

// Enrollment is the success payload of the register endpoint. Exactly one of
// the two fields is set: TOTPQR carries a base64-encoded PNG without a
// data-URI prefix, TOTPURL carries the plain otpauth URL.
type Enrollment struct {
	TOTPQR  string `json:"totp_qr,omitempty"`
	TOTPURL string `json:"totp_url,omitempty"`
}

// APIError is the error payload of the API endpoints.
type APIError struct {
	Tag    string `json:"error"`
	Msg    string `json:"msg"`
	Status int    `json:"-"`
}

func (e *APIError) Error() string {
	return e.Tag + ": " + e.Msg
}

type LoginResult struct {
	Token string `json:"token"`
}
