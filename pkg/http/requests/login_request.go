package requests

type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	TOTP     string `json:"totp" form:"totp"`
}
