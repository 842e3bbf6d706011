package requests

type RegisterRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	Token    string `json:"token" form:"token"`
	TOTPAsQR bool   `json:"totp_as_qr" form:"totp_as_qr"`
}
