package utils

var (
	HealthURI      = "/health"
	RegisterURI    = "/register"
	StaticURI      = "/static"
	APIRegisterURI = "/api/auth/register"
	APILoginURI    = "/api/auth/login"
)

var (
	RegisterTemplate = "views/register"
)

const DefaultSessionName = "tcloud_session"
