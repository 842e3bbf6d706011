package routes

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"

	"github.com/oarkflow/tcloud-auth/pkg/http/handlers"
	"github.com/oarkflow/tcloud-auth/pkg/http/middlewares"
	"github.com/oarkflow/tcloud-auth/pkg/libs"
	"github.com/oarkflow/tcloud-auth/pkg/utils"
	"github.com/oarkflow/tcloud-auth/pkg/web"
)

// Setup mounts all routes under the normalized path prefix.
func Setup(prefix string, app fiber.Router, h *handlers.Auth, security *libs.SecurityManager) {
	base := strings.TrimSuffix(prefix, "/")
	if base == "" {
		base = "/"
	}
	route := app.Group(base, middlewares.SecurityHeaders)
	route.Get(utils.HealthURI, h.HealthCheck)
	route.Get(utils.RegisterURI, h.RegisterPage)
	route.Post(utils.APIRegisterURI, middlewares.RateLimit(security), h.PostRegister)
	route.Post(utils.APILoginURI, middlewares.RateLimit(security), h.PostLogin)
	route.Use(utils.StaticURI, filesystem.New(filesystem.Config{
		Root:       http.FS(web.Assets),
		PathPrefix: "static",
	}))
}
