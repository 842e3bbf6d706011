package handlers

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/oarkflow/hash"
	"github.com/oarkflow/paseto/token"
	"github.com/oarkflow/xid/wuid"

	"github.com/oarkflow/tcloud-auth/pkg/config"
	"github.com/oarkflow/tcloud-auth/pkg/http/requests"
	"github.com/oarkflow/tcloud-auth/pkg/http/responses"
	"github.com/oarkflow/tcloud-auth/pkg/libs"
	"github.com/oarkflow/tcloud-auth/pkg/models"
	"github.com/oarkflow/tcloud-auth/pkg/storage"
	"github.com/oarkflow/tcloud-auth/pkg/utils"
)

// Auth serves the registration page and the auth API endpoints. All
// collaborators are injected; there is no package-level state.
type Auth struct {
	vault *storage.Vault
	cfg   *config.Config
	log   *slog.Logger
}

func New(vault *storage.Vault, cfg *config.Config, log *slog.Logger) *Auth {
	if log == nil {
		log = slog.Default()
	}
	return &Auth{vault: vault, cfg: cfg, log: log}
}

func (h *Auth) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

// RegisterPage renders the registration form. The page carries the path
// prefix in its tcloud-prefix meta tag so the scripts can address the API.
func (h *Auth) RegisterPage(c *fiber.Ctx) error {
	raw := h.cfg.GetString("app.prefix")
	return responses.Render(c, utils.RegisterTemplate, fiber.Map{
		"Title":  "Register",
		"Prefix": config.PrefixValue(raw),
		"Base":   config.NormalizePrefix(raw),
	})
}

// PostRegister creates a user from an invitation token and replies with the
// TOTP enrollment material: a QR code PNG when the request asks for one, the
// plain otpauth URL otherwise.
func (h *Auth) PostRegister(c *fiber.Ctx) error {
	var req requests.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return responses.Error(c, http.StatusBadRequest, models.ErrTagAuth, "invalid request body")
	}
	username := utils.SanitizeInput(req.Username)
	if username == "" || req.Password == "" {
		return responses.Error(c, http.StatusBadRequest, models.ErrTagAuth, "username and password are required")
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return responses.Error(c, http.StatusBadRequest, models.ErrTagAuth, err.Error())
	}
	if h.vault.HasUser(username) {
		return responses.Error(c, http.StatusConflict, models.ErrTagAuth, "username already registered")
	}

	ok, err := h.vault.ConsumeRegistrationToken(req.Token)
	if err != nil {
		h.log.Error("registration token lookup failed", "error", err)
		return responses.Error(c, http.StatusInternalServerError, models.ErrTagToken, "could not verify registration token")
	}
	if !ok {
		return responses.Error(c, http.StatusUnauthorized, models.ErrTagToken, "invalid or expired registration token")
	}

	passwordHash, err := hash.Make(req.Password, h.cfg.GetString("auth.password_algo"))
	if err != nil {
		h.log.Error("password hashing failed", "error", err)
		return responses.Error(c, http.StatusInternalServerError, models.ErrTagAuth, "failed to process password")
	}

	secret, otpURL, err := libs.GenerateTOTPSecret(username, h.cfg.GetString("auth.issuer"))
	if err != nil {
		h.log.Error("TOTP generation failed", "error", err)
		return responses.Error(c, http.StatusInternalServerError, models.ErrTagAuth, "failed to generate TOTP secret")
	}
	encSecret, err := libs.EncryptSecret(secret, h.cfg.GetString("auth.secret"))
	if err != nil {
		h.log.Error("TOTP secret encryption failed", "error", err)
		return responses.Error(c, http.StatusInternalServerError, models.ErrTagAuth, "failed to store TOTP secret")
	}

	info := models.UserInfo{
		UserID:   wuid.New().Int64(),
		Username: username,
	}
	if err := h.vault.CreateUser(info, string(passwordHash), encSecret); err != nil {
		h.log.Error("user creation failed", "username", username, "error", err)
		return responses.Error(c, http.StatusInternalServerError, models.ErrTagAuth, "failed to create user")
	}
	h.log.Info("user registered", "username", username, "user_id", info.UserID, "qr", req.TOTPAsQR)

	if req.TOTPAsQR {
		png, err := libs.EncodeQR(otpURL)
		if err != nil {
			h.log.Error("QR encoding failed", "error", err)
			return responses.Error(c, http.StatusInternalServerError, models.ErrTagAuth, "failed to encode QR code")
		}
		return responses.JSON(c, models.Enrollment{
			TOTPQR: base64.StdEncoding.EncodeToString(png),
		})
	}
	return responses.JSON(c, models.Enrollment{
		TOTPURL: otpURL,
	})
}

// PostLogin checks password and TOTP code and issues a session token.
func (h *Auth) PostLogin(c *fiber.Ctx) error {
	var req requests.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return responses.Error(c, http.StatusBadRequest, models.ErrTagAuth, "invalid request body")
	}
	username := utils.SanitizeInput(req.Username)
	if username == "" || req.Password == "" || req.TOTP == "" {
		return responses.Error(c, http.StatusBadRequest, models.ErrTagAuth, "username, password and totp are required")
	}

	info, err := h.vault.GetUserByUsername(username)
	if err != nil {
		return responses.Error(c, http.StatusUnauthorized, models.ErrTagAuth, "invalid credentials")
	}
	storedHash, err := h.vault.GetUserSecret(info.UserID)
	if err != nil {
		return responses.Error(c, http.StatusUnauthorized, models.ErrTagAuth, "invalid credentials")
	}
	ok, err := utils.HashCheck(req.Password, storedHash, h.cfg.GetString("auth.password_algo"), "")
	if !ok || err != nil {
		return responses.Error(c, http.StatusUnauthorized, models.ErrTagAuth, "invalid credentials")
	}

	encSecret, err := h.vault.GetUserTOTPSecret(info.UserID)
	if err != nil {
		return responses.Error(c, http.StatusUnauthorized, models.ErrTagAuth, "invalid credentials")
	}
	secret, err := libs.DecryptSecret(encSecret, h.cfg.GetString("auth.secret"))
	if err != nil {
		h.log.Error("TOTP secret decryption failed", "user_id", info.UserID, "error", err)
		return responses.Error(c, http.StatusInternalServerError, models.ErrTagAuth, "failed to verify TOTP code")
	}
	if !libs.VerifyTOTPCode(req.TOTP, secret) {
		return responses.Error(c, http.StatusUnauthorized, models.ErrTagAuth, "invalid TOTP code")
	}

	ttl := h.cfg.GetDuration("auth.token_ttl", "24h")
	t := token.CreateToken(ttl, token.AlgEncrypt)
	_ = token.RegisterClaims(t, map[string]any{
		"sub": info.Username,
		"uid": info.UserID,
		"iat": time.Now().Unix(),
	})
	tokenStr, err := token.EncryptToken(t, []byte(h.cfg.GetString("auth.secret")))
	if err != nil {
		h.log.Error("session token encryption failed", "error", err)
		return responses.Error(c, http.StatusInternalServerError, models.ErrTagAuth, "failed to create session")
	}

	sessionName := h.cfg.GetString("auth.session_name")
	if sessionName == "" {
		sessionName = utils.DefaultSessionName
	}
	c.Cookie(&fiber.Cookie{
		Name:     sessionName,
		Value:    tokenStr,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	h.log.Info("user logged in", "username", info.Username, "user_id", info.UserID)
	return responses.JSON(c, models.LoginResult{Token: tokenStr})
}
