package storage

import (
	"fmt"
	"time"

	"github.com/oarkflow/squealx"

	"github.com/oarkflow/tcloud-auth/pkg/models"
)

// DatabaseType represents the type of database
type DatabaseType string

const (
	PostgreSQL DatabaseType = "postgres"
	SQLite     DatabaseType = "sqlite"
)

const (
	secretTypePassword = "password"
	secretTypeTOTP     = "totp"
)

// Vault persists users, their credentials, and registration tokens.
type Vault struct {
	db     *squealx.DB
	dbType DatabaseType
}

// New creates a vault on the given database connection and ensures the
// schema exists.
func New(db *squealx.DB) (*Vault, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	vault := &Vault{
		db:     db,
		dbType: DatabaseType(db.DriverName()),
	}
	if err := vault.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create database schema: %w", err)
	}
	return vault, nil
}

func (v *Vault) createTables() error {
	var queries []string

	switch v.dbType {
	case PostgreSQL:
		queries = v.getPostgreSQLSchema()
	case SQLite:
		queries = v.getSQLiteSchema()
	default:
		return fmt.Errorf("unsupported database type: %s", v.dbType)
	}

	for _, query := range queries {
		if _, err := v.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}
	return nil
}

func (v *Vault) getPostgreSQLSchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id BIGINT PRIMARY KEY,
			username VARCHAR(255) UNIQUE NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS credentials (
			user_id BIGINT NOT NULL,
			secret TEXT NOT NULL,
			secret_type VARCHAR(50) DEFAULT 'password' NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, secret_type)
		)`,

		`CREATE TABLE IF NOT EXISTS registration_tokens (
			id BIGSERIAL PRIMARY KEY,
			token VARCHAR(255) UNIQUE NOT NULL,
			expires_at BIGINT NOT NULL,
			used BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)`,
		`CREATE INDEX IF NOT EXISTS idx_credentials_user_id ON credentials(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_registration_tokens_token ON registration_tokens(token)`,
	}
}

func (v *Vault) getSQLiteSchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id INTEGER PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS credentials (
			user_id INTEGER NOT NULL,
			secret TEXT NOT NULL,
			secret_type TEXT DEFAULT 'password' NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, secret_type)
		)`,

		`CREATE TABLE IF NOT EXISTS registration_tokens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			token TEXT UNIQUE NOT NULL,
			expires_at INTEGER NOT NULL,
			used INTEGER DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)`,
		`CREATE INDEX IF NOT EXISTS idx_credentials_user_id ON credentials(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_registration_tokens_token ON registration_tokens(token)`,
	}
}

// convertBoolForDB converts boolean values appropriately for each database type
func (v *Vault) convertBoolForDB(value bool) any {
	switch v.dbType {
	case SQLite:
		if value {
			return 1
		}
		return 0
	default:
		return value
	}
}

func (v *Vault) convertBoolFromDB(value any) bool {
	switch val := value.(type) {
	case bool:
		return val
	case int:
		return val != 0
	case int64:
		return val != 0
	case []byte:
		return len(val) > 0 && (val[0] == '1' || val[0] == 't')
	case string:
		return val == "1" || val == "true"
	default:
		return false
	}
}

// --- Users ---

// CreateUser stores a user together with their password hash and encrypted
// TOTP secret.
func (v *Vault) CreateUser(info models.UserInfo, passwordHash, totpSecret string) error {
	query := `INSERT INTO users (user_id, username) VALUES (:user_id, :username)`
	params := map[string]any{
		"user_id":  info.UserID,
		"username": info.Username,
	}
	if _, err := v.db.NamedExec(query, params); err != nil {
		return err
	}
	if err := v.setCredential(info.UserID, passwordHash, secretTypePassword); err != nil {
		return err
	}
	return v.setCredential(info.UserID, totpSecret, secretTypeTOTP)
}

// GetUserByUsername returns the user record for a username.
func (v *Vault) GetUserByUsername(username string) (models.UserInfo, error) {
	query := `SELECT user_id, username FROM users WHERE username = :username`
	params := map[string]any{
		"username": username,
	}

	var info models.UserInfo
	if err := v.db.NamedGet(&info, query, params); err != nil {
		return models.UserInfo{}, err
	}
	return info, nil
}

// HasUser reports whether a username is already registered.
func (v *Vault) HasUser(username string) bool {
	_, err := v.GetUserByUsername(username)
	return err == nil
}

func (v *Vault) setCredential(userID int64, secret, secretType string) error {
	query := `INSERT INTO credentials (user_id, secret, secret_type) VALUES (:user_id, :secret, :secret_type)`
	params := map[string]any{
		"user_id":     userID,
		"secret":      secret,
		"secret_type": secretType,
	}
	_, err := v.db.NamedExec(query, params)
	return err
}

func (v *Vault) getCredential(userID int64, secretType string) (string, error) {
	query := `SELECT secret FROM credentials WHERE user_id = :user_id AND secret_type = :secret_type`
	params := map[string]any{
		"user_id":     userID,
		"secret_type": secretType,
	}

	var secret string
	if err := v.db.NamedGet(&secret, query, params); err != nil {
		return "", err
	}
	return secret, nil
}

// GetUserSecret returns a user's stored password hash.
func (v *Vault) GetUserSecret(userID int64) (string, error) {
	return v.getCredential(userID, secretTypePassword)
}

// GetUserTOTPSecret returns a user's encrypted TOTP secret.
func (v *Vault) GetUserTOTPSecret(userID int64) (string, error) {
	return v.getCredential(userID, secretTypeTOTP)
}

// --- Registration tokens ---

// CreateRegistrationToken stores an invitation token with its expiry.
func (v *Vault) CreateRegistrationToken(token string, expiresAt int64) error {
	query := `INSERT INTO registration_tokens (token, expires_at, used) VALUES (:token, :expires_at, :used)`
	params := map[string]any{
		"token":      token,
		"expires_at": expiresAt,
		"used":       v.convertBoolForDB(false),
	}
	_, err := v.db.NamedExec(query, params)
	return err
}

// ConsumeRegistrationToken marks a token as used if it exists, is unused,
// and has not expired. It returns false for any token that cannot be
// consumed; the caller does not learn why.
func (v *Vault) ConsumeRegistrationToken(token string) (bool, error) {
	query := `SELECT used, expires_at FROM registration_tokens WHERE token = :token`
	params := map[string]any{
		"token": token,
	}

	var result struct {
		Used      any   `db:"used"`
		ExpiresAt int64 `db:"expires_at"`
	}
	if err := v.db.NamedGet(&result, query, params); err != nil {
		return false, nil
	}

	if v.convertBoolFromDB(result.Used) || result.ExpiresAt < time.Now().Unix() {
		return false, nil
	}

	updateQuery := `UPDATE registration_tokens SET used = :used WHERE token = :token`
	updateParams := map[string]any{
		"used":  v.convertBoolForDB(true),
		"token": token,
	}
	if _, err := v.db.NamedExec(updateQuery, updateParams); err != nil {
		return false, err
	}
	return true, nil
}
