package libs

import (
	"fmt"

	"github.com/pquerna/otp/totp"
	"github.com/skip2/go-qrcode"
)

// GenerateTOTPSecret generates a new TOTP secret for a user and returns the
// secret together with its otpauth provisioning URL.
func GenerateTOTPSecret(username, issuer string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: username,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate TOTP key: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

// EncodeQR renders an otpauth URL as a PNG QR code.
func EncodeQR(otpURL string) ([]byte, error) {
	png, err := qrcode.Encode(otpURL, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return png, nil
}

// VerifyTOTPCode validates a TOTP code against a secret.
func VerifyTOTPCode(code, secret string) bool {
	return totp.Validate(code, secret)
}
