package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	totpPeriod = 30
	totpDigits = otp.DigitsSix

	// totpSkew allows ±2 time steps of clock drift on either side.
	totpSkew = 2

	backupCodeLength = 8
)

// TOTPManager handles TOTP secret issuance, QR provisioning, code validation,
// and backup code generation.
type TOTPManager struct {
	issuer string
}

// NewTOTPManager creates a new TOTP manager
func NewTOTPManager(issuer string) *TOTPManager {
	return &TOTPManager{issuer: issuer}
}

// GenerateSecret creates a new base32-encoded TOTP secret. Nothing is
// persisted here; the caller must prove possession with a valid code before
// the secret is committed.
func (tm *TOTPManager) GenerateSecret(accountEmail string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      tm.issuer,
		AccountName: accountEmail,
		SecretSize:  32,
		Period:      totpPeriod,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP secret: %w", err)
	}

	return key.Secret(), nil
}

// ProvisioningURL builds the otpauth URL an authenticator app consumes.
func (tm *TOTPManager) ProvisioningURL(secret, accountEmail string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", tm.issuer)
	v.Set("period", fmt.Sprintf("%d", totpPeriod))
	v.Set("digits", "6")
	v.Set("algorithm", "SHA1")

	label := url.PathEscape(tm.issuer + ":" + accountEmail)
	return fmt.Sprintf("otpauth://totp/%s?%s", label, v.Encode())
}

// GenerateQRCode renders the provisioning URL as a PNG data URL.
func (tm *TOTPManager) GenerateQRCode(secret, accountEmail string) (string, error) {
	qr, err := qrcode.New(tm.ProvisioningURL(secret, accountEmail), qrcode.Highest)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}

	qrImage, err := qr.PNG(200)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(qrImage), nil
}

// ValidateTOTP validates a 6-digit code against a base32 secret.
func (tm *TOTPManager) ValidateTOTP(code, secret string) bool {
	valid, err := totp.ValidateCustom(code, secret, time.Now(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    totpDigits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}
	return valid
}

// GenerateBackupCodes generates N random backup codes.
// Format: 8 characters, uppercase alphanumeric excluding ambiguous chars
// (0/O, 1/I/L).
func (tm *TOTPManager) GenerateBackupCodes(count int) ([]string, error) {
	const charset = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

	codes := make([]string, count)
	buf := make([]byte, backupCodeLength)
	for i := 0; i < count; i++ {
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate random bytes: %w", err)
		}
		code := make([]byte, backupCodeLength)
		for j, b := range buf {
			code[j] = charset[int(b)%len(charset)]
		}
		codes[i] = string(code)
	}

	return codes, nil
}
