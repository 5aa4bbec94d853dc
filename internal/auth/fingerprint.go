package auth

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/Nymfarious/drumline-auth/internal/models"
)

// Fingerprint derives a stable identity tag from the client-environment
// snapshot. It is a recognition heuristic for returning devices, not a
// security boundary: determinism over the same signals is the only hard
// requirement.
func Fingerprint(info *models.DeviceInfo) string {
	parts := []string{
		info.UserAgent,
		info.Language,
		info.Platform,
		fmt.Sprintf("%dx%dx%d", info.ScreenWidth, info.ScreenHeight, info.ColorDepth),
		fmt.Sprintf("tz:%d", info.TimezoneOffset),
		fmt.Sprintf("ls:%t,ss:%t", info.LocalStorage, info.SessionStorage),
		fmt.Sprintf("hc:%d", info.HardwareConcurrency),
		info.CanvasHash,
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%x", hash)[:32]
}
