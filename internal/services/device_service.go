package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Nymfarious/drumline-auth/internal/auth"
	"github.com/Nymfarious/drumline-auth/internal/models"
)

// DeviceSessionRepository defines the interface for device session operations
type DeviceSessionRepository interface {
	GetByFingerprint(ctx context.Context, userID, fingerprint string) (*models.DeviceSession, error)
	GetByID(ctx context.Context, userID, deviceID string) (*models.DeviceSession, error)
	Create(ctx context.Context, session *models.DeviceSession) (*models.DeviceSession, error)
	Touch(ctx context.Context, id string, browserInfo models.BrowserInfo) error
	ListByUser(ctx context.Context, userID string) ([]*models.DeviceSession, error)
	SetTrusted(ctx context.Context, userID, deviceID string, trusted bool) error
	Delete(ctx context.Context, userID, deviceID string) error
}

// DeviceService tracks the devices a user signs in from. Tracking is trust
// metadata and observability, never a sign-in gate; trust itself is flipped
// only by an explicit user action.
type DeviceService struct {
	repo       DeviceSessionRepository
	events     *SecurityEventService
	notifier   AlertNotifier
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewDeviceService creates a new DeviceService
func NewDeviceService(repo DeviceSessionRepository, events *SecurityEventService, notifier AlertNotifier, sessionTTL time.Duration, logger *slog.Logger) *DeviceService {
	return &DeviceService{
		repo:       repo,
		events:     events,
		notifier:   notifier,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// RegisterDevice records a sign-in from a device. An unknown fingerprint
// creates a new untrusted row and raises a new-device event; a known one
// just refreshes last_seen and the browser snapshot.
func (s *DeviceService) RegisterDevice(ctx context.Context, userID, email string, info *models.DeviceInfo, ipAddress string) (models.RegisterDeviceResult, error) {
	fingerprint := auth.Fingerprint(info)
	browserInfo := snapshotBrowserInfo(info)

	existing, err := s.repo.GetByFingerprint(ctx, userID, fingerprint)
	if err == nil {
		if err := s.repo.Touch(ctx, existing.ID, browserInfo); err != nil {
			s.logger.Error("failed to refresh device session", slog.Any("error", err))
		}
		return models.RegisterDeviceResult{DeviceID: existing.ID, IsNewDevice: false}, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return models.RegisterDeviceResult{}, err
	}

	session := &models.DeviceSession{
		UserID:      userID,
		Fingerprint: fingerprint,
		Name:        deviceName(browserInfo),
		Type:        info.ClassifyType(),
		BrowserInfo: browserInfo,
		IsTrusted:   false,
		ExpiresAt:   time.Now().Add(s.sessionTTL),
	}

	created, err := s.repo.Create(ctx, session)
	if err != nil {
		return models.RegisterDeviceResult{}, err
	}

	s.events.LogEvent(ctx, models.EventTypeSuspiciousActivity, models.SeverityWarning,
		models.EventDetails{
			"reason":      "new_device_login",
			"device_name": created.Name,
			"device_type": created.Type,
		}, userID, email, ipAddress)

	if s.notifier != nil && email != "" {
		go s.notifier.NotifyNewDevice(context.WithoutCancel(ctx), email, created.Name, ipAddress)
	}

	s.logger.Info("new device registered",
		slog.String("user_id", userID),
		slog.String("device_type", created.Type))

	return models.RegisterDeviceResult{DeviceID: created.ID, IsNewDevice: true}, nil
}

// GetUserDevices lists a user's unexpired device sessions.
func (s *DeviceService) GetUserDevices(ctx context.Context, userID string) ([]*models.DeviceSession, error) {
	return s.repo.ListByUser(ctx, userID)
}

// TrustDevice marks a device as trusted. Trust is opt-in only; nothing in
// the protocol promotes a device automatically.
func (s *DeviceService) TrustDevice(ctx context.Context, userID, deviceID string) error {
	if err := s.repo.SetTrusted(ctx, userID, deviceID, true); err != nil {
		return err
	}

	s.events.LogEvent(ctx, models.EventTypeDeviceTrusted, models.SeverityInfo,
		models.EventDetails{"device_id": deviceID}, userID, "", "")
	return nil
}

// RevokeDevice deletes a device session.
func (s *DeviceService) RevokeDevice(ctx context.Context, userID, deviceID string) error {
	if err := s.repo.Delete(ctx, userID, deviceID); err != nil {
		return err
	}

	s.events.LogEvent(ctx, models.EventTypeDeviceRevoked, models.SeverityInfo,
		models.EventDetails{"device_id": deviceID}, userID, "", "")
	return nil
}

// IsCurrentDeviceTrusted reports whether the calling device has been
// explicitly trusted by the user.
func (s *DeviceService) IsCurrentDeviceTrusted(ctx context.Context, userID string, info *models.DeviceInfo) (bool, error) {
	session, err := s.repo.GetByFingerprint(ctx, userID, auth.Fingerprint(info))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return session.IsTrusted, nil
}

// snapshotBrowserInfo reduces the raw client signals to the stored snapshot.
func snapshotBrowserInfo(info *models.DeviceInfo) models.BrowserInfo {
	return models.BrowserInfo{
		Browser:        detectBrowser(info.UserAgent),
		OS:             detectOS(info.UserAgent, info.Platform),
		ScreenWidth:    info.ScreenWidth,
		ScreenHeight:   info.ScreenHeight,
		TimezoneOffset: info.TimezoneOffset,
		UserAgent:      info.UserAgent,
	}
}

func deviceName(bi models.BrowserInfo) string {
	if bi.Browser == "" && bi.OS == "" {
		return "Unknown device"
	}
	if bi.OS == "" {
		return bi.Browser
	}
	if bi.Browser == "" {
		return bi.OS
	}
	return bi.Browser + " on " + bi.OS
}

func detectBrowser(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "edg/"):
		return "Edge"
	case strings.Contains(ua, "firefox"):
		return "Firefox"
	case strings.Contains(ua, "chrome"):
		return "Chrome"
	case strings.Contains(ua, "safari"):
		return "Safari"
	default:
		return ""
	}
}

func detectOS(userAgent, platform string) string {
	ua := strings.ToLower(userAgent + " " + platform)
	switch {
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ios"):
		return "iOS"
	case strings.Contains(ua, "windows"):
		return "Windows"
	case strings.Contains(ua, "mac"):
		return "macOS"
	case strings.Contains(ua, "linux"):
		return "Linux"
	default:
		return ""
	}
}
