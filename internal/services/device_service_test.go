package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Nymfarious/drumline-auth/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDeviceService(repo DeviceSessionRepository, notifier AlertNotifier) *DeviceService {
	return NewDeviceService(repo, newTestEventService(), notifier, 90*24*time.Hour, slog.Default())
}

func chromeOnMac() *models.DeviceInfo {
	return &models.DeviceInfo{
		UserAgent:    "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 Chrome/120.0 Safari/537.36",
		Platform:     "MacIntel",
		Language:     "en-US",
		ScreenWidth:  1440,
		ScreenHeight: 900,
	}
}

func TestDeviceService_RegisterDevice_NewDevice(t *testing.T) {
	var created *models.DeviceSession
	repo := &MockDeviceSessionRepository{
		CreateFunc: func(ctx context.Context, session *models.DeviceSession) (*models.DeviceSession, error) {
			session.ID = "device_1"
			created = session
			return session, nil
		},
	}

	var mu sync.Mutex
	notifiedDevice := ""
	done := make(chan struct{})
	notifier := &MockAlertNotifier{
		NotifyNewDeviceFunc: func(ctx context.Context, email, deviceName, ipAddress string) {
			mu.Lock()
			notifiedDevice = deviceName
			mu.Unlock()
			close(done)
		},
	}

	svc := newTestDeviceService(repo, notifier)

	result, err := svc.RegisterDevice(context.Background(), "user_1", "drummer@example.com", chromeOnMac(), "203.0.113.9")

	require.NoError(t, err)
	assert.True(t, result.IsNewDevice)
	assert.Equal(t, "device_1", result.DeviceID)

	require.NotNil(t, created)
	assert.False(t, created.IsTrusted)
	assert.Equal(t, models.DeviceTypeDesktop, created.Type)
	assert.Equal(t, "Chrome on macOS", created.Name)
	assert.Len(t, created.Fingerprint, 32)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("new-device alert was never sent")
	}
	mu.Lock()
	assert.Equal(t, "Chrome on macOS", notifiedDevice)
	mu.Unlock()
}

func TestDeviceService_RegisterDevice_KnownDeviceTouches(t *testing.T) {
	touched := ""
	createdNew := false
	repo := &MockDeviceSessionRepository{
		GetByFingerprintFunc: func(ctx context.Context, userID, fingerprint string) (*models.DeviceSession, error) {
			return &models.DeviceSession{ID: "device_1", UserID: userID, Fingerprint: fingerprint, IsTrusted: true}, nil
		},
		TouchFunc: func(ctx context.Context, id string, browserInfo models.BrowserInfo) error {
			touched = id
			return nil
		},
		CreateFunc: func(ctx context.Context, session *models.DeviceSession) (*models.DeviceSession, error) {
			createdNew = true
			return session, nil
		},
	}
	svc := newTestDeviceService(repo, &MockAlertNotifier{})

	result, err := svc.RegisterDevice(context.Background(), "user_1", "drummer@example.com", chromeOnMac(), "203.0.113.9")

	require.NoError(t, err)
	assert.False(t, result.IsNewDevice)
	assert.Equal(t, "device_1", result.DeviceID)
	assert.Equal(t, "device_1", touched)
	assert.False(t, createdNew)
}

func TestDeviceService_RegisterDevice_SameSignalsSameFingerprint(t *testing.T) {
	fingerprints := map[string]bool{}
	repo := &MockDeviceSessionRepository{
		CreateFunc: func(ctx context.Context, session *models.DeviceSession) (*models.DeviceSession, error) {
			fingerprints[session.Fingerprint] = true
			session.ID = "device_1"
			return session, nil
		},
	}
	svc := newTestDeviceService(repo, &MockAlertNotifier{})

	_, err := svc.RegisterDevice(context.Background(), "user_1", "drummer@example.com", chromeOnMac(), "203.0.113.9")
	require.NoError(t, err)
	_, err = svc.RegisterDevice(context.Background(), "user_1", "drummer@example.com", chromeOnMac(), "198.51.100.7")
	require.NoError(t, err)

	assert.Len(t, fingerprints, 1)
}

func TestDeviceService_TrustDevice(t *testing.T) {
	var gotTrusted bool
	repo := &MockDeviceSessionRepository{
		SetTrustedFunc: func(ctx context.Context, userID, deviceID string, trusted bool) error {
			gotTrusted = trusted
			return nil
		},
	}
	svc := newTestDeviceService(repo, &MockAlertNotifier{})

	err := svc.TrustDevice(context.Background(), "user_1", "device_1")

	require.NoError(t, err)
	assert.True(t, gotTrusted)
}

func TestDeviceService_TrustDevice_UnknownDevice(t *testing.T) {
	repo := &MockDeviceSessionRepository{
		SetTrustedFunc: func(ctx context.Context, userID, deviceID string, trusted bool) error {
			return models.ErrNotFound
		},
	}
	svc := newTestDeviceService(repo, &MockAlertNotifier{})

	err := svc.TrustDevice(context.Background(), "user_1", "device_unknown")

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeviceService_IsCurrentDeviceTrusted(t *testing.T) {
	repo := &MockDeviceSessionRepository{
		GetByFingerprintFunc: func(ctx context.Context, userID, fingerprint string) (*models.DeviceSession, error) {
			return &models.DeviceSession{ID: "device_1", IsTrusted: true}, nil
		},
	}
	svc := newTestDeviceService(repo, &MockAlertNotifier{})

	trusted, err := svc.IsCurrentDeviceTrusted(context.Background(), "user_1", chromeOnMac())

	require.NoError(t, err)
	assert.True(t, trusted)
}

func TestDeviceService_IsCurrentDeviceTrusted_UnknownDevice(t *testing.T) {
	svc := newTestDeviceService(&MockDeviceSessionRepository{}, &MockAlertNotifier{})

	trusted, err := svc.IsCurrentDeviceTrusted(context.Background(), "user_1", chromeOnMac())

	require.NoError(t, err)
	assert.False(t, trusted)
}

func TestDeviceNameFallbacks(t *testing.T) {
	assert.Equal(t, "Unknown device", deviceName(models.BrowserInfo{}))
	assert.Equal(t, "Firefox", deviceName(models.BrowserInfo{Browser: "Firefox"}))
	assert.Equal(t, "Windows", deviceName(models.BrowserInfo{OS: "Windows"}))
	assert.Equal(t, "Edge on Windows", deviceName(models.BrowserInfo{Browser: "Edge", OS: "Windows"}))
}
