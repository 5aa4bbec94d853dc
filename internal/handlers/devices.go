package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Nymfarious/drumline-auth/internal/auth"
	"github.com/Nymfarious/drumline-auth/internal/models"
	pkghttp "github.com/Nymfarious/drumline-auth/pkg/http"
	"github.com/go-chi/chi/v5"
)

// DeviceServiceInterface defines the interface for device session management
type DeviceServiceInterface interface {
	GetUserDevices(ctx context.Context, userID string) ([]*models.DeviceSession, error)
	TrustDevice(ctx context.Context, userID, deviceID string) error
	RevokeDevice(ctx context.Context, userID, deviceID string) error
}

// DeviceHandler handles device session listing, trust, and revocation
type DeviceHandler struct {
	service DeviceServiceInterface
}

// NewDeviceHandler creates a new DeviceHandler
func NewDeviceHandler(service DeviceServiceInterface) *DeviceHandler {
	return &DeviceHandler{service: service}
}

// DeviceResponse is the client-facing view of a device session. The raw
// fingerprint stays server-side.
type DeviceResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	IsTrusted bool      `json:"is_trusted"`
	LastSeen  time.Time `json:"last_seen"`
	CreatedAt time.Time `json:"created_at"`
}

// ListDevicesResponse wraps the device list
type ListDevicesResponse struct {
	Devices []DeviceResponse `json:"devices"`
}

// List handles GET /security/devices
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	sessions, err := h.service.GetUserDevices(r.Context(), userID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to list devices")
		return
	}

	devices := make([]DeviceResponse, 0, len(sessions))
	for _, s := range sessions {
		devices = append(devices, DeviceResponse{
			ID:        s.ID,
			Name:      s.Name,
			Type:      s.Type,
			IsTrusted: s.IsTrusted,
			LastSeen:  s.LastSeen,
			CreatedAt: s.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, ListDevicesResponse{Devices: devices})
}

// Trust handles POST /security/devices/{deviceID}/trust
func (h *DeviceHandler) Trust(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	deviceID := chi.URLParam(r, "deviceID")
	if deviceID == "" {
		pkghttp.WriteBadRequest(w, "Device ID is required")
		return
	}

	if err := h.service.TrustDevice(r.Context(), userID, deviceID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Device not found")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to trust device")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Revoke handles DELETE /security/devices/{deviceID}
func (h *DeviceHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	deviceID := chi.URLParam(r, "deviceID")
	if deviceID == "" {
		pkghttp.WriteBadRequest(w, "Device ID is required")
		return
	}

	if err := h.service.RevokeDevice(r.Context(), userID, deviceID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Device not found")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to revoke device")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
