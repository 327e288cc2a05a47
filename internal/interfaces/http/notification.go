package http

import (
	"net/http"

	"saverr/internal/domain/notification"
)

// NotificationHandler registers device tokens for push delivery.
type NotificationHandler struct {
	notifications *notification.Service
}

func NewNotificationHandler(service *notification.Service) *NotificationHandler {
	return &NotificationHandler{notifications: service}
}

type registerDeviceRequest struct {
	DeviceToken string `json:"device_token"`
	Platform    string `json:"platform"`
}

// HandleRegisterDevice stores a push token for the authenticated user.
func (h *NotificationHandler) HandleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req registerDeviceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.notifications.RegisterDevice(r.Context(), uid, req.DeviceToken, req.Platform); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Device registered successfully"})
}
