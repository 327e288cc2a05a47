// Package notification tracks registered device tokens and sends
// best-effort push notifications. Delivery failures are logged, never
// surfaced to the operation that triggered them.
package notification

import (
	"context"
	"fmt"
	"log"

	"saverr/internal/shared/apperr"
	"saverr/internal/shared/timeutil"
	"saverr/internal/shared/validation"
)

// Device is one registered push target for a user
type Device struct {
	UserID       string `json:"user_id"`
	Token        string `json:"token"`
	Platform     string `json:"platform"`
	RegisteredAt string `json:"registered_at"`
}

// Repository is the user-partitioned device registry
type Repository interface {
	Put(ctx context.Context, d Device) error
	ListByUser(ctx context.Context, userID string) ([]Device, error)
	Delete(ctx context.Context, userID, token string) error
}

// Messenger delivers a push notification to a set of device tokens and
// returns the tokens that are no longer valid.
type Messenger interface {
	SendToTokens(ctx context.Context, tokens []string, title, body string, data map[string]string) (invalid []string, err error)
}

// Service registers devices and pushes sync notifications
type Service struct {
	repo      Repository
	messenger Messenger
}

// NewService creates a new notification service. messenger may be nil, in
// which case pushes are skipped entirely.
func NewService(repo Repository, messenger Messenger) *Service {
	return &Service{repo: repo, messenger: messenger}
}

// RegisterDevice stores a device token for a user
func (s *Service) RegisterDevice(ctx context.Context, userID, token, platform string) error {
	token = validation.SanitizeString(token, 512)
	if token == "" {
		return apperr.Validation("Device token is required")
	}
	if platform != "ios" && platform != "android" {
		return apperr.Validation("Platform must be ios or android")
	}

	d := Device{
		UserID:       userID,
		Token:        token,
		Platform:     platform,
		RegisteredAt: timeutil.Now(),
	}
	if err := s.repo.Put(ctx, d); err != nil {
		return apperr.Internal("failed to register device", err)
	}
	return nil
}

// NotifySyncComplete pushes a "sync finished" notification to all of the
// user's devices. Best effort: every failure is swallowed after logging,
// and tokens the push service rejects are dropped from the registry.
func (s *Service) NotifySyncComplete(ctx context.Context, userID string, added, modified int) {
	if s.messenger == nil {
		return
	}
	if added == 0 && modified == 0 {
		return
	}

	devices, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		log.Printf("Warning: failed to list devices for user %s: %v", userID, err)
		return
	}
	if len(devices) == 0 {
		return
	}

	tokens := make([]string, len(devices))
	for i, d := range devices {
		tokens[i] = d.Token
	}

	body := fmt.Sprintf("%d new transactions synced", added)
	if modified > 0 {
		body = fmt.Sprintf("%d new and %d updated transactions synced", added, modified)
	}

	invalid, err := s.messenger.SendToTokens(ctx, tokens, "Accounts updated", body, map[string]string{
		"type": "sync_complete",
	})
	if err != nil {
		log.Printf("Warning: sync notification for user %s failed: %v", userID, err)
		return
	}

	for _, token := range invalid {
		if err := s.repo.Delete(ctx, userID, token); err != nil {
			log.Printf("Warning: failed to drop invalid device token for user %s: %v", userID, err)
		}
	}
}
