package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"saverr/internal/domain/notification"
)

// DeviceRepository stores push tokens under (USER#<uid>, DEVICE#<token>).
// Re-registering a token is an overwrite, so a device that switches users
// simply moves partitions over time.
type DeviceRepository struct {
	store *Store
}

// Ensure the docstore implementation satisfies the domain interface
var _ notification.Repository = (*DeviceRepository)(nil)

// NewDeviceRepository creates a new device repository
func NewDeviceRepository(store *Store) *DeviceRepository {
	return &DeviceRepository{store: store}
}

func (r *DeviceRepository) Put(ctx context.Context, d notification.Device) error {
	return r.store.Put(ctx, userPartition+d.UserID, deviceSort+d.Token, d)
}

func (r *DeviceRepository) ListByUser(ctx context.Context, userID string) ([]notification.Device, error) {
	docs, err := r.store.QueryPrefix(ctx, userPartition+userID, deviceSort, 0, false)
	if err != nil {
		return nil, err
	}

	devices := make([]notification.Device, 0, len(docs))
	for _, doc := range docs {
		var d notification.Device
		if err := json.Unmarshal(doc, &d); err != nil {
			return nil, fmt.Errorf("failed to unmarshal device: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, nil
}

func (r *DeviceRepository) Delete(ctx context.Context, userID, token string) error {
	return r.store.Delete(ctx, userPartition+userID, deviceSort+token)
}
