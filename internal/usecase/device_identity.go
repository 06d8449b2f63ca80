package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	applogger "ScanDesk/pkg/logger"
	"ScanDesk/pkg/kvstore"

	"github.com/google/uuid"
)

// Durable storage keys.
const (
	KeyDeviceID   = "device_id"
	KeyLicenseKey = "license_key"
)

const (
	deviceIDPrefix = "DEV-"
	deviceIDLength = 9
)

// DeviceIdentity hands out the stable per-installation device id.
type DeviceIdentity struct {
	store kvstore.Store
	log   *applogger.Logger
	gen   func() string

	mu sync.Mutex
}

func NewDeviceIdentity(store kvstore.Store, l *applogger.Logger) *DeviceIdentity {
	if l == nil {
		l = applogger.Nop()
	}
	return &DeviceIdentity{store: store, log: l.Component("device"), gen: newDeviceID}
}

// GetOrCreate returns the stored id, generating and persisting one on first
// use. The hit path performs no writes.
func (d *DeviceIdentity) GetOrCreate(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, err := d.store.Get(ctx, KeyDeviceID)
	switch {
	case err == nil && id != "":
		return id, nil
	case err != nil && !errors.Is(err, kvstore.ErrNotFound):
		return "", fmt.Errorf("read device id: %w", err)
	}

	id = d.gen()
	if err := d.store.Set(ctx, KeyDeviceID, id); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}
	d.log.Info("device id generated", applogger.String("device_id", id))
	return id, nil
}

// newDeviceID renders the low bits of a random UUID in base 36.
func newDeviceID() string {
	u := uuid.New()
	digits := strings.ToUpper(new(big.Int).SetBytes(u[:]).Text(36))
	if len(digits) < deviceIDLength {
		digits = strings.Repeat("0", deviceIDLength-len(digits)) + digits
	}
	return deviceIDPrefix + digits[len(digits)-deviceIDLength:]
}
