// Package repository implements device registry persistence.
//
// The in-memory registry is the default and loses its state on restart.
// PostgreSQL, MySQL and SQLite implementations keep the registry across restarts.
package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	deviceDomain "github.com/allisson/streamgate/internal/device/domain"
)

// MemoryDeviceRepository keeps the registry in a process-local map.
type MemoryDeviceRepository struct {
	mu      sync.RWMutex
	devices map[string]deviceDomain.Device
}

// Upsert stores a copy of device, keeping CreatedAt of an existing entry.
func (m *MemoryDeviceRepository) Upsert(ctx context.Context, device *deviceDomain.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *device
	if existing, ok := m.devices[device.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	}
	m.devices[device.ID] = stored

	return nil
}

// Get returns a copy of the device.
func (m *MemoryDeviceRepository) Get(ctx context.Context, deviceID string) (*deviceDomain.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	device, ok := m.devices[deviceID]
	if !ok {
		return nil, deviceDomain.ErrDeviceNotFound
	}

	return &device, nil
}

// Revoke sets the revoked flag when the device exists.
func (m *MemoryDeviceRepository) Revoke(ctx context.Context, deviceID string, revokedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	device, ok := m.devices[deviceID]
	if !ok {
		return nil
	}

	device.Revoked = true
	device.UpdatedAt = revokedAt
	m.devices[deviceID] = device

	return nil
}

// List returns copies of every device ordered by ID.
func (m *MemoryDeviceRepository) List(ctx context.Context) ([]*deviceDomain.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	devices := make([]*deviceDomain.Device, 0, len(m.devices))
	for _, device := range m.devices {
		d := device
		devices = append(devices, &d)
	}

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].ID < devices[j].ID
	})

	return devices, nil
}

// Delete removes the device.
func (m *MemoryDeviceRepository) Delete(ctx context.Context, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.devices[deviceID]; !ok {
		return deviceDomain.ErrDeviceNotFound
	}
	delete(m.devices, deviceID)

	return nil
}

// NewMemoryDeviceRepository creates an empty in-memory device registry.
func NewMemoryDeviceRepository() *MemoryDeviceRepository {
	return &MemoryDeviceRepository{devices: make(map[string]deviceDomain.Device)}
}
