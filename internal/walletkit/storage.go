package walletkit

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/USA-RedDragon/walletkit-bridge/internal/storage"
)

// StorageManager is the key/value store the engine host hands to JavaScript.
// With persistent storage disabled everything stays in memory and is lost on
// restart.
type StorageManager struct {
	persistent storage.Store
	volatile   *storage.Memory
	enabled    atomic.Bool
}

func NewStorageManager(persistent storage.Store, enabled bool) *StorageManager {
	m := &StorageManager{
		persistent: persistent,
		volatile:   storage.NewMemory(),
	}
	m.enabled.Store(enabled && persistent != nil)
	return m
}

// SetPersistentStorage switches the backing store. Values are not migrated.
func (m *StorageManager) SetPersistentStorage(enabled bool) {
	if enabled && m.persistent == nil {
		slog.Warn("No persistent store configured, keeping storage in memory")
		enabled = false
	}
	if m.enabled.Swap(enabled) != enabled {
		slog.Info("Storage mode changed", "persistent", enabled)
	}
}

func (m *StorageManager) IsPersistent() bool {
	return m.enabled.Load()
}

func (m *StorageManager) store() storage.Store {
	if m.enabled.Load() {
		return m.persistent
	}
	return m.volatile
}

func (m *StorageManager) Get(ctx context.Context, key string) (string, bool, error) {
	return m.store().Get(ctx, key)
}

func (m *StorageManager) Set(ctx context.Context, key, value string) error {
	return m.store().Set(ctx, key, value)
}

func (m *StorageManager) Remove(ctx context.Context, key string) error {
	return m.store().Remove(ctx, key)
}

func (m *StorageManager) Clear(ctx context.Context) error {
	return m.store().Clear(ctx)
}

func (m *StorageManager) Close() error {
	_ = m.volatile.Close()
	if m.persistent != nil {
		return m.persistent.Close()
	}
	return nil
}
