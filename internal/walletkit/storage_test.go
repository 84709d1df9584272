package walletkit_test

import (
	"context"
	"testing"

	"github.com/USA-RedDragon/walletkit-bridge/internal/storage"
	"github.com/USA-RedDragon/walletkit-bridge/internal/walletkit"
)

func TestStorageManagerSwitchesStores(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	persistent := storage.NewMemory()
	manager := walletkit.NewStorageManager(persistent, true)
	defer manager.Close()

	if err := manager.Set(ctx, "k", "persisted"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok, _ := persistent.Get(ctx, "k"); !ok || v != "persisted" {
		t.Errorf("expected the persistent store to hold k, got %q", v)
	}

	manager.SetPersistentStorage(false)
	if manager.IsPersistent() {
		t.Error("expected volatile storage")
	}
	if _, ok, _ := manager.Get(ctx, "k"); ok {
		t.Error("expected volatile storage to start empty")
	}
	if err := manager.Set(ctx, "k", "volatile"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _, _ := persistent.Get(ctx, "k"); v != "persisted" {
		t.Errorf("expected the persistent value to be untouched, got %q", v)
	}

	manager.SetPersistentStorage(true)
	if v, _, _ := manager.Get(ctx, "k"); v != "persisted" {
		t.Errorf("expected persisted, got %q", v)
	}
	if err := manager.Clear(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := persistent.Get(ctx, "k"); ok {
		t.Error("expected Clear to reach the persistent store")
	}
}

func TestStorageManagerWithoutPersistentStore(t *testing.T) {
	t.Parallel()
	manager := walletkit.NewStorageManager(nil, true)
	defer manager.Close()
	if manager.IsPersistent() {
		t.Error("expected volatile storage without a persistent store")
	}
	manager.SetPersistentStorage(true)
	if manager.IsPersistent() {
		t.Error("expected volatile storage without a persistent store")
	}
	if err := manager.Set(context.Background(), "k", "v"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok, _ := manager.Get(context.Background(), "k"); !ok || v != "v" {
		t.Errorf("expected v, got %q", v)
	}
}
