package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/USA-RedDragon/walletkit-bridge/internal/config"
	"github.com/USA-RedDragon/walletkit-bridge/internal/db"
)

// Store is the key-value storage WalletKit persists its state in.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close() error
}

func NewStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Persistence.Storage.Driver {
	case config.StorageDriverMemory:
		return NewMemory(), nil
	case config.StorageDriverDatabase:
		gormDB, err := db.MakeDB(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to make database: %w", err)
		}
		return NewDatabase(gormDB)
	case config.StorageDriverFilesystem:
		root := cfg.Persistence.Storage.Directory
		err := os.MkdirAll(root, 0700)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
		return NewFilesystem(root)
	case config.StorageDriverS3:
		return NewS3(ctx, cfg.Persistence.Storage.S3)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Persistence.Storage.Driver)
	}
}
