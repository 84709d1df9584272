package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/USA-RedDragon/walletkit-bridge/internal/db/models"
	"github.com/go-errors/errors"
	"github.com/klauspost/compress/zstd"
	"gorm.io/gorm"
)

// CompressionThreshold is the value size above which values are stored zstd
// compressed.
const CompressionThreshold = 1024

type Database struct {
	db      *gorm.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func NewDatabase(db *gorm.DB) (*Database, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Database{
		db:      db,
		encoder: encoder,
		decoder: decoder,
	}, nil
}

func (d *Database) Get(ctx context.Context, key string) (string, bool, error) {
	entry, err := models.FindStorageEntry(d.db.WithContext(ctx), key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !entry.Compressed {
		return string(entry.Value), true, nil
	}
	value, err := d.decoder.DecodeAll(entry.Value, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to decompress %s: %w", key, err)
	}
	return string(value), true, nil
}

func (d *Database) Set(ctx context.Context, key, value string) error {
	entry := models.StorageEntry{
		Key:       key,
		Value:     []byte(value),
		UpdatedAt: time.Now(),
	}
	if len(value) > CompressionThreshold {
		entry.Value = d.encoder.EncodeAll(entry.Value, nil)
		entry.Compressed = true
	}
	if err := models.UpsertStorageEntry(d.db.WithContext(ctx), &entry); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (d *Database) Remove(ctx context.Context, key string) error {
	return models.DeleteStorageEntry(d.db.WithContext(ctx), key)
}

func (d *Database) Clear(ctx context.Context) error {
	return models.DeleteAllStorageEntries(d.db.WithContext(ctx))
}

func (d *Database) Close() error {
	d.decoder.Close()
	if err := d.encoder.Close(); err != nil {
		return err
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
