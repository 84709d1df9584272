package models

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StorageEntry is one key of the WalletKit persistent storage.
type StorageEntry struct {
	Key        string    `json:"key" gorm:"column:storage_key;primaryKey;size:512"`
	Value      []byte    `json:"-"`
	Compressed bool      `json:"compressed" gorm:"default:false"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (e StorageEntry) TableName() string {
	return "storage_entries"
}

func FindStorageEntry(db *gorm.DB, key string) (StorageEntry, error) {
	var entry StorageEntry
	err := db.Where("storage_key = ?", key).First(&entry).Error
	return entry, err
}

func UpsertStorageEntry(db *gorm.DB, entry *StorageEntry) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "compressed", "updated_at"}),
	}).Create(entry).Error
}

func DeleteStorageEntry(db *gorm.DB, key string) error {
	return db.Where("storage_key = ?", key).Delete(&StorageEntry{}).Error
}

func DeleteAllStorageEntries(db *gorm.DB) error {
	return db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&StorageEntry{}).Error
}

func CountStorageEntries(db *gorm.DB) (int, error) {
	var count int64
	err := db.Model(&StorageEntry{}).Count(&count).Error
	return int(count), err
}
