package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/clinicops/clinic-console/internal"
)

// userSlotKey is the single durable key holding the serialized user record.
const userSlotKey = "session.user"

// Store is the persisted session slot: one durable key surviving process
// restarts, holding the last-known user record and nothing else.
type Store interface {
	// SaveUser overwrites the slot with the given user.
	SaveUser(ctx context.Context, user *User) error
	// LoadUser returns the stored user, or (nil, nil) when the slot is empty.
	// A slot that fails to parse is deleted and reported as a corrupt-record
	// storage error.
	LoadUser(ctx context.Context) (*User, error)
	// ClearUser empties the slot. Clearing an empty slot is a no-op.
	ClearUser(ctx context.Context) error
}

type kvSlot struct {
	Key       string `gorm:"primaryKey;column:key"`
	Value     string `gorm:"column:value;not null"`
	UpdatedAt time.Time
}

func (kvSlot) TableName() string {
	return "kv_slots"
}

// SQLiteStore keeps the session slot in a local sqlite file.
type SQLiteStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

// OpenStore opens (creating if needed) the sqlite file at path and migrates
// the slot table. Use ":memory:" in tests.
func OpenStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, internal.NewStorageError("failed to open session store", internal.ErrCodeStorageFailed, err)
	}
	if err := db.AutoMigrate(&kvSlot{}); err != nil {
		return nil, internal.NewStorageError("failed to migrate session store", internal.ErrCodeStorageFailed, err)
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) SaveUser(ctx context.Context, user *User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return internal.NewStorageError("failed to serialize user record", internal.ErrCodeStorageFailed, err)
	}

	slot := kvSlot{Key: userSlotKey, Value: string(payload), UpdatedAt: time.Now()}
	if err := s.db.WithContext(ctx).Save(&slot).Error; err != nil {
		return internal.NewStorageError("failed to persist user record", internal.ErrCodeStorageFailed, err)
	}
	return nil
}

func (s *SQLiteStore) LoadUser(ctx context.Context) (*User, error) {
	var slot kvSlot
	err := s.db.WithContext(ctx).First(&slot, "key = ?", userSlotKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, internal.NewStorageError("failed to read persisted user", internal.ErrCodeStorageFailed, err)
	}

	var user User
	if err := json.Unmarshal([]byte(slot.Value), &user); err != nil {
		// Corrupted slot: recover locally by deleting it.
		s.logger.Warn("persisted user record is corrupt, clearing slot", "error", err)
		if delErr := s.ClearUser(ctx); delErr != nil {
			s.logger.Error("failed to clear corrupt slot", "error", delErr)
		}
		return nil, internal.NewStorageError("persisted user record is corrupt", internal.ErrCodeCorruptRecord, err)
	}
	return &user, nil
}

func (s *SQLiteStore) ClearUser(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Delete(&kvSlot{}, "key = ?", userSlotKey).Error; err != nil {
		return internal.NewStorageError("failed to clear persisted user", internal.ErrCodeStorageFailed, err)
	}
	return nil
}
