// Package receipts records successful adapter operations so clients can look
// them up after the fact.
package receipts

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"lukechampine.com/blake3"

	"venusadapter/core/types"
	"venusadapter/native/adapter"
)

var ErrNotFound = errors.New("receipts: not found")

// Record is the stored form of an adapter receipt.
type Record struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Operation string    `gorm:"index;size:32" json:"operation"`
	Caller    string    `gorm:"index;size:42" json:"caller"`
	Block     uint64    `json:"block"`
	Value     string    `gorm:"size:78" json:"value"`
	Refunded  string    `gorm:"size:78" json:"refunded"`
	Digest    string    `gorm:"size:64" json:"digest"`
	Payload   []byte    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// Receipt decodes the stored payload.
func (r *Record) Receipt() (*adapter.Receipt, error) {
	var out adapter.Receipt
	if err := json.Unmarshal(r.Payload, &out); err != nil {
		return nil, fmt.Errorf("receipts: decode %s: %w", r.ID, err)
	}
	return &out, nil
}

// Store persists receipts through gorm.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to the configured driver ("sqlite" or "postgres") and
// migrates the schema.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("receipts: unknown driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("receipts: open %s: %w", driver, err)
	}
	return New(db)
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("receipts: database required")
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("receipts: migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Digest is the hex BLAKE3 hash of the canonical JSON encoding of events.
func Digest(events []*types.Event) (string, error) {
	if events == nil {
		events = []*types.Event{}
	}
	encoded, err := json.Marshal(events)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

// Save stores a receipt under a fresh id.
func (s *Store) Save(ctx context.Context, receipt *adapter.Receipt) (*Record, error) {
	if receipt == nil {
		return nil, fmt.Errorf("receipts: receipt required")
	}
	payload, err := json.Marshal(receipt)
	if err != nil {
		return nil, fmt.Errorf("receipts: encode: %w", err)
	}
	digest, err := Digest(receipt.Events)
	if err != nil {
		return nil, fmt.Errorf("receipts: digest: %w", err)
	}
	record := &Record{
		ID:        uuid.NewString(),
		Operation: receipt.Operation,
		Caller:    receipt.Caller.Hex(),
		Block:     receipt.Block,
		Value:     dec(receipt.Value),
		Refunded:  dec(receipt.Refunded),
		Digest:    digest,
		Payload:   payload,
		CreatedAt: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("receipts: insert: %w", err)
	}
	return record, nil
}

func dec(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

// Get loads a receipt by id.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	var record Record
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("receipts: load %s: %w", id, err)
	}
	return &record, nil
}

// ListByCaller returns the caller's most recent receipts, newest first.
func (s *Store) ListByCaller(ctx context.Context, caller string, limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var records []Record
	err := s.db.WithContext(ctx).
		Where("caller = ?", caller).
		Order("created_at desc").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("receipts: list: %w", err)
	}
	return records, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
