package library

import (
	"context"
	"fmt"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HistoryStore is the append-only, per-user list of past checkouts.
type HistoryStore interface {
	Append(ctx context.Context, userID string, rec HistoryRecord) error
	List(ctx context.Context, userID string) ([]HistoryRecord, error)
}

// KVStorage is a string key/value store in the shape of browser local storage.
type KVStorage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// HistoryKey is the storage key holding a user's history document.
func HistoryKey(userID string) string { return "history_" + userID }

// KVHistory stores each user's history as one JSON array under HistoryKey.
type KVHistory struct {
	storage KVStorage
	logger  Logger
}

func NewKVHistory(storage KVStorage, logger Logger) *KVHistory {
	if logger == nil {
		logger = NopLogger()
	}
	return &KVHistory{storage: storage, logger: logger}
}

// Append adds rec to the end of the user's history. Existing data that cannot
// be parsed is replaced by a fresh list.
func (h *KVHistory) Append(ctx context.Context, userID string, rec HistoryRecord) error {
	key := HistoryKey(userID)
	raw, ok, err := h.storage.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read %s: %v: %w", key, err, ErrPersistence)
	}

	var records []HistoryRecord
	if ok && raw != "" {
		if err := json.UnmarshalFromString(raw, &records); err != nil {
			h.logger.Warn("discarding unreadable history", "key", key, "error", err)
			records = nil
		}
	}
	records = append(records, rec)

	doc, err := json.MarshalToString(records)
	if err != nil {
		return fmt.Errorf("encode %s: %v: %w", key, err, ErrPersistence)
	}
	if err := h.storage.Set(ctx, key, doc); err != nil {
		return fmt.Errorf("write %s: %v: %w", key, err, ErrPersistence)
	}
	return nil
}

// List returns the user's history, oldest first. Unknown users and unreadable
// documents yield an empty list.
func (h *KVHistory) List(ctx context.Context, userID string) ([]HistoryRecord, error) {
	key := HistoryKey(userID)
	raw, ok, err := h.storage.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %v: %w", key, err, ErrPersistence)
	}
	records := []HistoryRecord{}
	if !ok || raw == "" {
		return records, nil
	}
	if err := json.UnmarshalFromString(raw, &records); err != nil {
		h.logger.Warn("unreadable history", "key", key, "error", err)
		return []HistoryRecord{}, nil
	}
	return records, nil
}

// MemoryStorage is a KVStorage kept in process memory.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string)}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}
