// Package backup keeps point-in-time copies of the record file. A snapshot
// is the CSV encoding of the whole store, written under a unique key to the
// local filesystem, an S3 bucket or memory.
package backup

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrSnapshotExists   = errors.New("snapshot already exists")
	ErrInvalidKey       = errors.New("invalid snapshot key")
	ErrSnapshotTooLarge = errors.New("snapshot exceeds maximum allowed size")
)

// MaxSnapshotSize is the maximum accepted snapshot size in bytes (64 MB).
const MaxSnapshotSize = 64 * 1024 * 1024

// KeyPrefix is the common prefix of every snapshot key.
const KeyPrefix = "snapshots/"

// Driver names a snapshot store implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// Snapshot describes a stored copy.
type Snapshot struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	Hash      string    `json:"hash,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the contract for snapshot storage backends. Put never
// overwrites an existing key.
type Store interface {
	Driver() Driver
	Put(ctx context.Context, key string, data []byte) (Snapshot, error)
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context) ([]Snapshot, error)
}

// NewKey returns a unique, chronologically sortable key for a snapshot taken at now.
func NewKey(now time.Time) string {
	return fmt.Sprintf("%spatients-%s-%s.csv", KeyPrefix, now.UTC().Format("20060102T150405Z"), uuid.New().String()[:8])
}

// validateKey rejects keys that are empty, absolute, or escape the prefix.
func validateKey(key string) error {
	if !strings.HasPrefix(key, KeyPrefix) || len(key) == len(KeyPrefix) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if strings.Contains(key, "..") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func checkSize(data []byte) error {
	if len(data) > MaxSnapshotSize {
		return ErrSnapshotTooLarge
	}
	return nil
}

func hashOf(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

func sortSnapshots(s []Snapshot) {
	sort.Slice(s, func(i, j int) bool { return s[i].Key < s[j].Key })
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

// Memory is a thread-safe, in-memory Store for tests and dry runs.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
}

type memoryItem struct {
	snapshot Snapshot
	data     []byte
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]memoryItem), now: time.Now}
}

func (m *Memory) Driver() Driver { return DriverMemory }

func (m *Memory) Put(_ context.Context, key string, data []byte) (Snapshot, error) {
	if err := validateKey(key); err != nil {
		return Snapshot{}, err
	}
	if err := checkSize(data); err != nil {
		return Snapshot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[key]; ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrSnapshotExists, key)
	}
	snap := Snapshot{Key: key, Size: int64(len(data)), Hash: hashOf(data), CreatedAt: m.now().UTC()}
	m.items[key] = memoryItem{snapshot: snap, data: append([]byte(nil), data...)}
	return snap, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, key)
	}
	return append([]byte(nil), item.data...), nil
}

func (m *Memory) List(_ context.Context) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Snapshot, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, item.snapshot)
	}
	sortSnapshots(out)
	return out, nil
}

// ---------------------------------------------------------------------------
// Factory
// ---------------------------------------------------------------------------

// Config selects and configures a Store.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open constructs the Store named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverFilesystem, "":
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown backup driver %q", cfg.Driver)
	}
}
