package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"timeclock/internal/domain"
	"timeclock/internal/repository"
	"timeclock/internal/storage"
)

// ErrNothingToBackup is returned when the store has never been written.
var ErrNothingToBackup = errors.New("no user data stored yet")

const snapshotPrefix = "users-"

// Manager copies the user collection to object storage whenever it changes
// and restores it from a chosen snapshot.
type Manager interface {
	Run(ctx context.Context) error
	BackupNow(ctx context.Context) (string, error)
	List(ctx context.Context) ([]storage.ObjectInfo, error)
	Restore(ctx context.Context, key string) error
}

type Config struct {
	Bucket    string
	KeyPrefix string
	Interval  time.Duration
	// Retain is how many snapshots to keep; 0 keeps all of them.
	Retain int
	Logger *logrus.Logger
}

type manager struct {
	cfg     Config
	store   repository.RecordStore
	storage storage.Service
	now     func() time.Time

	mu          sync.Mutex
	lastVersion int64
}

func NewManager(cfg Config, store repository.RecordStore, storage storage.Service) Manager {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Retain < 0 {
		cfg.Retain = 0
	}
	cfg.KeyPrefix = strings.Trim(cfg.KeyPrefix, "/")
	return &manager{
		cfg:     cfg,
		store:   store,
		storage: storage,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run uploads changed snapshots on every tick until ctx ends, then makes a
// final attempt so the last writes before shutdown are kept.
func (m *manager) Run(ctx context.Context) error {
	m.cfg.Logger.Infof("backup manager started, bucket %s, every %s", m.cfg.Bucket, m.cfg.Interval)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			m.tick(flushCtx)
			cancel()
			m.cfg.Logger.Info("backup manager stopped")
			return nil
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *manager) tick(ctx context.Context) {
	location, err := m.backup(ctx, false)
	if err != nil {
		if !errors.Is(err, ErrNothingToBackup) {
			m.cfg.Logger.Warnf("backup users: %v", err)
		}
		return
	}
	if location != "" {
		m.cfg.Logger.Infof("uploaded snapshot %s", location)
	}
}

// BackupNow uploads the current collection even if it was already uploaded.
func (m *manager) BackupNow(ctx context.Context) (string, error) {
	return m.backup(ctx, true)
}

func (m *manager) backup(ctx context.Context, force bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap, err := m.store.LoadSnapshot(ctx)
	if err != nil {
		return "", err
	}
	if snap.Version == 0 {
		return "", ErrNothingToBackup
	}
	if !force && snap.Version == m.lastVersion {
		return "", nil
	}

	payload, err := repository.EncodeUsers(snap.Users)
	if err != nil {
		return "", err
	}

	key := m.snapshotKey(snap.Version)
	location, err := m.storage.PutObject(ctx, m.cfg.Bucket, key, bytes.NewReader(payload), "application/json")
	if err != nil {
		return "", err
	}
	m.lastVersion = snap.Version

	if err := m.prune(ctx); err != nil {
		m.cfg.Logger.Warnf("prune snapshots: %v", err)
	}
	return location, nil
}

// List returns stored snapshots, oldest first.
func (m *manager) List(ctx context.Context) ([]storage.ObjectInfo, error) {
	objects, err := m.storage.ListObjects(ctx, m.cfg.Bucket, m.listPrefix())
	if err != nil {
		return nil, err
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Restore replaces the stored collection with the snapshot under key.
func (m *manager) Restore(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: snapshot key is required", domain.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := m.storage.GetObject(ctx, m.cfg.Bucket, key)
	if err != nil {
		return err
	}
	users, err := repository.DecodeUsers(data)
	if err != nil {
		return err
	}
	if err := domain.ValidateUsers(users); err != nil {
		return fmt.Errorf("snapshot %s: %w", key, err)
	}
	if err := m.store.Save(ctx, users); err != nil {
		return err
	}
	m.cfg.Logger.Infof("restored %d users from %s", len(users), key)
	return nil
}

func (m *manager) prune(ctx context.Context) error {
	if m.cfg.Retain == 0 {
		return nil
	}
	objects, err := m.List(ctx)
	if err != nil {
		return err
	}
	if len(objects) <= m.cfg.Retain {
		return nil
	}

	stale := make([]string, 0, len(objects)-m.cfg.Retain)
	for _, obj := range objects[:len(objects)-m.cfg.Retain] {
		stale = append(stale, obj.Key)
	}
	return m.storage.DeleteObjects(ctx, m.cfg.Bucket, stale)
}

// snapshotKey sorts chronologically: users-20240101T090000Z-v000012.json
func (m *manager) snapshotKey(version int64) string {
	name := fmt.Sprintf("%s%s-v%06d.json", snapshotPrefix, m.now().Format("20060102T150405Z"), version)
	if m.cfg.KeyPrefix == "" {
		return name
	}
	return path.Join(m.cfg.KeyPrefix, name)
}

func (m *manager) listPrefix() string {
	if m.cfg.KeyPrefix == "" {
		return snapshotPrefix
	}
	return m.cfg.KeyPrefix + "/" + snapshotPrefix
}
