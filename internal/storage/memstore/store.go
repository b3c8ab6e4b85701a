// Package memstore keeps commands in memory, optionally snapshotting them
// to a JSON file after every write.
package memstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/harrylevesque/commandapi/internal/models"
	"github.com/harrylevesque/commandapi/internal/storage"
)

var errHowToTooLong = errors.New("how_to exceeds column length")

// snapshot is the on-disk layout of the JSON file.
type snapshot struct {
	LastID   int64            `json:"lastId"`
	Commands []models.Command `json:"commands"`
}

// Store is a mutex guarded map of commands keyed by id.
type Store struct {
	mu       sync.RWMutex
	lastID   int64
	commands map[int64]models.Command
	filePath string
}

var _ storage.CommandStore = (*Store)(nil)

// New returns an empty store that lives only in memory.
func New() *Store {
	return &Store{commands: make(map[int64]models.Command)}
}

// Open returns a store backed by the JSON file at path, loading it when it
// already exists.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("snapshot path is required")
	}
	s := New()
	s.filePath = path
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) List(ctx context.Context) ([]models.Command, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Internal("list", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(), nil
}

func (s *Store) Get(ctx context.Context, id int64) (models.Command, error) {
	if err := ctx.Err(); err != nil {
		return models.Command{}, storage.Internal("get", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.commands[id]
	if !ok {
		return models.Command{}, storage.NotFound("get", id)
	}
	return c, nil
}

func (s *Store) Create(ctx context.Context, cmd models.Command) (models.Command, error) {
	if err := ctx.Err(); err != nil {
		return models.Command{}, storage.Internal("create", err)
	}
	if err := checkColumns(cmd); err != nil {
		return models.Command{}, storage.Invalid("create", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	cmd.ID = s.lastID
	s.commands[cmd.ID] = cmd
	if err := s.saveLocked(); err != nil {
		delete(s.commands, cmd.ID)
		s.lastID--
		return models.Command{}, storage.Internal("create", err)
	}
	return cmd, nil
}

func (s *Store) Update(ctx context.Context, cmd models.Command) error {
	if err := ctx.Err(); err != nil {
		return storage.Internal("update", err)
	}
	if err := checkColumns(cmd); err != nil {
		return storage.Invalid("update", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.commands[cmd.ID]
	if !ok {
		return storage.NotFound("update", cmd.ID)
	}
	s.commands[cmd.ID] = cmd
	if err := s.saveLocked(); err != nil {
		s.commands[cmd.ID] = prev
		return storage.Internal("update", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) (models.Command, error) {
	if err := ctx.Err(); err != nil {
		return models.Command{}, storage.Internal("delete", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.commands[id]
	if !ok {
		return models.Command{}, storage.NotFound("delete", id)
	}
	delete(s.commands, id)
	if err := s.saveLocked(); err != nil {
		s.commands[id] = c
		return models.Command{}, storage.Internal("delete", err)
	}
	return c, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return storage.Internal("ping", err)
	}
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) sortedLocked() []models.Command {
	out := make([]models.Command, 0, len(s.commands))
	for _, c := range s.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// checkColumns mirrors the column constraints of the SQL schema.
func checkColumns(cmd models.Command) error {
	if utf8.RuneCountInString(cmd.HowTo) > models.MaxHowToLength {
		return errHowToTooLong
	}
	return nil
}

// saveLocked rewrites the snapshot file. Callers hold the write lock.
func (s *Store) saveLocked() error {
	if s.filePath == "" {
		return nil
	}
	data, err := json.MarshalIndent(snapshot{LastID: s.lastID, Commands: s.sortedLocked()}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return err
	}
	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.filePath)
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	for _, c := range snap.Commands {
		s.commands[c.ID] = c
		if c.ID > snap.LastID {
			snap.LastID = c.ID
		}
	}
	s.lastID = snap.LastID
	return nil
}
