package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"adminbot/pkg/logger"
	"adminbot/pkg/models"

	"github.com/fsnotify/fsnotify"
	"github.com/golang-jwt/jwt/v5"
)

// Store holds the current credentials in memory and mirrors them in a JSON
// file shared by every process of the same operator profile. A login or
// logout performed by another process is picked up through a watch on that
// file, so the session goes absent everywhere without a network round-trip.
// The slot has no locking beyond last-write-wins.
type Store struct {
	path string
	log  logger.ILogger

	mu    sync.RWMutex
	creds models.Credentials

	subMu       sync.Mutex
	subscribers []func()

	watcher *fsnotify.Watcher
	done    chan struct{}
}

func NewStore(path string, log logger.ILogger) (*Store, error) {
	s := &Store{
		path: path,
		log:  log,
		done: make(chan struct{}),
	}
	s.loadFromDisk()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory, not the file: logout removes the file and a
	// watch on the file itself would die with it.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}
	s.watcher = watcher
	go s.watch()

	return s, nil
}

// Token returns the current access token, or "" when the session is absent.
// A token whose JWT exp claim has passed is treated as absent.
func (s *Store) Token() string {
	s.mu.RLock()
	token := s.creds.AccessToken
	s.mu.RUnlock()
	if token == "" || tokenExpired(token) {
		return ""
	}
	return token
}

func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.RefreshToken
}

// SetCredentials stores both tokens in memory and on disk. The file is
// written to a temp name and renamed into place so a peer process watching
// the slot never reads a half-written payload.
func (s *Store) SetCredentials(creds models.Credentials) error {
	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()

	payload, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		s.log.Error("failed to persist credentials", logger.Error(err))
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		s.log.Error("failed to persist credentials", logger.Error(err))
		return err
	}
	s.notify()
	return nil
}

// Clear drops both tokens together, in memory and on disk.
func (s *Store) Clear() {
	s.mu.Lock()
	had := s.creds.AccessToken != "" || s.creds.RefreshToken != ""
	s.creds = models.Credentials{}
	s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warning("failed to remove credential file", logger.Error(err))
	}
	if had {
		s.notify()
	}
}

// Subscribe registers fn to run after any credential change, including ones
// observed from another process.
func (s *Store) Subscribe(fn func()) {
	s.subMu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.subMu.Unlock()
}

func (s *Store) Close() {
	close(s.done)
	if s.watcher != nil {
		s.watcher.Close()
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	subs := make([]func(), len(s.subscribers))
	copy(subs, s.subscribers)
	s.subMu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

func (s *Store) loadFromDisk() {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var creds models.Credentials
	if err := json.Unmarshal(payload, &creds); err != nil {
		s.log.Warning("unreadable credential file, ignoring", logger.Error(err))
		return
	}
	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()
}

// reload re-reads the slot after an external change and reports whether the
// in-memory state moved.
func (s *Store) reload() bool {
	var creds models.Credentials
	if payload, err := os.ReadFile(s.path); err == nil {
		if err := json.Unmarshal(payload, &creds); err != nil {
			return false
		}
	}

	s.mu.Lock()
	changed := creds != s.creds
	s.creds = creds
	s.mu.Unlock()
	return changed
}

func (s *Store) watch() {
	base := filepath.Base(s.path)
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if s.reload() {
				s.log.Info("credential slot changed externally")
				s.notify()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warning("credential watcher error", logger.Error(err))
		}
	}
}

// tokenExpired inspects the JWT exp claim without verifying the signature;
// the client has no signing key and the server re-checks everything anyway.
// Tokens that don't parse as JWTs are left to the server to judge.
func tokenExpired(raw string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
