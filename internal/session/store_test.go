package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"adminbot/pkg/logger"
	"adminbot/pkg/models"

	"github.com/golang-jwt/jwt/v5"
)

func newTestStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(path, logger.New("session-test", "error"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestPersistAndRehydrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")

	store := newTestStore(t, path)
	creds := models.Credentials{AccessToken: "opaque-access", RefreshToken: "opaque-refresh"}
	if err := store.SetCredentials(creds); err != nil {
		t.Fatalf("set credentials: %v", err)
	}

	// A fresh store on the same slot rehydrates on construction.
	rehydrated := newTestStore(t, path)
	if rehydrated.Token() != "opaque-access" {
		t.Fatalf("expected rehydrated access token, got %q", rehydrated.Token())
	}
	if rehydrated.RefreshToken() != "opaque-refresh" {
		t.Fatalf("expected rehydrated refresh token, got %q", rehydrated.RefreshToken())
	}
}

func TestClearDropsBothTokensAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	store := newTestStore(t, path)
	if err := store.SetCredentials(models.Credentials{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("set credentials: %v", err)
	}

	store.Clear()

	if store.Token() != "" || store.RefreshToken() != "" {
		t.Fatal("expected both tokens cleared together")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected credential file removed, stat err = %v", err)
	}
}

func TestCrossProcessLogoutPropagation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")

	// Two stores on the same slot stand in for two tabs of one profile.
	tabA := newTestStore(t, path)
	tabB := newTestStore(t, path)

	if err := tabA.SetCredentials(models.Credentials{AccessToken: "shared"}); err != nil {
		t.Fatalf("set credentials: %v", err)
	}
	waitFor(t, func() bool { return tabB.Token() == "shared" },
		"tab B never observed the login from tab A")

	notified := make(chan struct{}, 1)
	tabB.Subscribe(func() {
		select {
		case notified <- struct{}{}:
		default:
		}
	})

	tabA.Clear()

	waitFor(t, func() bool { return tabB.Token() == "" },
		"tab B never observed the logout from tab A")
	select {
	case <-notified:
	case <-time.After(3 * time.Second):
		t.Fatal("subscriber was not notified of the external change")
	}
}

func TestSetCredentialsWritesSlotAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	store := newTestStore(t, path)

	// Overwrite the slot repeatedly; every observable state of the file
	// must be complete, valid JSON — a peer process triggered by a watch
	// event must never read a half-written payload.
	for i := 0; i < 20; i++ {
		creds := models.Credentials{AccessToken: "access", RefreshToken: "refresh"}
		if err := store.SetCredentials(creds); err != nil {
			t.Fatalf("set credentials: %v", err)
		}
		payload, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read slot: %v", err)
		}
		var got models.Credentials
		if err := json.Unmarshal(payload, &got); err != nil {
			t.Fatalf("slot held invalid JSON: %v (%q)", err, payload)
		}
		if got != creds {
			t.Fatalf("slot content %+v does not match %+v", got, creds)
		}
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind, stat err = %v", err)
	}
}

func TestExpiredJWTTreatedAsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	store := newTestStore(t, path)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("irrelevant"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if err := store.SetCredentials(models.Credentials{AccessToken: expired}); err != nil {
		t.Fatalf("set credentials: %v", err)
	}
	if got := store.Token(); got != "" {
		t.Fatalf("expected expired token to read as absent, got %q", got)
	}
}

func TestLiveJWTStillPresent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	store := newTestStore(t, path)

	live, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("irrelevant"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if err := store.SetCredentials(models.Credentials{AccessToken: live}); err != nil {
		t.Fatalf("set credentials: %v", err)
	}
	if store.Token() != live {
		t.Fatal("expected live token to be returned as-is")
	}
}
