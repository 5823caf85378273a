package goSession

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testPassword = "Corr3ct-Horse!"
)

type mockStore struct {
	mu      sync.Mutex
	users   map[string]*UserRecord
	seq     int
	fail    error
	updates int
}

func newMockStore() *mockStore {
	return &mockStore{users: map[string]*UserRecord{}}
}

func (m *mockStore) FindByUsername(_ context.Context, username string) (*UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	for _, u := range m.users {
		if u.Username == username {
			return u.Clone(), nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockStore) FindByID(_ context.Context, userID string) (*UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	u, ok := m.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u.Clone(), nil
}

func (m *mockStore) Create(_ context.Context, user UserRecord) (*UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return nil, ErrAccountExists
		}
	}
	m.seq++
	user.UserID = "u" + strconv.Itoa(m.seq)
	stored := user.Clone()
	m.users[stored.UserID] = stored
	return stored.Clone(), nil
}

func (m *mockStore) Update(_ context.Context, userID string, mutate func(*UserRecord) error) (*UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	current, ok := m.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	working := current.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	m.users[userID] = working
	m.updates++
	return working.Clone(), nil
}

func (m *mockStore) get(userID string) *UserRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[userID].Clone()
}

func (m *mockStore) updateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	engine *Engine
	store  *mockStore
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	sink   *ChannelSink
	clock  *fakeClock
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte(testSecret)
	cfg.Password.Memory = 8192
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := newMockStore()
	sink := NewChannelSink(1024)

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialStore(store).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	clock := &fakeClock{t: time.Now()}
	engine.now = clock.Now

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})

	return &testEnv{
		engine: engine,
		store:  store,
		mr:     mr,
		rdb:    rdb,
		sink:   sink,
		clock:  clock,
	}
}

func (env *testEnv) seedUser(t *testing.T, username string, mutate func(*UserRecord)) *UserRecord {
	t.Helper()
	hash, err := env.engine.hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := UserRecord{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Roles:        []string{"viewer"},
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	if mutate != nil {
		mutate(&u)
	}
	created, err := env.store.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return created
}

func (env *testEnv) login(t *testing.T, username string) *LoginResult {
	t.Helper()
	res, err := env.engine.Login(context.Background(), LoginRequest{Username: username, Password: testPassword})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.Status != LoginSuccess {
		t.Fatalf("expected success status, got %s", res.Status)
	}
	return res
}

// auditEvents closes the engine and returns every delivered event.
func (env *testEnv) auditEvents() []AuditEvent {
	env.engine.Close()
	var out []AuditEvent
	for {
		select {
		case ev := <-env.sink.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func hasEvent(events []AuditEvent, eventType string) bool {
	for _, ev := range events {
		if ev.EventType == eventType {
			return true
		}
	}
	return false
}
