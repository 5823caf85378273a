package goSession

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/password"
)

func TestLoginSuccessStoresRefreshSession(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.seedUser(t, "alice", nil)

	res := env.login(t, "alice")
	if res.UserID != user.UserID {
		t.Fatalf("expected user %s, got %s", user.UserID, res.UserID)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if len(res.Roles) != 1 || res.Roles[0] != "viewer" {
		t.Fatalf("unexpected roles %v", res.Roles)
	}

	stored, err := env.mr.Get("refresh:" + user.UserID)
	if err != nil || stored != res.RefreshToken {
		t.Fatalf("expected refresh session to hold the issued token, got %q, %v", stored, err)
	}
	if ttl := env.mr.TTL("refresh:" + user.UserID); ttl != env.engine.config.JWT.RefreshTTL {
		t.Fatalf("unexpected refresh ttl %v", ttl)
	}

	events := env.auditEvents()
	if !hasEvent(events, auditEventLoginSuccess) {
		t.Fatalf("expected login_success audit event, got %+v", events)
	}
	if got := env.engine.AuditDelivered(); got != uint64(len(events)) {
		t.Fatalf("expected %d delivered audit events, got %d", len(events), got)
	}
}

func TestLoginSecondLoginReplacesSession(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "alice", nil)

	first := env.login(t, "alice")
	second := env.login(t, "alice")

	if _, err := env.engine.Refresh(context.Background(), first.RefreshToken); !errors.Is(err, ErrSessionInvalidated) {
		t.Fatalf("expected superseded refresh token to be rejected, got %v", err)
	}
	if _, err := env.engine.Refresh(context.Background(), second.RefreshToken); !errors.Is(err, ErrSessionInvalidated) {
		t.Fatalf("expected session to stay cleared after reuse, got %v", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.engine.Login(context.Background(), LoginRequest{Username: "nobody", Password: testPassword})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricLoginFailure]; got != 1 {
		t.Fatalf("expected one login failure, got %d", got)
	}
}

func TestLoginWrongPasswordCountsFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.seedUser(t, "alice", nil)

	_, err := env.engine.Login(context.Background(), LoginRequest{Username: "alice", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if got := env.store.get(user.UserID).FailedLoginAttempts; got != 1 {
		t.Fatalf("expected failure counter 1, got %d", got)
	}
}

func TestLoginLockoutAfterThreshold(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.seedUser(t, "alice", nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := env.engine.Login(ctx, LoginRequest{Username: "alice", Password: "wrong"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	stored := env.store.get(user.UserID)
	if stored.FailedLoginAttempts != 5 {
		t.Fatalf("expected 5 failures, got %d", stored.FailedLoginAttempts)
	}
	if stored.LockedUntil == nil {
		t.Fatal("expected account to be locked")
	}
	if want := env.clock.Now().Add(30 * time.Minute); !stored.LockedUntil.Equal(want) {
		t.Fatalf("expected lock until %v, got %v", want, stored.LockedUntil)
	}

	// correct password is not even checked while locked
	if _, err := env.engine.Login(ctx, LoginRequest{Username: "alice", Password: testPassword}); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
	if got := env.store.get(user.UserID).FailedLoginAttempts; got != 5 {
		t.Fatalf("locked attempt must not touch the counter, got %d", got)
	}

	env.clock.Advance(31 * time.Minute)
	env.login(t, "alice")

	stored = env.store.get(user.UserID)
	if stored.FailedLoginAttempts != 0 || stored.LockedUntil != nil {
		t.Fatalf("expected counters reset after success, got %d / %v", stored.FailedLoginAttempts, stored.LockedUntil)
	}

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricAccountLocked] != 1 {
		t.Fatalf("expected one account_locked transition, got %d", snap.Counters[MetricAccountLocked])
	}
	if snap.Counters[MetricLoginLocked] != 1 {
		t.Fatalf("expected one locked rejection, got %d", snap.Counters[MetricLoginLocked])
	}

	events := env.auditEvents()
	if !hasEvent(events, auditEventAccountLocked) || !hasEvent(events, auditEventLoginLocked) {
		t.Fatalf("expected lock audit events, got %+v", events)
	}
}

func TestLoginConcurrentFailuresStopAtThreshold(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.seedUser(t, "alice", nil)
	ctx := context.Background()

	const attempts = 20
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.engine.Login(ctx, LoginRequest{Username: "alice", Password: "wrong"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var invalid, locked int
	for err := range errs {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			invalid++
		case errors.Is(err, ErrAccountLocked):
			locked++
		default:
			t.Fatalf("unexpected login error %v", err)
		}
	}
	if invalid != 5 || locked != attempts-5 {
		t.Fatalf("expected 5 invalid and %d locked outcomes, got %d / %d", attempts-5, invalid, locked)
	}

	stored := env.store.get(user.UserID)
	if stored.FailedLoginAttempts != 5 {
		t.Fatalf("expected counter to stop at 5, got %d", stored.FailedLoginAttempts)
	}
	if !stored.Locked(env.clock.Now()) {
		t.Fatal("expected account to be locked")
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricAccountLocked]; got != 1 {
		t.Fatalf("expected a single lock transition, got %d", got)
	}
}

func TestLoginTrimsUsername(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	if _, err := env.engine.Register(ctx, RegisterRequest{Username: " alice", Email: "alice@example.com", Password: testPassword}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	res, err := env.engine.Login(ctx, LoginRequest{Username: " alice", Password: testPassword})
	if err != nil || res.Status != LoginSuccess {
		t.Fatalf("expected login as typed to succeed, got %+v, %v", res, err)
	}
	env.login(t, "alice ")
}

func TestLoginFailureAfterLockExpiryRelocks(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.seedUser(t, "alice", func(u *UserRecord) {
		u.FailedLoginAttempts = 5
		until := time.Now().Add(-time.Minute)
		u.LockedUntil = &until
	})

	_, err := env.engine.Login(context.Background(), LoginRequest{Username: "alice", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	stored := env.store.get(user.UserID)
	if !stored.Locked(env.clock.Now()) {
		t.Fatal("expected a fresh lock after failing past the threshold")
	}
}

func TestLoginSuccessResetsFailureCounter(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.seedUser(t, "alice", nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = env.engine.Login(ctx, LoginRequest{Username: "alice", Password: "wrong"})
	}
	env.login(t, "alice")

	if got := env.store.get(user.UserID).FailedLoginAttempts; got != 0 {
		t.Fatalf("expected counter reset, got %d", got)
	}

	// fifth-ever failure must not lock since the counter restarted
	for i := 0; i < 2; i++ {
		_, _ = env.engine.Login(ctx, LoginRequest{Username: "alice", Password: "wrong"})
	}
	if env.store.get(user.UserID).LockedUntil != nil {
		t.Fatal("did not expect a lock")
	}
}

func TestLoginCleanSuccessSkipsStoreWrite(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "alice", nil)

	env.login(t, "alice")
	if got := env.store.updateCount(); got != 0 {
		t.Fatalf("expected no store writes, got %d", got)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "alice", func(u *UserRecord) { u.Active = false })

	_, err := env.engine.Login(context.Background(), LoginRequest{Username: "alice", Password: testPassword})
	if !errors.Is(err, ErrUserInactive) {
		t.Fatalf("expected ErrUserInactive, got %v", err)
	}
}

func TestLoginMFAFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	secret, err := env.engine.totp.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	user := env.seedUser(t, "alice", func(u *UserRecord) {
		u.MFAEnabled = true
		u.TOTPSecret = secret
	})
	ctx := context.Background()

	res, err := env.engine.Login(ctx, LoginRequest{Username: "alice", Password: testPassword})
	if err != nil {
		t.Fatalf("expected mfa challenge without error, got %v", err)
	}
	if res.Status != LoginMFARequired || res.AccessToken != "" || res.RefreshToken != "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if env.mr.Exists("refresh:" + user.UserID) {
		t.Fatal("no session may exist before the second factor")
	}

	code, err := env.engine.totp.Code(secret, time.Now())
	if err != nil {
		t.Fatalf("Code: %v", err)
	}

	_, err = env.engine.Login(ctx, LoginRequest{Username: "alice", Password: testPassword, TOTPCode: wrongCode(code)})
	if !errors.Is(err, ErrInvalidMFACode) {
		t.Fatalf("expected ErrInvalidMFACode, got %v", err)
	}
	if got := env.store.get(user.UserID).FailedLoginAttempts; got != 0 {
		t.Fatalf("mfa failures must not count toward lockout, got %d", got)
	}

	res, err = env.engine.Login(ctx, LoginRequest{Username: "alice", Password: testPassword, TOTPCode: code})
	if err != nil || res.Status != LoginSuccess {
		t.Fatalf("expected success with valid code, got %+v, %v", res, err)
	}
}

func TestLoginIPThrottle(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.Security.EnableIPThrottle = true
		cfg.Security.MaxIPAttempts = 2
		cfg.Security.IPWindow = time.Minute
	})
	env.seedUser(t, "alice", nil)
	ctx := WithClientIP(context.Background(), "203.0.113.9")

	for i := 0; i < 2; i++ {
		if _, err := env.engine.Login(ctx, LoginRequest{Username: "alice", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}
	if _, err := env.engine.Login(ctx, LoginRequest{Username: "alice", Password: testPassword}); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}

	other := WithClientIP(context.Background(), "203.0.113.10")
	if _, err := env.engine.Login(other, LoginRequest{Username: "alice", Password: testPassword}); err != nil {
		t.Fatalf("expected other address to pass, got %v", err)
	}
}

func TestLoginUpgradesWeakHash(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) { cfg.Password.Time = 2 })

	weak, err := password.NewArgon2(password.Config{
		Memory:      8192,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
		Policy:      password.DefaultPolicy(),
	})
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	oldHash, err := weak.Hash(testPassword)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	user := env.seedUser(t, "alice", func(u *UserRecord) { u.PasswordHash = oldHash })

	env.login(t, "alice")

	stored := env.store.get(user.UserID)
	if stored.PasswordHash == oldHash {
		t.Fatal("expected hash to be upgraded")
	}
	if env.engine.hasher.NeedsUpgrade(stored.PasswordHash) {
		t.Fatal("upgraded hash still reports weaker parameters")
	}
	env.login(t, "alice")
}

func TestLoginStoreFailureIsUnavailable(t *testing.T) {
	env := newTestEnv(t, nil)
	env.store.fail = errors.New("connection reset")

	_, err := env.engine.Login(context.Background(), LoginRequest{Username: "alice", Password: testPassword})
	if !errors.Is(err, ErrStoreUnavailable) || !IsUnavailable(err) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestLoginRegistryFailureIsUnavailable(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "alice", nil)
	env.mr.Close()

	_, err := env.engine.Login(context.Background(), LoginRequest{Username: "alice", Password: testPassword})
	if !errors.Is(err, ErrRegistryUnavailable) || !IsUnavailable(err) {
		t.Fatalf("expected ErrRegistryUnavailable, got %v", err)
	}
}

func wrongCode(code string) string {
	b := []byte(code)
	if b[0] == '9' {
		b[0] = '0'
	} else {
		b[0]++
	}
	return string(b)
}
