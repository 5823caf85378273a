package password

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func secureConfig() Config {
	return Config{
		Memory:      65536,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
		Policy:      DefaultPolicy(),
	}
}

func fastConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
		Policy:      DefaultPolicy(),
	}
}

func TestHashAndVerify(t *testing.T) {
	hasher, err := NewArgon2(secureConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	hash, err := hasher.Hash("Sup3r$ecret!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=2$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}
	if !hasher.Verify("Sup3r$ecret!", hash) {
		t.Fatal("expected password verification to succeed")
	}
}

func TestVerifyWrongPassword(t *testing.T) {
	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	hash, err := hasher.Hash("Correct-Horse-1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	for _, candidate := range []string{"Correct-Horse-2", "correct-horse-1", "", "Correct-Horse-1 "} {
		if hasher.Verify(candidate, hash) {
			t.Fatalf("expected %q to be rejected", candidate)
		}
	}
}

func TestHashIsSalted(t *testing.T) {
	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	first, err := hasher.Hash("Same-Passw0rd!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	second, err := hasher.Hash("Same-Passw0rd!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct hashes for the same password")
	}
}

func TestVerifyUsesEmbeddedParameters(t *testing.T) {
	weak, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2(weak) error: %v", err)
	}
	hash, err := weak.Hash("Embedded-Params9!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	strong, err := NewArgon2(secureConfig())
	if err != nil {
		t.Fatalf("NewArgon2(strong) error: %v", err)
	}
	if !strong.Verify("Embedded-Params9!", hash) {
		t.Fatal("expected verification with different configured parameters to succeed")
	}
}

func TestNeedsUpgrade(t *testing.T) {
	oldHasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2(old) error: %v", err)
	}

	hash, err := oldHasher.Hash("Test-Passw0rd")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	newHasher, err := NewArgon2(secureConfig())
	if err != nil {
		t.Fatalf("NewArgon2(new) error: %v", err)
	}

	if !newHasher.NeedsUpgrade(hash) {
		t.Fatal("expected NeedsUpgrade to return true for weaker hash parameters")
	}
	if oldHasher.NeedsUpgrade(hash) {
		t.Fatal("expected NeedsUpgrade to return false for current parameters")
	}
	if !oldHasher.NeedsUpgrade("garbage") {
		t.Fatal("expected NeedsUpgrade to return true for malformed hash")
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	hash, err := hasher.Hash("Version-Test1!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	cases := []string{
		"",
		"not-a-phc-hash",
		strings.Replace(hash, "$v=19$", "$v=18$", 1),
		strings.Replace(hash, "argon2id", "argon2i", 1),
		strings.Replace(hash, "m=8192", "m=1", 1),
		hash[:len(hash)-8] + "!!!!!!!!",
	}
	for _, encoded := range cases {
		if hasher.Verify("Version-Test1!", encoded) {
			t.Fatalf("expected malformed hash %q to be a non-match", encoded)
		}
	}
}

func TestVerifyRejectsOversizedParameters(t *testing.T) {
	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	hash, err := hasher.Hash("Sup3r$ecret!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	parts := strings.Split(hash, "$")
	longSalt := base64.StdEncoding.EncodeToString(make([]byte, 65))
	longKey := base64.StdEncoding.EncodeToString(make([]byte, 129))

	// none of these may reach argon2; a huge m would abort the process
	cases := []string{
		strings.Replace(hash, "m=8192", "m=4294967295", 1),
		strings.Replace(hash, "m=8192", "m=4194305", 1),
		strings.Replace(hash, "t=1", "t=4294967295", 1),
		strings.Replace(hash, "p=1", "p=255", 1),
		strings.Join([]string{"", parts[1], parts[2], parts[3], longSalt, parts[5]}, "$"),
		strings.Join([]string{"", parts[1], parts[2], parts[3], parts[4], longKey}, "$"),
	}
	for _, encoded := range cases {
		if hasher.Verify("Sup3r$ecret!", encoded) {
			t.Fatalf("expected oversized hash %q to be a non-match", encoded)
		}
		if !hasher.NeedsUpgrade(encoded) {
			t.Fatalf("expected oversized hash %q to need an upgrade", encoded)
		}
	}
}

func TestHashPolicyViolation(t *testing.T) {
	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	for _, pwd := range []string{"", "Sh0rt!", "alllower1!", "ALLUPPER1!", "NoDigits!!", "NoPunct123"} {
		_, err := hasher.Hash(pwd)
		if !errors.Is(err, ErrPolicyViolation) {
			t.Fatalf("Hash(%q) expected ErrPolicyViolation, got %v", pwd, err)
		}
	}
}

func TestHashTooLongPasswordRejected(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxPasswordBytes = 64
	hasher, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	exact := "Aa1!" + strings.Repeat("b", 60)
	hash, err := hasher.Hash(exact)
	if err != nil {
		t.Fatalf("expected exactly-max password to be accepted: %v", err)
	}
	if !hasher.Verify(exact, hash) {
		t.Fatal("Verify failed for max-length password")
	}

	if _, err := hasher.Hash(exact + "c"); !errors.Is(err, ErrPolicyViolation) {
		t.Fatalf("expected long password to be rejected, got %v", err)
	}
	if hasher.Verify(exact+"c", hash) {
		t.Fatal("expected Verify to reject an over-long password")
	}
}

func TestDummyHashNeverMatchesCommonInput(t *testing.T) {
	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	dummy, err := hasher.DummyHash()
	if err != nil {
		t.Fatalf("DummyHash error: %v", err)
	}
	if !strings.HasPrefix(dummy, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("dummy hash must use configured parameters, got %s", dummy)
	}
	if hasher.Verify("", dummy) || hasher.Verify("Sup3r$ecret!", dummy) {
		t.Fatal("dummy hash matched a password")
	}
}

func TestNewArgon2RejectsWeakParameters(t *testing.T) {
	mutations := []func(*Config){
		func(c *Config) { c.Memory = 1024 },
		func(c *Config) { c.Time = 0 },
		func(c *Config) { c.Parallelism = 0 },
		func(c *Config) { c.SaltLength = 8 },
		func(c *Config) { c.KeyLength = 8 },
		func(c *Config) { c.Policy.MinLength = 0 },
		func(c *Config) { c.MaxPasswordBytes = -1 },
		func(c *Config) { c.Memory = 4*1024*1024 + 1 },
		func(c *Config) { c.Time = 65 },
		func(c *Config) { c.KeyLength = 129 },
	}
	for i, mutate := range mutations {
		cfg := secureConfig()
		mutate(&cfg)
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("mutation %d: expected config validation error", i)
		}
	}
}
