package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	maxMemoryKB    uint32 = 4 * 1024 * 1024
	maxTimeCost    uint32 = 64
	maxParallelism uint8  = 64
	maxSaltLength         = 64
	maxKeyLength          = 128
	algorithmID           = "argon2id"
	dummySecretLen        = 32
)

// DefaultMaxPasswordBytes bounds the input fed to argon2 when Config.MaxPasswordBytes is zero.
const DefaultMaxPasswordBytes = 1024

// Config holds the argon2id cost parameters and the complexity policy.
type Config struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	Policy      Policy

	// MaxPasswordBytes caps plaintext length. Zero means DefaultMaxPasswordBytes.
	MaxPasswordBytes int
}

// Argon2 hashes and verifies passwords. It is safe for concurrent use.
type Argon2 struct {
	config Config
}

type parsedPHC struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
	keyLength   uint32
}

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{config: cfg}, nil
}

// Hash checks password against the policy and returns its PHC-encoded argon2id hash.
//
// Hash returns an error wrapping [ErrPolicyViolation] when the policy is not met.
// Password bytes are used exactly as provided (no Unicode normalization).
func (a *Argon2) Hash(password string) (string, error) {
	if len(password) > a.config.MaxPasswordBytes {
		return "", fmt.Errorf("%w: must be at most %d bytes", ErrPolicyViolation, a.config.MaxPasswordBytes)
	}
	if err := a.config.Policy.Check(password); err != nil {
		return "", err
	}
	return a.derive([]byte(password))
}

// DummyHash returns a hash of random bytes produced with the configured
// parameters. Verifying any password against it costs the same as a real
// verification and never succeeds in practice.
func (a *Argon2) DummyHash() (string, error) {
	secret := make([]byte, dummySecretLen)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return "", err
	}
	return a.derive(secret)
}

func (a *Argon2) derive(password []byte) (string, error) {
	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey(
		password,
		salt,
		a.config.Time,
		a.config.Memory,
		a.config.Parallelism,
		a.config.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		a.config.Memory,
		a.config.Time,
		a.config.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(hash),
	), nil
}

// Verify reports whether password matches encodedHash.
//
// A malformed or unsupported hash is a non-match; Verify never returns an error.
// The comparison of derived keys is constant time.
func (a *Argon2) Verify(password string, encodedHash string) bool {
	if len(password) > a.config.MaxPasswordBytes {
		return false
	}
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey(
		[]byte(password),
		parsed.salt,
		parsed.time,
		parsed.memory,
		parsed.parallelism,
		parsed.keyLength,
	)
	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1
}

// NeedsUpgrade reports whether encodedHash was produced with weaker parameters
// than the current configuration. Unparseable hashes always need an upgrade.
func (a *Argon2) NeedsUpgrade(encodedHash string) bool {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return true
	}
	return a.config.Memory > parsed.memory ||
		a.config.Time > parsed.time ||
		a.config.Parallelism > parsed.parallelism ||
		a.config.KeyLength != parsed.keyLength
}

// Policy returns the complexity policy enforced by Hash.
func (a *Argon2) Policy() Policy {
	return a.config.Policy
}

func parsePHC(encodedHash string) (*parsedPHC, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}
	if parts[1] != algorithmID {
		return nil, errors.New("unsupported algorithm")
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") {
		return nil, errors.New("invalid argon2 version")
	}
	if version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	params, err := parseParams(parts[3])
	if err != nil {
		return nil, err
	}

	salt, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < int(minSaltLength) || len(salt) > maxSaltLength {
		return nil, errors.New("invalid salt")
	}
	hash, err := base64.StdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) < int(minKeyLength) || len(hash) > maxKeyLength {
		return nil, errors.New("invalid hash")
	}

	return &parsedPHC{
		memory:      params.memory,
		time:        params.time,
		parallelism: params.parallelism,
		salt:        salt,
		hash:        hash,
		keyLength:   uint32(len(hash)),
	}, nil
}

type parsedParams struct {
	memory      uint32
	time        uint32
	parallelism uint8
}

func parseParams(part string) (*parsedParams, error) {
	pairs := strings.Split(part, ",")
	if len(pairs) != 3 {
		return nil, errors.New("invalid parameter format")
	}

	var (
		seen   int
		params parsedParams
	)
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errors.New("invalid parameter entry")
		}
		switch key {
		case "m":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || v < uint64(minMemoryKB) || v > uint64(maxMemoryKB) {
				return nil, errors.New("invalid memory parameter")
			}
			params.memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || v < uint64(minTimeCost) || v > uint64(maxTimeCost) {
				return nil, errors.New("invalid time parameter")
			}
			params.time = uint32(v)
		case "p":
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil || v < uint64(minParallelism) || v > uint64(maxParallelism) {
				return nil, errors.New("invalid parallelism parameter")
			}
			params.parallelism = uint8(v)
		default:
			return nil, errors.New("unsupported parameter")
		}
		seen++
	}
	if seen != 3 || params.memory == 0 || params.time == 0 || params.parallelism == 0 {
		return nil, errors.New("missing parameters")
	}
	return &params, nil
}

func validateConfig(cfg Config) error {
	if cfg.Memory < minMemoryKB || cfg.Memory > maxMemoryKB {
		return errors.New("password memory must be between 8192 KB and 4 GiB")
	}
	if cfg.Time < minTimeCost || cfg.Time > maxTimeCost {
		return errors.New("password time must be between 1 and 64")
	}
	if cfg.Parallelism < minParallelism || cfg.Parallelism > maxParallelism {
		return errors.New("password parallelism must be between 1 and 64")
	}
	if cfg.SaltLength < minSaltLength || cfg.SaltLength > maxSaltLength {
		return errors.New("password salt length must be between 16 and 64")
	}
	if cfg.KeyLength < minKeyLength || cfg.KeyLength > maxKeyLength {
		return errors.New("password key length must be between 16 and 128")
	}
	if cfg.MaxPasswordBytes < 0 {
		return errors.New("password MaxPasswordBytes must be >= 0")
	}
	return cfg.Policy.validate()
}
