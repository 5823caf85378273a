// Package totp implements RFC 6238 time-based one-time passwords: secret
// generation, provisioning URIs and code verification within a skew window.
//
// Secrets are exchanged as unpadded base32 strings, the form authenticator
// apps expect. Verification never returns an error: malformed secrets or
// codes are simply a mismatch.
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const secretBytes = 20

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Config controls code shape and the accepted time window.
type Config struct {
	Issuer    string
	Digits    int // 6 or 8
	Period    int // seconds per step
	Skew      int // steps accepted on either side of now
	Algorithm string
}

// Engine generates secrets and verifies codes. It holds no per-user state.
type Engine struct {
	config Config
	now    func() time.Time
}

// New validates cfg and returns an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = "SHA1"
	}
	cfg.Algorithm = strings.ToUpper(cfg.Algorithm)
	if cfg.Issuer == "" {
		return nil, errors.New("totp issuer must be set")
	}
	if cfg.Digits != 6 && cfg.Digits != 8 {
		return nil, errors.New("totp digits must be 6 or 8")
	}
	if cfg.Period <= 0 {
		return nil, errors.New("totp period must be > 0")
	}
	if cfg.Skew < 0 || cfg.Skew > 10 {
		return nil, errors.New("totp skew must be between 0 and 10")
	}
	if _, err := hmacFunc(cfg.Algorithm); err != nil {
		return nil, err
	}
	return &Engine{config: cfg, now: time.Now}, nil
}

// GenerateSecret returns a fresh random shared secret as unpadded base32.
func (e *Engine) GenerateSecret() (string, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return encoding.EncodeToString(raw), nil
}

// ProvisioningURI builds the otpauth:// enrollment URI for secret and account.
func (e *Engine) ProvisioningURI(secret, account string) string {
	issuer := e.config.Issuer
	label := url.PathEscape(issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	v.Set("period", strconv.Itoa(e.config.Period))
	v.Set("digits", strconv.Itoa(e.config.Digits))
	v.Set("algorithm", e.config.Algorithm)

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// Verify reports whether code is valid for secret at the current time.
func (e *Engine) Verify(secret, code string) bool {
	return e.VerifyAt(secret, code, e.now())
}

// VerifyAt reports whether code matches any step within ±Skew of at.
func (e *Engine) VerifyAt(secret, code string, at time.Time) bool {
	code = strings.TrimSpace(code)
	if len(code) != e.config.Digits || !isNumeric(code) {
		return false
	}
	key, err := decodeSecret(secret)
	if err != nil {
		return false
	}

	base := at.Unix() / int64(e.config.Period)
	matched := 0
	for step := -e.config.Skew; step <= e.config.Skew; step++ {
		counter := base + int64(step)
		if counter < 0 {
			continue
		}
		generated := hotp(key, uint64(counter), e.config.Digits, e.config.Algorithm)
		// keep scanning after a match so timing does not reveal which step hit
		matched |= subtle.ConstantTimeCompare([]byte(generated), []byte(code))
	}
	return matched == 1
}

// Code returns the code for secret at time at.
func (e *Engine) Code(secret string, at time.Time) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	return hotp(key, uint64(at.Unix()/int64(e.config.Period)), e.config.Digits, e.config.Algorithm), nil
}

func decodeSecret(secret string) ([]byte, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secret), " ", ""))
	normalized = strings.TrimRight(normalized, "=")
	if normalized == "" {
		return nil, errors.New("empty totp secret")
	}
	key, err := encoding.DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("decode totp secret: %w", err)
	}
	return key, nil
}

func hotp(key []byte, counter uint64, digits int, algorithm string) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	hf, _ := hmacFunc(algorithm)
	mac := hmac.New(hf, key)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (uint32(sum[offset])&0x7f)<<24 |
		uint32(sum[offset+1])<<16 |
		uint32(sum[offset+2])<<8 |
		uint32(sum[offset+3])

	mod := uint32(1)
	for i := 0; i < digits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", digits, bin%mod)
}

func hmacFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "", "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, errors.New("unsupported totp algorithm")
	}
}

func isNumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
