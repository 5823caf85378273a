package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the JWT signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with a shared secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	// ErrExpired is returned when the token's exp has passed.
	ErrExpired = errors.New("token expired")
	// ErrMalformed is returned for input that is not a well-formed token.
	ErrMalformed = errors.New("token malformed")
	// ErrInvalidSignature is returned when the signature, algorithm or key id does not verify.
	ErrInvalidSignature = errors.New("token signature invalid")
	// ErrInvalidClaims is returned when the claim set does not have the required shape.
	ErrInvalidClaims = errors.New("token claims invalid")
)

// Config holds signing keys and validation rules.
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
}

// Claims is the fixed-shape claim set carried by every token.
type Claims struct {
	Roles []string `json:"roles"`
	Type  Kind     `json:"type"`
	jwt.RegisteredClaims
}

// UserID returns the subject.
func (c *Claims) UserID() string {
	return c.Subject
}

// Expiry returns the exp claim, or the zero time when absent.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Codec signs and verifies tokens. It is immutable after construction and
// safe for concurrent use.
type Codec struct {
	config    Config
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	now       func() time.Time
}

// NewCodec validates cfg and resolves the signing and verification keys.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	c := &Codec{config: cfg, now: time.Now}

	switch cfg.SigningMethod {
	case MethodHS256, "":
		if len(cfg.PrivateKey) < 32 {
			return nil, errors.New("hs256 requires a secret of at least 32 bytes")
		}
		c.config.SigningMethod = MethodHS256
		c.method = jwt.SigningMethodHS256
		c.signKey = cfg.PrivateKey
		c.verifyKey = cfg.PrivateKey
	case MethodEd25519:
		priv, err := parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		c.method = jwt.SigningMethodEdDSA
		c.signKey = priv
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			c.verifyKey = pub
		} else {
			c.verifyKey = priv.Public()
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return c, nil
}

// Encode signs claims with an expiry of now+ttl. IssuedAt, a fresh token id,
// issuer and audience are filled in. The returned time is the expiry.
func (c *Codec) Encode(claims Claims, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		return "", time.Time{}, errors.New("token ttl must be > 0")
	}
	if claims.Subject == "" || claims.Type == "" {
		return "", time.Time{}, ErrInvalidClaims
	}

	now := c.now()
	exp := now.Add(ttl)

	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(exp)
	claims.ID = uuid.NewString()
	claims.Issuer = c.config.Issuer
	if c.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{c.config.Audience}
	}
	if claims.Roles == nil {
		claims.Roles = []string{}
	}

	tok := jwt.NewWithClaims(c.method, claims)
	if c.config.KeyID != "" {
		tok.Header["kid"] = c.config.KeyID
	}

	signed, err := tok.SignedString(c.signKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	// exp is serialized with second precision
	return signed, claims.ExpiresAt.Time, nil
}

// Decode verifies tokenStr and returns its claims.
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}
	if c.config.Audience != "" {
		options = append(options, jwt.WithAudience(c.config.Audience))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if c.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != c.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return c.verifyKey, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.Subject == "" || (claims.Type != KindAccess && claims.Type != KindRefresh) {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	default:
		return fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
