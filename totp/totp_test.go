package totp

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

func rfcEngine(t *testing.T, algorithm string) *Engine {
	t.Helper()
	e, err := New(Config{Issuer: "goSession", Digits: 8, Period: 30, Skew: 0, Algorithm: algorithm})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return e
}

type rfcVector struct {
	ts   int64
	code string
}

func TestVerifyRFCVectorsSHA1(t *testing.T) {
	e := rfcEngine(t, "SHA1")
	secret := encoding.EncodeToString([]byte("12345678901234567890"))
	for _, tc := range []rfcVector{
		{59, "94287082"},
		{1111111109, "07081804"},
		{1111111111, "14050471"},
		{1234567890, "89005924"},
		{2000000000, "69279037"},
		{20000000000, "65353130"},
	} {
		if !e.VerifyAt(secret, tc.code, time.Unix(tc.ts, 0)) {
			t.Fatalf("SHA1 vector failed at t=%d", tc.ts)
		}
		got, err := e.Code(secret, time.Unix(tc.ts, 0))
		if err != nil || got != tc.code {
			t.Fatalf("Code at t=%d = %q, %v; want %q", tc.ts, got, err, tc.code)
		}
	}
}

func TestVerifyRFCVectorsSHA256(t *testing.T) {
	e := rfcEngine(t, "SHA256")
	secret := encoding.EncodeToString([]byte("12345678901234567890123456789012"))
	for _, tc := range []rfcVector{
		{59, "46119246"},
		{1111111109, "68084774"},
		{1234567890, "91819424"},
		{20000000000, "77737706"},
	} {
		if !e.VerifyAt(secret, tc.code, time.Unix(tc.ts, 0)) {
			t.Fatalf("SHA256 vector failed at t=%d", tc.ts)
		}
	}
}

func TestVerifyRFCVectorsSHA512(t *testing.T) {
	e := rfcEngine(t, "SHA512")
	secret := encoding.EncodeToString([]byte("1234567890123456789012345678901234567890123456789012345678901234"))
	for _, tc := range []rfcVector{
		{59, "90693936"},
		{1111111109, "25091201"},
		{1234567890, "93441116"},
		{20000000000, "47863826"},
	} {
		if !e.VerifyAt(secret, tc.code, time.Unix(tc.ts, 0)) {
			t.Fatalf("SHA512 vector failed at t=%d", tc.ts)
		}
	}
}

func TestVerifySkewWindow(t *testing.T) {
	e, err := New(Config{Issuer: "goSession", Digits: 6, Period: 30, Skew: 1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	secret, err := e.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}

	now := time.Unix(1_700_000_010, 0)
	prev, _ := e.Code(secret, now.Add(-30*time.Second))
	next, _ := e.Code(secret, now.Add(30*time.Second))
	stale, _ := e.Code(secret, now.Add(-90*time.Second))

	if !e.VerifyAt(secret, prev, now) {
		t.Fatal("expected previous step to be accepted")
	}
	if !e.VerifyAt(secret, next, now) {
		t.Fatal("expected next step to be accepted")
	}
	current, _ := e.Code(secret, now)
	if stale != current && stale != prev && stale != next && e.VerifyAt(secret, stale, now) {
		t.Fatal("expected code three steps old to be rejected")
	}
}

func TestVerifyMalformedInputIsFalse(t *testing.T) {
	e, err := New(Config{Issuer: "goSession", Digits: 6, Period: 30, Skew: 1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	secret, _ := e.GenerateSecret()
	code, _ := e.Code(secret, time.Now())

	cases := []struct{ secret, code string }{
		{secret, ""},
		{secret, "12345"},
		{secret, "1234567"},
		{secret, "12a456"},
		{"", code},
		{"not base32 !!", code},
	}
	for _, tc := range cases {
		if e.Verify(tc.secret, tc.code) {
			t.Fatalf("expected Verify(%q, %q) to be false", tc.secret, tc.code)
		}
	}
}

func TestVerifyAcceptsLowercaseAndPaddedSecret(t *testing.T) {
	e := rfcEngine(t, "SHA1")
	secret := base32Padded([]byte("12345678901234567890"))
	if !e.VerifyAt(strings.ToLower(secret), "94287082", time.Unix(59, 0)) {
		t.Fatal("expected lowercase padded secret to verify")
	}
}

func TestGenerateSecretShapeAndUniqueness(t *testing.T) {
	e, err := New(Config{Issuer: "goSession", Digits: 6, Period: 30, Skew: 1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	a, err := e.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}
	b, _ := e.GenerateSecret()
	if len(a) != 32 || strings.Contains(a, "=") {
		t.Fatalf("unexpected secret shape %q", a)
	}
	if a == b {
		t.Fatal("expected distinct secrets")
	}
}

func TestProvisioningURI(t *testing.T) {
	e, err := New(Config{Issuer: "Omer Vision", Digits: 6, Period: 30, Skew: 1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	uri := e.ProvisioningURI("JBSWY3DPEHPK3PXP", "alice")
	if uri != e.ProvisioningURI("JBSWY3DPEHPK3PXP", "alice") {
		t.Fatal("expected deterministic URI")
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		t.Fatalf("parse uri: %v", err)
	}
	if parsed.Scheme != "otpauth" || parsed.Host != "totp" {
		t.Fatalf("unexpected uri %q", uri)
	}
	if parsed.Path != "/Omer Vision:alice" {
		t.Fatalf("unexpected label %q", parsed.Path)
	}
	q := parsed.Query()
	if q.Get("secret") != "JBSWY3DPEHPK3PXP" || q.Get("issuer") != "Omer Vision" || q.Get("digits") != "6" || q.Get("period") != "30" || q.Get("algorithm") != "SHA1" {
		t.Fatalf("unexpected query %v", q)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	for i, cfg := range []Config{
		{Digits: 6, Period: 30},
		{Issuer: "x", Digits: 7, Period: 30},
		{Issuer: "x", Digits: 6, Period: 0},
		{Issuer: "x", Digits: 6, Period: 30, Skew: -1},
		{Issuer: "x", Digits: 6, Period: 30, Algorithm: "MD5"},
	} {
		if _, err := New(cfg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func base32Padded(raw []byte) string {
	return strings.ToUpper(encoding.EncodeToString(raw)) + "===="
}
