package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"errors"
)

var (
	// ErrMissingSecret means no signing secret is configured. It is a
	// deployment fault, not a client error.
	ErrMissingSecret = errors.New("signing secret is not configured")

	// ErrMissingCredentials means the signature or signed-headers header is absent.
	ErrMissingCredentials = errors.New("request signature headers missing")

	// ErrSignatureMismatch means the claimed signature does not match.
	ErrSignatureMismatch = errors.New("request signature mismatch")
)

// Verifier checks request signatures against a shared secret. It holds no
// mutable state and is safe for concurrent use.
type Verifier struct {
	secret []byte
}

// NewVerifier returns a Verifier keyed with secret.
// An empty secret is rejected with ErrMissingSecret.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Check verifies req using the signature and signed-header list carried in
// its own headers. It returns nil, ErrMissingSecret, ErrMissingCredentials or
// ErrSignatureMismatch. A nil Verifier reports ErrMissingSecret.
func (v *Verifier) Check(req Request) error {
	if v == nil || len(v.secret) == 0 {
		return ErrMissingSecret
	}
	claimed := lookup(req.Headers, HeaderSignature)
	signed := ParseSignedHeaders(lookup(req.Headers, HeaderSignedHeaders))
	return check(v.secret, req, signed, claimed)
}

// Verify reports whether req carries a valid signature.
func (v *Verifier) Verify(req Request) bool {
	return v.Check(req) == nil
}

// Sign computes the signature a sender would attach to req for the given
// signed-header list.
func (v *Verifier) Sign(req Request, signedHeaders []string) string {
	if v == nil {
		return ""
	}
	return Sign(v.secret, req.Canonical(signedHeaders))
}

// Sign returns the lower-case hex HMAC-SHA256 of canonical keyed with secret.
func Sign(secret []byte, canonical string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks claimed against the signature computed for req. The signed
// header list is read from req.Headers. It fails closed on an empty secret,
// an empty claimed signature, or an empty signed-header list.
func Verify(secret string, req Request, claimed string) bool {
	if secret == "" {
		return false
	}
	signed := ParseSignedHeaders(lookup(req.Headers, HeaderSignedHeaders))
	return check([]byte(secret), req, signed, claimed) == nil
}

func check(secret []byte, req Request, signed []string, claimed string) error {
	if claimed == "" || len(signed) == 0 {
		return ErrMissingCredentials
	}
	expected := Sign(secret, req.Canonical(signed))
	if !constantTimeEqual(expected, claimed) {
		return ErrSignatureMismatch
	}
	return nil
}

// constantTimeEqual compares the full length of expected regardless of where
// or whether claimed differs, including when the lengths differ.
func constantTimeEqual(expected, claimed string) bool {
	buf := make([]byte, len(expected))
	copy(buf, claimed)
	same := subtle.ConstantTimeCompare([]byte(expected), buf)
	var le, lc [8]byte
	binary.BigEndian.PutUint64(le[:], uint64(len(expected)))
	binary.BigEndian.PutUint64(lc[:], uint64(len(claimed)))
	sameLen := subtle.ConstantTimeCompare(le[:], lc[:])
	return same&sameLen == 1
}
