package signature

import (
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "topsecret"
	testBody   = `{"id":1}`

	// HMAC-SHA256("topsecret", "POST\n/\nx-contentful-topic:ContentManagement.Entry.publish;content-type:application/json\n{\"id\":1}")
	testDigest = "48135c7aa8715c7c3b6e03f5e3cd9523144e9dbcaaf5708aa78cc331f2080195"

	// HMAC-SHA256("topsecret", "POST\n/\n\n{\"id\":1}")
	emptyHeadersDigest = "28b9b627d83b23b52864af9e29df595c8973d87ee953c7ebb1952c37828cc686"
)

func testRequest(sig string) Request {
	h := NewHeaders(map[string]string{
		"X-Contentful-Topic":          "ContentManagement.Entry.publish",
		"Content-Type":                "application/json",
		"X-Contentful-Signed-Headers": "X-Contentful-Topic,Content-Type",
	})
	if sig != "" {
		h.Set(HeaderSignature, sig)
	}
	return Request{Method: "POST", Path: "/", Headers: h, Body: []byte(testBody)}
}

func TestSignKnownVector(t *testing.T) {
	req := testRequest("")
	canonical := req.Canonical([]string{"X-Contentful-Topic", "Content-Type"})
	require.Equal(t, "POST\n/\nx-contentful-topic:ContentManagement.Entry.publish;content-type:application/json\n{\"id\":1}", canonical)

	sig := Sign([]byte(testSecret), canonical)
	assert.Equal(t, testDigest, sig)
	assert.Len(t, sig, 64)
	assert.Equal(t, strings.ToLower(sig), sig)

	assert.Equal(t, emptyHeadersDigest, Sign([]byte(testSecret), "POST\n/\n\n"+testBody))
}

func TestVerifyKnownVector(t *testing.T) {
	req := testRequest("")
	assert.True(t, Verify(testSecret, req, testDigest))

	v, err := NewVerifier(testSecret)
	require.NoError(t, err)
	assert.True(t, v.Verify(testRequest(testDigest)))
	assert.NoError(t, v.Check(testRequest(testDigest)))
}

func TestVerifyRejectsEverySingleCharacterMutation(t *testing.T) {
	req := testRequest("")
	for i := 0; i < len(testDigest); i++ {
		mutated := []byte(testDigest)
		if mutated[i] == '0' {
			mutated[i] = '1'
		} else {
			mutated[i] = '0'
		}
		assert.False(t, Verify(testSecret, req, string(mutated)), "position %d", i)
	}
}

func TestVerifyRejectsUpperCaseHex(t *testing.T) {
	assert.False(t, Verify(testSecret, testRequest(""), strings.ToUpper(testDigest)))
}

func TestVerifyRejectsLengthMismatch(t *testing.T) {
	req := testRequest("")
	assert.False(t, Verify(testSecret, req, testDigest[:63]))
	assert.False(t, Verify(testSecret, req, testDigest+"0"))
	assert.False(t, Verify(testSecret, req, testDigest+testDigest))
	assert.False(t, Verify(testSecret, req, "sha256="+testDigest))
}

func TestVerifyRejectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		mutate func(*Request)
	}{
		{name: "body", secret: testSecret, mutate: func(r *Request) { r.Body = []byte(`{"id":3}`) }},
		{name: "body trailing whitespace", secret: testSecret, mutate: func(r *Request) { r.Body = []byte(testBody + " ") }},
		{name: "path", secret: testSecret, mutate: func(r *Request) { r.Path = "/x" }},
		{name: "method", secret: testSecret, mutate: func(r *Request) { r.Method = "PUT" }},
		{name: "signed header value", secret: testSecret, mutate: func(r *Request) {
			r.Headers.(Headers).Set("X-Contentful-Topic", "ContentManagement.Entry.unpublish")
		}},
		{name: "signed header order", secret: testSecret, mutate: func(r *Request) {
			r.Headers.(Headers).Set(HeaderSignedHeaders, "Content-Type,X-Contentful-Topic")
		}},
		{name: "secret", secret: "topsecreu", mutate: func(*Request) {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest("")
			tt.mutate(&req)
			assert.False(t, Verify(tt.secret, req, testDigest))
		})
	}
}

func TestVerifyIgnoresUnsignedHeaders(t *testing.T) {
	req := testRequest("")
	req.Headers.(Headers).Set("X-Unsigned", "anything")
	assert.True(t, Verify(testSecret, req, testDigest))
}

func TestVerifierCheckErrors(t *testing.T) {
	v, err := NewVerifier(testSecret)
	require.NoError(t, err)

	noSig := testRequest("")
	assert.ErrorIs(t, v.Check(noSig), ErrMissingCredentials)

	noSigned := testRequest(testDigest)
	delete(noSigned.Headers.(Headers), "x-contentful-signed-headers")
	assert.ErrorIs(t, v.Check(noSigned), ErrMissingCredentials)

	blankSigned := testRequest(testDigest)
	blankSigned.Headers.(Headers).Set(HeaderSignedHeaders, "  ")
	assert.ErrorIs(t, v.Check(blankSigned), ErrMissingCredentials)

	bad := testRequest(strings.Repeat("0", 64))
	assert.ErrorIs(t, v.Check(bad), ErrSignatureMismatch)

	var nilVerifier *Verifier
	assert.ErrorIs(t, nilVerifier.Check(testRequest(testDigest)), ErrMissingSecret)
	assert.False(t, nilVerifier.Verify(testRequest(testDigest)))
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	v, err := NewVerifier("")
	assert.Nil(t, v)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestVerifyFailsClosed(t *testing.T) {
	req := testRequest("")
	assert.False(t, Verify("", req, testDigest), "empty secret")
	assert.False(t, Verify(testSecret, req, ""), "empty signature")

	noSigned := testRequest("")
	delete(noSigned.Headers.(Headers), "x-contentful-signed-headers")
	assert.False(t, Verify(testSecret, noSigned, testDigest), "missing signed headers")

	assert.False(t, Verify(testSecret, Request{}, testDigest), "zero request")
}

func TestVerifyToleratesInvalidUTF8(t *testing.T) {
	req := testRequest("")
	req.Headers.(Headers).Set("X-Contentful-Topic", "\xff\xfe")
	req.Body = []byte{0xc3, 0x28}
	assert.False(t, Verify(testSecret, req, testDigest))
	assert.False(t, Verify(testSecret, req, "\xff"))
}

func TestVerifyIdempotent(t *testing.T) {
	req := testRequest("")
	first := Verify(testSecret, req, testDigest)
	second := Verify(testSecret, req, testDigest)
	assert.Equal(t, first, second)
	assert.True(t, first)
	assert.Equal(t, testBody, string(req.Body))
}

func TestVerifierSignRoundTrip(t *testing.T) {
	v, err := NewVerifier("another-secret")
	require.NoError(t, err)

	h := http.Header{}
	h.Set("Content-Type", "application/vnd.contentful.management.v1+json")
	h.Set("X-Contentful-Topic", "ContentManagement.Asset.archive")
	req := Request{Method: "POST", Path: "/hooks/cf", Headers: FromHTTP(h), Body: []byte(`{"sys":{}}`)}

	signed := []string{"x-contentful-topic", "content-type"}
	sig := v.Sign(req, signed)

	req.Headers.(Headers).Set(HeaderSignature, sig)
	req.Headers.(Headers).Set(HeaderSignedHeaders, strings.Join(signed, ","))
	assert.True(t, v.Verify(req))
}

func TestVerifyAbsentSignedHeader(t *testing.T) {
	// A signed-headers value naming a missing header still signs an entry.
	h := NewHeaders(map[string]string{HeaderSignedHeaders: "x-absent"})
	req := Request{Method: "POST", Path: "/", Headers: h, Body: []byte(testBody)}
	sig := Sign([]byte(testSecret), "POST\n/\nx-absent:\n"+testBody)
	assert.True(t, Verify(testSecret, req, sig))
}

func TestVerifierConcurrent(t *testing.T) {
	v, err := NewVerifier(testSecret)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]bool, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sig := testDigest
			if i%2 == 1 {
				sig = strings.Repeat("f", 64)
			}
			results[i] = v.Verify(testRequest(sig))
		}(i)
	}
	wg.Wait()

	for i, ok := range results {
		assert.Equal(t, i%2 == 0, ok, "goroutine %d", i)
	}
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, constantTimeEqual("abc", "abc"))
	assert.False(t, constantTimeEqual("abc", "abd"))
	assert.False(t, constantTimeEqual("abc", "ab"))
	assert.False(t, constantTimeEqual("abc", "abcd"))
	assert.False(t, constantTimeEqual("abc", ""))
	assert.True(t, constantTimeEqual("", ""))
}
