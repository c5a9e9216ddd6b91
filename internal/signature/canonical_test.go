package signature

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalString(t *testing.T) {
	headers := NewHeaders(map[string]string{
		"X-Contentful-Topic": "ContentManagement.Entry.publish",
		"Content-Type":       "application/json",
	})

	tests := []struct {
		name   string
		method string
		path   string
		signed []string
		body   string
		want   string
	}{
		{
			name:   "topic and content type",
			method: "POST",
			path:   "/",
			signed: []string{"X-Contentful-Topic", "Content-Type"},
			body:   `{"id":1}`,
			want:   "POST\n/\nx-contentful-topic:ContentManagement.Entry.publish;content-type:application/json\n{\"id\":1}",
		},
		{
			name:   "no signed headers leaves empty block",
			method: "POST",
			path:   "/",
			signed: nil,
			body:   `{"id":1}`,
			want:   "POST\n/\n\n{\"id\":1}",
		},
		{
			name:   "missing header contributes empty value",
			method: "POST",
			path:   "/hooks",
			signed: []string{"X-Missing", "content-type"},
			body:   "",
			want:   "POST\n/hooks\nx-missing:;content-type:application/json\n",
		},
		{
			name:   "names are trimmed and lower-cased",
			method: "PUT",
			path:   "/a?b=c",
			signed: []string{"  CONTENT-TYPE  "},
			body:   "x",
			want:   "PUT\n/a?b=c\ncontent-type:application/json\nx",
		},
		{
			name:   "duplicate names are emitted per occurrence",
			method: "POST",
			path:   "/",
			signed: []string{"Content-Type", "content-type"},
			body:   "",
			want:   "POST\n/\ncontent-type:application/json;content-type:application/json\n",
		},
		{
			name:   "body whitespace is preserved",
			method: "POST",
			path:   "/",
			signed: []string{"content-type"},
			body:   "  {}\n",
			want:   "POST\n/\ncontent-type:application/json\n  {}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanonicalString(tt.method, tt.path, headers, tt.signed, []byte(tt.body))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalStringTrimsValues(t *testing.T) {
	h := http.Header{}
	h.Set("X-Contentful-Topic", "  ContentManagement.Entry.publish \t")

	got := CanonicalString("POST", "/", h, []string{"x-contentful-topic"}, nil)
	assert.Equal(t, "POST\n/\nx-contentful-topic:ContentManagement.Entry.publish\n", got)
}

func TestCanonicalStringNilHeaders(t *testing.T) {
	got := CanonicalString("POST", "/", nil, []string{"a", "b"}, []byte("z"))
	assert.Equal(t, "POST\n/\na:;b:\nz", got)
}

func TestCanonicalStringOrderSensitive(t *testing.T) {
	headers := NewHeaders(map[string]string{"A": "1", "B": "2"})

	ab := CanonicalString("POST", "/", headers, []string{"a", "b"}, nil)
	ba := CanonicalString("POST", "/", headers, []string{"b", "a"}, nil)
	assert.NotEqual(t, ab, ba)

	// Entries that fold to the same name are interchangeable.
	upper := CanonicalString("POST", "/", headers, []string{"A", "a"}, nil)
	lower := CanonicalString("POST", "/", headers, []string{"a", "A"}, nil)
	assert.Equal(t, upper, lower)
}

func TestParseSignedHeaders(t *testing.T) {
	tests := []struct {
		value string
		want  []string
	}{
		{value: "X-Contentful-Topic,Content-Type", want: []string{"X-Contentful-Topic", "Content-Type"}},
		{value: " a , b ,c ", want: []string{"a", "b", "c"}},
		{value: "single", want: []string{"single"}},
		{value: "", want: nil},
		{value: "   ", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSignedHeaders(tt.value))
		})
	}
}

func TestHeadersCaseInsensitive(t *testing.T) {
	h := NewHeaders(map[string]string{"Content-Type": "application/json"})
	assert.Equal(t, "application/json", h.Get("content-type"))
	assert.Equal(t, "application/json", h.Get("CONTENT-TYPE"))
	assert.Equal(t, "", h.Get("x-missing"))

	h.Set("X-Extra", "1")
	assert.Equal(t, "1", h.Get("x-extra"))
}

func TestNewHeadersFoldedKeysDeterministic(t *testing.T) {
	for i := 0; i < 20; i++ {
		h := NewHeaders(map[string]string{"X-A": "upper", "x-a": "lower"})
		require.Equal(t, "upper", h.Get("x-a"))
	}
}

func TestFromHTTPFirstValueWins(t *testing.T) {
	header := http.Header{}
	header.Add("X-Contentful-Topic", "first")
	header.Add("X-Contentful-Topic", "second")
	header["x-raw-key"] = []string{"raw"}
	header["Content-Type"] = []string{"canonical"}
	header["content-type"] = []string{"raw"}

	h := FromHTTP(header)
	assert.Equal(t, "first", h.Get("x-contentful-topic"))
	assert.Equal(t, "raw", h.Get("X-Raw-Key"))
	assert.Equal(t, "canonical", h.Get("content-type"))
}
