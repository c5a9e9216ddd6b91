package signature

import (
	"net/http"
	"sort"
	"strings"
)

const (
	// HeaderSignature carries the hex HMAC-SHA256 of the canonical string.
	HeaderSignature = "X-Contentful-Signature"

	// HeaderSignedHeaders lists, comma separated, the headers covered by the signature.
	HeaderSignedHeaders = "X-Contentful-Signed-Headers"

	// HeaderTopic is informational; senders usually include it in the signed set.
	HeaderTopic = "X-Contentful-Topic"
)

// HeaderSource resolves a header value by name, ignoring case.
// Missing headers resolve to "".
type HeaderSource interface {
	Get(name string) string
}

// Headers is a case-insensitive header map keyed by lower-cased name.
type Headers map[string]string

// NewHeaders builds Headers from a plain map. If two keys differ only in
// case, the lexically smallest original key wins so the result does not
// depend on map iteration order.
func NewHeaders(m map[string]string) Headers {
	h := make(Headers, len(m))
	origin := make(map[string]string, len(m))
	for k, v := range m {
		key := normalizeName(k)
		if prev, ok := origin[key]; ok && prev < k {
			continue
		}
		origin[key] = k
		h[key] = v
	}
	return h
}

// FromHTTP builds Headers from net/http headers. For repeated headers the
// first value is kept. Keys set without canonicalization are folded in too,
// with the canonical spelling taking precedence.
func FromHTTP(header http.Header) Headers {
	h := make(Headers, len(header))
	var raw []string
	for k, values := range header {
		if len(values) == 0 {
			continue
		}
		if http.CanonicalHeaderKey(k) != k {
			raw = append(raw, k)
			continue
		}
		h[normalizeName(k)] = values[0]
	}
	sort.Strings(raw)
	for _, k := range raw {
		key := normalizeName(k)
		if _, exists := h[key]; !exists {
			h[key] = header[k][0]
		}
	}
	return h
}

// Get returns the value stored under name, matched case-insensitively.
func (h Headers) Get(name string) string {
	return h[normalizeName(name)]
}

// Set stores value under name, replacing any value with the same folded name.
func (h Headers) Set(name, value string) {
	h[normalizeName(name)] = value
}

// ParseSignedHeaders splits the X-Contentful-Signed-Headers value on commas
// and trims each entry. Order is preserved. Returns nil for a blank value.
func ParseSignedHeaders(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = strings.TrimSpace(p)
	}
	return names
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
