package signature

import "strings"

// Request is the request-scoped input to signing and verification.
// Body must be the raw bytes as received; any re-encoding breaks the signature.
type Request struct {
	Method  string
	Path    string
	Headers HeaderSource
	Body    []byte
}

// CanonicalString renders the string that is signed:
//
//	METHOD\nPATH\nname1:value1;...;nameN:valueN\nBODY
//
// Names are lower-cased and trimmed; values are looked up case-insensitively
// and trimmed. A missing header yields an empty value. With no signed headers
// the header block is empty.
func CanonicalString(method, path string, headers HeaderSource, signedHeaders []string, body []byte) string {
	var b strings.Builder
	b.Grow(len(method) + len(path) + len(body) + 32*len(signedHeaders) + 3)

	b.WriteString(method)
	b.WriteByte('\n')
	b.WriteString(path)
	b.WriteByte('\n')
	for i, name := range signedHeaders {
		if i > 0 {
			b.WriteByte(';')
		}
		key := normalizeName(name)
		b.WriteString(key)
		b.WriteByte(':')
		b.WriteString(lookup(headers, key))
	}
	b.WriteByte('\n')
	b.Write(body)
	return b.String()
}

// Canonical renders the canonical string for r.
func (r Request) Canonical(signedHeaders []string) string {
	return CanonicalString(r.Method, r.Path, r.Headers, signedHeaders, r.Body)
}

func lookup(headers HeaderSource, name string) string {
	if headers == nil || name == "" {
		return ""
	}
	return strings.TrimSpace(headers.Get(name))
}
