// Package signature implements Contentful-style webhook request signing.
//
// A request is reduced to a canonical string:
//
//	METHOD\nPATH\nname1:value1;name2:value2\nBODY
//
// where the header block lists the headers named by X-Contentful-Signed-Headers,
// in that order, with lower-cased names and trimmed values. The signature is
// the lower-case hex HMAC-SHA256 of that string keyed with the shared secret,
// sent in X-Contentful-Signature.
//
// # Header Resolution
//
// Header names are matched case-insensitively. When a request carries the same
// header more than once, the first value wins. A signed header that is absent
// from the request contributes an empty value. A name listed twice in the
// signed-header list is emitted twice.
//
// # Failure Modes
//
// Verification never panics and never reports why a signature was rejected to
// the client. The only distinguishable failure is ErrMissingSecret, which
// indicates a deployment problem rather than a bad request.
package signature
