// Package webhook serves HTTP endpoints that accept Contentful-signed webhook
// deliveries.
//
// Every endpoint is guarded by RequireSignature, which recomputes the
// request signature with package signature and compares it in constant time.
//
// # Request Flow
//
//  1. HTTP POST arrives at a configured path
//  2. Body read once, bounded by max_body_size (413 if larger)
//  3. Canonical string built from method, request target, the headers named
//     in X-Contentful-Signed-Headers, and the raw body
//  4. HMAC-SHA256 compared against X-Contentful-Signature
//  5. Verified delivery recorded in the delivery log
//  6. 200 OK returned with delivery_id
//
// # Error Responses
//
// - 403 Forbidden: missing or invalid signature (no details)
// - 404 Not Found: unknown path
// - 413 Payload Too Large: body exceeds max_body_size
// - 500 Internal Server Error: no signing secret configured, or recording failed
//
// # Example Usage
//
//	cfg := webhook.Config{
//		Listen: "127.0.0.1:8080",
//		Endpoints: []webhook.EndpointConfig{
//			{Path: "/", Secret: os.Getenv("CONTENTFUL_SIGNING_SECRET")},
//		},
//	}
//
//	server := webhook.New(cfg, store, logger)
//	if err := server.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package webhook
