// Package webpush delivers digests to browser push relays over HTTP.
//
// Each address in Message.To is a subscription URL. The JSON payload is
// POSTed once per attempt and signed with HMAC-SHA256 over
// "<timestamp>.<payload>" so the relay can verify it with VerifySignature.
// Retries are left to the scheduler.
//
// Status codes map to retry classes: 2xx succeeds, 404 and 410 mean the
// subscription is gone, other 4xx are permanent except 408, 425 and 429, and
// everything else (5xx, network errors, an open circuit) is transient.
package webpush
