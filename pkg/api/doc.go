// Package api is the HTTP surface of notifykit: event ingest, recipient
// management, integration status, in-app inbox reads and the failure log.
//
// Every response uses the same JSON envelope:
//
//	{"data": ..., "error": {"code": "...", "message": "...", "details": {...}}}
//
// Domain errors map onto status codes in one place (writeError): validation
// errors become 422 with per-field details, missing aggregates 404, version
// and transition conflicts 409.
//
// Dependencies are optional; routes whose dependency is missing are not
// mounted.
package api
