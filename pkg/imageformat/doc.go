// Package imageformat resolves image references stored on notifications into
// URLs a recipient's client can load, for a named size variant.
//
// Both formatters satisfy template.ImageFormatter:
//
//   - CDN rewrites relative references against a public base URL and adds a
//     preset query parameter for the size.
//   - S3 signs a short-lived GET URL for the pre-rendered object of that size.
//
// Absolute http(s) references are returned unchanged; empty references
// resolve to "".
package imageformat
