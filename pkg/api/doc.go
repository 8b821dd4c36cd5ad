// Package api defines the request and response records that flow through the
// fetch engine.
//
// A Request describes one logical HTTP call. A Response is produced for every
// Request that enters the engine, either from a received HTTP response or,
// in batches, as a placeholder carrying the failure. Metadata travels with the
// request and is copied verbatim into the response so callers can correlate
// results when completion order differs from submission order.
package api
