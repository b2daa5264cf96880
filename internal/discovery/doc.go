// Package discovery fans a free-text music query out to the configured
// provider adapters, normalizes their failures into a provider trace, and
// reduces the aggregate into a scored, deduplicated candidate list with a
// single selected best match.
package discovery
