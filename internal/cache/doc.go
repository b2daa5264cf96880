// Package cache persists discovery results, retrieved audio, extracted
// features, and lyric payloads in a SQLite database under the cache
// directory. Keys are derived from the normalized query text so repeated
// requests hit the same rows regardless of casing, accents, or punctuation.
package cache
