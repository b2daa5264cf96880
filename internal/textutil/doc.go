// Package textutil provides text normalization and similarity helpers used
// by candidate scoring and deduplication.
package textutil
