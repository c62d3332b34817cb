// Package fx provides pairwise exchange-rate lookup and conversion with a
// timed refresh from an injectable rate source.
package fx
