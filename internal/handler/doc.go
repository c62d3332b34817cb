// Package handler implements the thin HTTP submission surface for the
// settlement layer. It decodes instructions, snapshots the ledger balance,
// and maps the result taxonomy onto HTTP statuses.
package handler
