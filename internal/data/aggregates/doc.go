// Package aggregates contains infrastructure implementations of the OKR aggregate contracts.
//
// Implementations in this package compose table-level repos from internal/data/repos
// and own the transaction boundary for every write. A check-in, link, or freeze runs
// its audit write, key-result mutation, aggregation, rollup, and stats projection as
// one ordered pipeline inside a single transaction.
package aggregates
