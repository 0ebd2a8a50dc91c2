// Package aggregates declares the OKR write boundaries (objective, corporate
// objective) and the read-side stats contract, together with the coded error
// type every boundary returns. Implementations live in internal/data/aggregates.
package aggregates
