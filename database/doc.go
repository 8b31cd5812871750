// Package database owns the ledger's Bun connection: connection management
// with health checks and reconnects, the global handle, versioned migrations
// driven by the model registry, foreign key constraints, SQL seed files, and
// classification of driver errors.
package database
