// Package engine is the ledger's transactional core: it validates and applies
// transfers atomically under per-account locks, appends each committed
// transfer to the log, and answers balance queries. Storage is reached only
// through the UnitOfWork contract.
package engine
