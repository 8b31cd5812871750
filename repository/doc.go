// Package repository provides a generic Bun repository usable on a database
// handle or inside a transaction: CRUD, row-locking reads, filtered lists,
// pagination, and dialect-aware upserts.
package repository
