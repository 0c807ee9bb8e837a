// Package store defines the persistence interfaces for the engine's
// entities, plus shared transaction plumbing. Implementations live under
// internal/platform/postgres.
//
// Every store exposes a WithTx variant so services can compose multiple
// store operations into one transaction via RunInTransaction. The counting
// queries that guard idempotent side effects (passed-submission counts,
// review-item counts) are meant to be executed inside the same transaction
// as the write they guard.
package store
