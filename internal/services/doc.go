// Package services holds the business logic between the HTTP handlers and
// the dataset/analytics packages.
//
// PipelineService owns the one mutable piece of state in the process: the
// currently loaded dataset. Loads build a fully normalized replacement off to
// the side and swap it in under a write lock, so concurrent reads always see
// either the old dataset or the new one, never a half-built table. Every
// derivation runs against an immutable snapshot taken under a read lock.
package services
