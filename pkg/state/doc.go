// Package state provides Storage backends for models.
//
// Store adapts any record Backend to the models.Storage contract:
//
//	models.Model -> Store (ids, JSON snapshot) -> Backend (Get/Put/Delete)
//
// Records are keyed by schema name and identity. MemoryBackend keeps them in
// process; the badgerstore subpackage persists them in BadgerDB. Backends own
// the record metadata: Version increases on every Put and UpdatedAt is stamped
// by the backend clock.
package state
