package dbdriver

import "github.com/cargohold/stationinv/cmn"

// NewErrNotFound wraps a missing collection/key pair into the shared
// cmn.Error taxonomy so callers never have to special-case buntdb.ErrNotFound.
func NewErrNotFound(collection, key string) *cmn.Error {
	return cmn.NewEntityNotFound(collection, key)
}
