package dbdriver

// Driver is the local key-value abstraction the item store, container
// store, and event log are built on (§9). collection groups keys the way a
// SQL table would; key identifies a row within it.
type Driver interface {
	Close() error

	Set(collection, key string, object interface{}) error
	Get(collection, key string, object interface{}) error

	SetString(collection, key, data string) error
	GetString(collection, key string) (string, error)

	Delete(collection, key string) error

	// List returns the full keys (collection-prefixed) matching pattern.
	// An empty pattern lists the whole collection.
	List(collection, pattern string) ([]string, error)

	// GetStringRaw fetches by a fully-qualified key as returned by List,
	// without re-applying the collection prefix.
	GetStringRaw(fullKey string) (string, error)

	DeleteCollection(collection string) error
}
