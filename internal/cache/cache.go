// Package cache holds small in-process caches. The file store uses one as
// its id to file index; entries are hints and are always verified by the
// caller before use.
package cache

// Cache defines a generic string-keyed cache
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Purge drops every entry
	Purge()

	// Size returns the current number of items in the cache
	Size() int
}

// Nop is a Cache that stores nothing.
type Nop[T any] struct{}

func (Nop[T]) Get(string) (T, bool) {
	var zero T
	return zero, false
}
func (Nop[T]) Set(string, T)  {}
func (Nop[T]) Delete(string)  {}
func (Nop[T]) Purge()         {}
func (Nop[T]) Size() int      { return 0 }
