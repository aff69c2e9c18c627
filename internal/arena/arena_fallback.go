//go:build !linux && !darwin

package arena

// mapAnon allocates the arena on the Go heap when anonymous mappings are not available.
func mapAnon(size int) ([]byte, func() error, error) {
	return make([]byte, size), func() error { return nil }, nil
}
