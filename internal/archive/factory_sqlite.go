//go:build sqlite

package archive

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}
