package badger

import (
	"fmt"

	"github.com/dgraph-io/badger/v2"
)

// dbVersion is the layout version of the keys written by this package.
const dbVersion = 1

var versionKey = []byte("kv:version")

// VersionError is returned when opening a database written with a layout
// version this package does not read.
type VersionError struct {
	Version   int
	Supported int
	Path      string
}

func (err VersionError) Error() string {
	return fmt.Sprintf("badger store: database at %q has version %d, only version %d is supported", err.Path, err.Version, err.Supported)
}

// stampVersion records dbVersion on a fresh database and rejects a
// database carrying any other version.
func stampVersion(db *badger.DB, path string) error {
	return db.Update(func(txn *badger.Txn) error {
		var version int
		err := getItem(txn, versionKey, &version)
		switch {
		case err == badger.ErrKeyNotFound:
			return setItem(txn, versionKey, dbVersion)
		case err != nil:
			return err
		case version != dbVersion:
			return VersionError{Version: version, Supported: dbVersion, Path: path}
		}
		return nil
	})
}
