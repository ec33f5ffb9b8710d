package snapshot

import (
	"context"

	errs "github.com/matzehuels/esmstat/pkg/errors"
)

// Backend names accepted by [Open].
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Options selects and configures a store backend.
type Options struct {
	Backend       string // file (default), sqlite or mongo
	Dir           string // file: snapshot directory
	SQLitePath    string // sqlite: database file
	MongoURI      string // mongo: connection string
	MongoDatabase string // mongo: database name
}

// Open returns the store named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		return NewFileStore(opts.Dir)
	case BackendSQLite:
		return OpenSQLite(ctx, opts.SQLitePath)
	case BackendMongo:
		return OpenMongo(ctx, opts.MongoURI, opts.MongoDatabase)
	default:
		return nil, errs.New(errs.ErrCodeInvalidConfig, "unknown store backend %q", opts.Backend)
	}
}
