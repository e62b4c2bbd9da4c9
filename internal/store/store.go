package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeefy/recordchat/internal/models"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicateID = errors.New("duplicate record id")
)

// Store is the abstract interface for record persistence. Implementations
// can be in-memory (for tests) or backed by Mongo or SQLite.
type Store interface {
	// List returns every record ordered by ascending id.
	List(ctx context.Context) ([]models.Record, error)
	// Search returns up to limit records whose name or value contains q,
	// compared case-insensitively. q is matched literally.
	Search(ctx context.Context, q string, limit int) ([]models.Record, error)
	Get(ctx context.Context, id int64) (*models.Record, error)
	// Update replaces name and value of the record with rec.ID and returns
	// the stored result. It returns ErrNotFound when the id is absent.
	Update(ctx context.Context, rec models.Record) (*models.Record, error)
	Count(ctx context.Context) (int64, error)
	InsertMany(ctx context.Context, recs []models.Record) error
	DeleteAll(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Backend names accepted by Open.
const (
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend    string
	MongoURI   string
	SQLitePath string
}

// Open connects to the configured backend once. Use OpenWithRetry to
// tolerate a database that is still starting.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendMongo, "":
		st, err := NewMongo(ctx, opts.MongoURI)
		if err != nil {
			return nil, err
		}
		return st, nil
	case BackendSQLite:
		st, err := NewSQLite(ctx, opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		return st, nil
	case BackendMemory:
		return New()
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
