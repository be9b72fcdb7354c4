// Package store persists viewer layout snapshots.
//
// Two backends implement [Store]:
//   - memory: process-local, for tests and the single-binary server
//   - mongo: MongoDB collection, for deployments that keep layouts across
//     restarts
//
// Records are identified by a random UUID assigned on save:
//
//	st, err := store.Open(ctx, store.Options{Backend: "memory"})
//	rec, err := st.Save(ctx, store.Record{Cluster: 42, Snapshot: snap})
//	got, err := st.Get(ctx, rec.ID)
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/toucan4life/gamemap/pkg/viewer"
)

// Sentinel errors for store operations.
var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("snapshot not found")

	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown store backend")
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
)

// Record is one stored snapshot.
type Record struct {
	ID        string          `json:"id" bson:"_id"`
	Cluster   int64           `json:"cluster" bson:"cluster"`
	Depth     int             `json:"depth" bson:"depth"`
	CreatedAt time.Time       `json:"created_at" bson:"created_at"`
	Snapshot  viewer.Snapshot `json:"snapshot" bson:"snapshot"`
}

// Store is the interface for snapshot storage backends.
type Store interface {
	// Save assigns an id and creation time to rec and stores it.
	Save(ctx context.Context, rec Record) (Record, error)

	// Get returns the record with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)

	// List returns up to limit records for cluster, newest first.
	// A limit of zero or less returns all of them.
	List(ctx context.Context, cluster int64, limit int) ([]Record, error)

	// Delete removes a record. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	Close(ctx context.Context) error
}

// Options selects and configures a backend.
type Options struct {
	Backend    string
	MongoURI   string
	Database   string
	Collection string
}

// Open returns the backend named by opts.Backend. An empty name selects
// the memory store.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendMongo:
		return NewMongoStore(ctx, opts.MongoURI, opts.Database, opts.Collection)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// stamp fills in the id and creation time of a record about to be saved.
func stamp(rec Record) Record {
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	return rec
}
