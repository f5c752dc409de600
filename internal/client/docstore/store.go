// Package docstore is the remote document database used by the remote
// persistence backend. Documents are JSON-shaped maps addressed by
// collection and id.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Document is a JSON object. Numbers decode as float64.
type Document map[string]any

// Update is a partial write. Set replaces top-level fields; Union appends
// the given values to array fields, skipping values already present.
type Update struct {
	Set   map[string]any
	Union map[string][]any
}

func (u Update) Empty() bool {
	return len(u.Set) == 0 && len(u.Union) == 0
}

// Store is implemented by MongoStore and PostgresStore.
type Store interface {
	// Get returns common.ErrNotFound when the document does not exist.
	Get(ctx context.Context, collection, id string) (Document, error)
	Set(ctx context.Context, collection, id string, doc Document) error
	// Update returns common.ErrNotFound when the document does not exist.
	Update(ctx context.Context, collection, id string, u Update) error
	List(ctx context.Context, collection string) ([]Document, error)
	Close(ctx context.Context) error
}

// Server-side fields stripped from documents on read.
const (
	fieldID        = "_id"
	fieldUpdatedAt = "updated_at"
)

// Open connects to the store named by dsn. The scheme selects the
// implementation. An empty dsn returns a nil Store and no error: remote
// persistence is simply not configured.
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case dsn == "":
		return nil, nil
	case strings.HasPrefix(dsn, "mongodb://"), strings.HasPrefix(dsn, "mongodb+srv://"):
		return OpenMongo(ctx, dsn)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported document store dsn scheme: %q", schemeOf(dsn))
	}
}

func schemeOf(dsn string) string {
	scheme, _, ok := strings.Cut(dsn, "://")
	if !ok {
		return ""
	}
	return scheme
}

// normalize converts v into plain JSON values so that documents compare
// equal regardless of their Go origin.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func strip(doc Document) Document {
	delete(doc, fieldID)
	delete(doc, fieldUpdatedAt)
	return doc
}
