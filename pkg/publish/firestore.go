package publish

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
)

// Firestore records published assets in a collection, one document per ID.
type Firestore struct {
	col *firestore.CollectionRef
}

// NewFirestore returns an indexer writing to collection.
func NewFirestore(client *firestore.Client, collection string) (*Firestore, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection must be provided")
	}
	return &Firestore{col: client.Collection(collection)}, nil
}

// Index creates or replaces the document for a.
func (f *Firestore) Index(ctx context.Context, a Asset) error {
	if _, err := f.col.Doc(a.ID).Set(ctx, a); err != nil {
		return fmt.Errorf("set %s: %w", a.ID, err)
	}
	return nil
}
