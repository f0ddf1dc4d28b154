package flowchart

import (
	"context"
	"errors"
)

// ErrDocumentNotFound is returned by Store.Load when nothing is saved
// under the requested id.
var ErrDocumentNotFound = errors.New("flowchart: document not found")

// Store defines the contract for persisting and retrieving documents.
// Implementations replace the whole document on Save.
type Store interface {
	Save(ctx context.Context, id string, doc *Document) error
	Load(ctx context.Context, id string) (*Document, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
}
