package domain

import (
	"path"
	"time"

	"github.com/google/uuid"
)

type Document struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name,omitempty"`
	Description  string    `json:"description,omitempty"`
	UploadedDate time.Time `json:"uploaded_date"`
	Path         string    `json:"path,omitempty"`
}

// Filename is the last element of the stored path, or "" when nothing has
// been stored yet.
func (d Document) Filename() string {
	if d.Path == "" {
		return ""
	}
	return path.Base(d.Path)
}

// Label is the display name, falling back to the filename.
func (d Document) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Filename()
}

// TemporaryDocumentCollection groups uploads made before their proposal
// exists.
type TemporaryDocumentCollection struct {
	ID        uuid.UUID           `json:"id"`
	Created   time.Time           `json:"created"`
	Documents []TemporaryDocument `json:"documents,omitempty"`
}

func NewTemporaryDocumentCollection(created time.Time) TemporaryDocumentCollection {
	return TemporaryDocumentCollection{ID: uuid.New(), Created: created}
}

// Paths lists the stored object paths of every document in the collection.
func (c TemporaryDocumentCollection) Paths() []string {
	paths := make([]string, 0, len(c.Documents))
	for _, d := range c.Documents {
		if d.Path != "" {
			paths = append(paths, d.Path)
		}
	}
	return paths
}

type TemporaryDocument struct {
	Document
	CollectionID uuid.UUID `json:"temp_document_collection"`
}

// TemporaryPrefix is the object key prefix of uploads not yet attached to a
// proposal.
const TemporaryPrefix = "tmp/"

// TemporaryObjectKey is where an upload for collection id is stored.
func TemporaryObjectKey(id uuid.UUID, filename string) string {
	return TemporaryPrefix + path.Join(id.String(), path.Base(filename))
}
