package library

// Store exposes prebuilt document retrieval for HTTP handlers.
type Store interface {
	List() []Document
	FindByID(id string) (Document, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Document
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied documents.
func NewMemoryStore(items []Document) *MemoryStore {
	return &MemoryStore{items: append([]Document(nil), items...)}
}

// List returns document summaries without their bodies.
func (s *MemoryStore) List() []Document {
	out := make([]Document, len(s.items))
	for i, item := range s.items {
		item.Content = ""
		out[i] = item
	}
	return out
}

// FindByID looks up a document, body included.
func (s *MemoryStore) FindByID(id string) (Document, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Document{}, false
}
