package vectorstore

import (
	"context"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemStore is an embedded, in-memory Store backed by chromem-go —
// the test-friendly and single-process counterpart to QdrantStore.
type ChromemStore struct {
	db            *chromem.DB
	embeddingFunc chromem.EmbeddingFunc
}

// NewChromemStore returns a fresh embedded store using embeddingFunc to
// vectorize documents and queries.
func NewChromemStore(embeddingFunc chromem.EmbeddingFunc) *ChromemStore {
	return &ChromemStore{db: chromem.NewDB(), embeddingFunc: embeddingFunc}
}

func (s *ChromemStore) collection(name string) (*chromem.Collection, error) {
	col := s.db.GetCollection(name, s.embeddingFunc)
	if col != nil {
		return col, nil
	}
	return s.db.CreateCollection(name, nil, s.embeddingFunc)
}

// Upsert stores docs under collection, keyed by ids.
func (s *ChromemStore) Upsert(ctx context.Context, collection string, ids []string, docs []Document) error {
	col, err := s.collection(collection)
	if err != nil {
		return &Error{Backend: "chromem", Operation: "Upsert", Message: "create collection failed", Err: err}
	}
	chromemDocs := make([]chromem.Document, 0, len(docs))
	for i, doc := range docs {
		metadata := make(map[string]string, len(doc.Metadata))
		for k, v := range doc.Metadata {
			if s, ok := v.(string); ok {
				metadata[k] = s
			}
		}
		chromemDocs = append(chromemDocs, chromem.Document{
			ID:       ids[i],
			Content:  doc.Content,
			Metadata: metadata,
		})
	}
	if err := col.AddDocuments(ctx, chromemDocs, 1); err != nil {
		return &Error{Backend: "chromem", Operation: "Upsert", Message: "add documents failed", Err: err}
	}
	return nil
}

func (s *ChromemStore) Query(ctx context.Context, texts []string, collection string, k int) ([][]Document, error) {
	col, err := s.collection(collection)
	if err != nil {
		return nil, &Error{Backend: "chromem", Operation: "Query", Message: "collection lookup failed", Err: err}
	}

	results := make([][]Document, 0, len(texts))
	for _, text := range texts {
		limit := k
		if count := col.Count(); count < limit {
			limit = count
		}
		if limit == 0 {
			results = append(results, nil)
			continue
		}
		matches, err := col.Query(ctx, text, limit, nil, nil)
		if err != nil {
			return nil, &Error{Backend: "chromem", Operation: "Query", Message: "query failed", Err: err}
		}
		docs := make([]Document, 0, len(matches))
		for _, m := range matches {
			metadata := make(map[string]any, len(m.Metadata))
			for k, v := range m.Metadata {
				metadata[k] = v
			}
			docs = append(docs, Document{Content: m.Content, Metadata: metadata})
		}
		results = append(results, docs)
	}
	return results, nil
}
