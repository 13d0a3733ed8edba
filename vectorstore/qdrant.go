package vectorstore

import (
	"context"

	"github.com/qdrant/go-client/qdrant"
)

// Embedder turns text into a dense vector. The spec treats embedding as
// part of the retrieval backend's responsibility, not the core's.
type Embedder func(ctx context.Context, text string) ([]float32, error)

// QdrantStore is a Store backed by qdrant/go-client, grounded on the
// teacher's databases/qdrant.go Search/Upsert shape.
type QdrantStore struct {
	client *qdrant.Client
	embed  Embedder
}

// NewQdrantStore returns a Store dialing addr with embed used to vectorize
// query texts.
func NewQdrantStore(addr string, port int, embed Embedder) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{Host: addr, Port: port})
	if err != nil {
		return nil, &Error{Backend: "qdrant", Operation: "NewQdrantStore", Message: "connect failed", Err: err}
	}
	return &QdrantStore{client: client, embed: embed}, nil
}

func (s *QdrantStore) Query(ctx context.Context, texts []string, collection string, k int) ([][]Document, error) {
	results := make([][]Document, 0, len(texts))
	for _, text := range texts {
		vector, err := s.embed(ctx, text)
		if err != nil {
			return nil, &Error{Backend: "qdrant", Operation: "Query", Message: "embed failed", Err: err}
		}

		limit := uint64(k)
		points, err := s.client.GetPointsClient().Search(ctx, &qdrant.SearchPoints{
			CollectionName: collection,
			Vector:         vector,
			Limit:          limit,
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(false),
		})
		if err != nil {
			return nil, &Error{Backend: "qdrant", Operation: "Query", Message: "search failed", Err: err}
		}

		docs := make([]Document, 0, len(points.GetResult()))
		for _, p := range points.GetResult() {
			docs = append(docs, Document{
				Content:  payloadString(p.GetPayload(), "content"),
				Metadata: payloadMetadata(p.GetPayload()),
			})
		}
		results = append(results, docs)
	}
	return results, nil
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

func payloadMetadata(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if k == "content" {
			continue
		}
		out[k] = v.GetStringValue()
	}
	return out
}

// Upsert stores docs under collection, keyed by id, vectorized with embed.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, ids []string, docs []Document) error {
	points := make([]*qdrant.PointStruct, 0, len(docs))
	for i, doc := range docs {
		vector, err := s.embed(ctx, doc.Content)
		if err != nil {
			return &Error{Backend: "qdrant", Operation: "Upsert", Message: "embed failed", Err: err}
		}
		payload := map[string]*qdrant.Value{"content": qdrant.NewValueString(doc.Content)}
		for k, v := range doc.Metadata {
			if s, ok := v.(string); ok {
				payload[k] = qdrant.NewValueString(s)
			}
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(ids[i]),
			Vectors: qdrant.NewVectors(vector...),
			Payload: payload,
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	})
	if err != nil {
		return &Error{Backend: "qdrant", Operation: "Upsert", Message: "upsert failed", Err: err}
	}
	return nil
}
