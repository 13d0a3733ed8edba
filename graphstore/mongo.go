package graphstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoGraphConfig names the collection and graph-traversal shape used by
// $graphLookup, the one graph-shaped query primitive available anywhere
// in the retrieved corpus (no dedicated graph database client exists
// there).
type MongoGraphConfig struct {
	Database          string
	Collection        string
	ConnectFromField   string
	ConnectToField     string
	StartWithField     string
	ContentField       string
	MaxDepth           int
}

// MongoGraphStore is a Store backed by go.mongodb.org/mongo-driver's
// $graphLookup aggregation stage.
type MongoGraphStore struct {
	client *mongo.Client
	cfg    MongoGraphConfig
}

// NewMongoGraphStore returns a Store using an already-connected client.
func NewMongoGraphStore(client *mongo.Client, cfg MongoGraphConfig) *MongoGraphStore {
	return &MongoGraphStore{client: client, cfg: cfg}
}

// QueryWithEmbeddings seeds the traversal by a full-text match of query
// against ContentField, then expands via $graphLookup up to MaxDepth
// hops. retrievalQuery, when non-empty, is applied server-side as an
// additional $match filter on the seed stage (spec §4.6's "an optional
// retrieval query template is applied server-side").
func (s *MongoGraphStore) QueryWithEmbeddings(ctx context.Context, query string, k int, retrievalQuery string) ([]Document, error) {
	coll := s.client.Database(s.cfg.Database).Collection(s.cfg.Collection)

	seedMatch := bson.M{"$text": bson.M{"$search": query}}
	if retrievalQuery != "" {
		seedMatch = bson.M{"$and": bson.A{seedMatch, bson.M{"$expr": retrievalQuery}}}
	}

	maxDepth := s.cfg.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 3
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: seedMatch}},
		{{Key: "$limit", Value: k}},
		{{Key: "$graphLookup", Value: bson.M{
			"from":             s.cfg.Collection,
			"startWith":        "$" + s.cfg.StartWithField,
			"connectFromField": s.cfg.ConnectFromField,
			"connectToField":   s.cfg.ConnectToField,
			"as":               "related",
			"maxDepth":         maxDepth,
		}}},
	}

	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, &Error{Backend: "mongo", Operation: "QueryWithEmbeddings", Message: "aggregate failed", Err: err}
	}
	defer cursor.Close(ctx)

	var docs []Document
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, &Error{Backend: "mongo", Operation: "QueryWithEmbeddings", Message: "decode failed", Err: err}
		}
		docs = append(docs, rawToDocument(raw, s.cfg.ContentField))
		if related, ok := raw["related"].(bson.A); ok {
			for _, r := range related {
				if rm, ok := r.(bson.M); ok {
					docs = append(docs, rawToDocument(rm, s.cfg.ContentField))
				}
			}
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, &Error{Backend: "mongo", Operation: "QueryWithEmbeddings", Message: "cursor error", Err: err}
	}
	return docs, nil
}

func rawToDocument(raw bson.M, contentField string) Document {
	content, _ := raw[contentField].(string)
	metadata := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == contentField || k == "related" || k == "_id" {
			continue
		}
		metadata[k] = v
	}
	return Document{Content: content, Metadata: metadata}
}
