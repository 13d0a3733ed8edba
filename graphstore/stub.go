package graphstore

import "context"

// StubStore is a scriptable test double returning a fixed result set.
type StubStore struct {
	Results []Document
}

func (s *StubStore) QueryWithEmbeddings(_ context.Context, _ string, k int, _ string) ([]Document, error) {
	limit := k
	if limit > len(s.Results) {
		limit = len(s.Results)
	}
	return append([]Document(nil), s.Results[:limit]...), nil
}
