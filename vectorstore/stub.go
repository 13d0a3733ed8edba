package vectorstore

import "context"

// StubStore is a scriptable test double returning the same fixed result
// set for every query.
type StubStore struct {
	Results []Document
}

func (s *StubStore) Query(_ context.Context, texts []string, _ string, k int) ([][]Document, error) {
	limit := k
	if limit > len(s.Results) {
		limit = len(s.Results)
	}
	out := make([][]Document, len(texts))
	for i := range texts {
		out[i] = append([]Document(nil), s.Results[:limit]...)
	}
	return out, nil
}
