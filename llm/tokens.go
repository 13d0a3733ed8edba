package llm

import "github.com/pkoukk/tiktoken-go"

// EstimateTokens returns a local token-count estimate for text under
// encoding. None of this package's providers call it. Falls back to a
// conservative whitespace-based estimate if the named encoding cannot be
// loaded.
func EstimateTokens(encoding, text string) int {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return estimateByWhitespace(text)
	}
	return len(enc.Encode(text, nil, nil))
}

func estimateByWhitespace(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		isSpace := r == ' ' || r == '\t' || r == '\n' || r == '\r'
		if isSpace {
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return count
}
