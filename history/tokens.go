package history

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// EstimateTokens estimates the prompt size of a formatted window. Used
// for diagnostics only; truncation stays message-count based. Falls
// back to a bytes/4 heuristic when the encoder is unavailable (e.g. no
// network to fetch the BPE ranks).
func EstimateTokens(turns []Turn) int {
	encOnce.Do(func() {
		t, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			enc = t
		}
	})

	total := 0
	for _, turn := range turns {
		if enc != nil {
			total += len(enc.Encode(turn.Text, nil, nil))
		} else {
			total += len(turn.Text) / 4
		}
	}
	return total
}
