package prompt

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

var (
	encoders   = map[string]*tiktoken.Tiktoken{}
	encodersMu sync.Mutex
)

// encoderFor returns the tiktoken encoding of model, falling back to
// cl100k_base for models tiktoken does not know.
func encoderFor(model string) (*tiktoken.Tiktoken, error) {
	encodersMu.Lock()
	defer encodersMu.Unlock()

	if enc, ok := encoders[model]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, err
		}
	}
	encoders[model] = enc
	return enc, nil
}

// Budget limits how much action history is sent with each prompt.
type Budget struct {
	maxTokens int
	count     func(string) int
}

// NewBudget creates a history budget of maxTokens counted for model. A
// maxTokens of zero or less disables trimming. When the encoding cannot be
// loaded, tokens are estimated at four bytes each.
func NewBudget(model string, maxTokens int) *Budget {
	b := &Budget{maxTokens: maxTokens, count: estimateTokens}
	if enc, err := encoderFor(model); err == nil {
		b.count = func(text string) int {
			return len(enc.Encode(text, nil, nil))
		}
	}
	return b
}

// Count returns the number of tokens in text.
func (b *Budget) Count(text string) int {
	return b.count(text)
}

// Trim keeps the newest history entries whose combined size fits the
// budget. Order is preserved; the oldest entries go first.
func (b *Budget) Trim(history []string) []string {
	if b == nil || b.maxTokens <= 0 {
		return history
	}

	used := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		n := b.count(history[i]) + 1
		if used+n > b.maxTokens {
			break
		}
		used += n
		start = i
	}
	return history[start:]
}

func estimateTokens(text string) int {
	// ~4 characters per token
	return (len(text) + 3) / 4
}
