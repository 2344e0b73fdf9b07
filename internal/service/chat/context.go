package chat

import (
	"github.com/sandevgo/cuuri/internal/core"
)

const (
	// per-message framing overhead of the chat format
	messageOverhead = 4
	// flat cost of a low-detail image
	imageTokens = 85
)

// ContextBudget bounds the history sent with a request. Zero values mean
// unbounded.
type ContextBudget struct {
	MaxExchanges int
	MaxTokens    int
}

// BuildContext renders history as alternating user/assistant messages and
// appends the new user message. N exchanges yield 2N+1 messages.
func BuildContext(history []core.Exchange, input core.UserInput) []core.ContextMessage {
	messages := make([]core.ContextMessage, 0, 2*len(history)+1)
	for _, ex := range history {
		messages = append(messages,
			core.ContextMessage{Role: core.RoleUser, Parts: []core.ContentPart{core.TextPart(ex.Question)}},
			core.ContextMessage{Role: core.RoleAssistant, Parts: []core.ContentPart{core.TextPart(ex.Answer)}},
		)
	}

	parts := make([]core.ContentPart, 0, 1+len(input.Images))
	parts = append(parts, core.TextPart(input.Text))
	for _, img := range input.Images {
		parts = append(parts, core.ImagePart(img.DataURL()))
	}
	return append(messages, core.ContextMessage{Role: core.RoleUser, Parts: parts})
}

// TrimHistory drops whole exchanges from the oldest end until the context
// fits the budget. The new input is always kept, even when it alone is over
// budget.
func TrimHistory(history []core.Exchange, input core.UserInput, budget ContextBudget, counter TokenCounter) []core.Exchange {
	if budget.MaxExchanges > 0 && len(history) > budget.MaxExchanges {
		history = history[len(history)-budget.MaxExchanges:]
	}
	if budget.MaxTokens <= 0 || counter == nil {
		return history
	}

	total := inputTokens(input, counter)
	costs := make([]int, len(history))
	for i, ex := range history {
		costs[i] = exchangeTokens(ex, counter)
		total += costs[i]
	}

	start := 0
	for start < len(history) && total > budget.MaxTokens {
		total -= costs[start]
		start++
	}
	return history[start:]
}

func exchangeTokens(ex core.Exchange, counter TokenCounter) int {
	return 2*messageOverhead + counter.Count(ex.Question) + counter.Count(ex.Answer)
}

func inputTokens(input core.UserInput, counter TokenCounter) int {
	return messageOverhead + counter.Count(input.Text) + imageTokens*len(input.Images)
}
