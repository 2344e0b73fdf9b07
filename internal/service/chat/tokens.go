package chat

import (
	"context"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"github.com/sandevgo/cuuri/pkg/log"
)

const encodingName = "cl100k_base"

// TokenCounter estimates how many tokens a text costs.
type TokenCounter interface {
	Count(text string) int
}

type tiktokenCounter struct {
	tk *tiktoken.Tiktoken
}

func (c tiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.tk.Encode(text, nil, nil))
}

// EstimateCounter assumes four characters per token.
type EstimateCounter struct{}

func (EstimateCounter) Count(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// NewTokenCounter loads the cl100k_base encoding, falling back to
// EstimateCounter when it is unavailable.
func NewTokenCounter(ctx context.Context) TokenCounter {
	tk, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("tiktoken unavailable, using length estimate")
		return EstimateCounter{}
	}
	return tiktokenCounter{tk: tk}
}
