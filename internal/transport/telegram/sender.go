package telegram

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sandevgo/cuuri/pkg/conv"
	"github.com/sandevgo/cuuri/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const maxTelegramMsgLen = 4000 // Safety margin below 4096

// messenger is the subset of *tele.Bot used for replies.
type messenger interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Delete(msg tele.Editable) error
}

type sender struct {
	api messenger
}

func newSender(api messenger) *sender {
	return &sender{api: api}
}

// sendMarkdown converts Markdown to Telegram HTML and sends it in chunks if needed.
func (s *sender) sendMarkdown(ctx context.Context, to tele.Recipient, md string) error {
	logger := log.FromCtx(ctx)
	html := strings.TrimSpace(conv.MarkdownToTelegramHTML([]byte(md)))
	if html == "" {
		return nil
	}

	for i, chunk := range conv.SplitHTML(html, maxTelegramMsgLen) {
		if _, err := s.api.Send(to, chunk, tele.ModeHTML); err != nil {
			logger.Error().Err(err).Int("chunk", i).Int("len", len(chunk)).Msg("failed to send telegram chunk")
			return err
		}
	}
	return nil
}

// sendPlain sends text without a parse mode.
func (s *sender) sendPlain(to tele.Recipient, text string) error {
	for _, chunk := range conv.SplitText(strings.TrimSpace(text), maxTelegramMsgLen) {
		if chunk == "" {
			continue
		}
		if _, err := s.api.Send(to, chunk, tele.NoPreview); err != nil {
			return err
		}
	}
	return nil
}

// replaceDraft sends the final answer and then removes the draft. When the
// answer cannot be delivered the draft is brought up to date and kept.
// Chunks sent before a failure stay in the chat.
func (s *sender) replaceDraft(ctx context.Context, draft *draftSink, to tele.Recipient, md string) error {
	logger := log.FromCtx(ctx)

	if strings.TrimSpace(md) != "" {
		err := s.sendMarkdown(ctx, to, md)
		if err != nil {
			logger.Warn().Err(err).Msg("formatted answer rejected, sending plain text")
			err = s.sendPlain(to, md)
		}
		if err != nil {
			if ferr := draft.flush(); ferr != nil {
				logger.Warn().Err(ferr).Msg("failed to update draft message")
			}
			return err
		}
	}

	if err := draft.discard(); err != nil {
		logger.Warn().Err(err).Msg("failed to delete draft message")
	}
	return nil
}

// draftSink shows a streaming answer as one plain-text message that is
// edited at most once per interval.
type draftSink struct {
	api      messenger
	to       tele.Recipient
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	text    strings.Builder
	shown   string
	draft   *tele.Message
	flushed time.Time
}

func newDraftSink(api messenger, to tele.Recipient, interval time.Duration) *draftSink {
	return &draftSink{api: api, to: to, interval: interval, now: time.Now}
}

func (d *draftSink) Receive(_ context.Context, fragment string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.text.WriteString(fragment)
	if d.draft != nil && d.now().Sub(d.flushed) < d.interval {
		return nil
	}
	return d.flushLocked()
}

func (d *draftSink) flushLocked() error {
	text := conv.Tail(strings.TrimSpace(d.text.String()), maxTelegramMsgLen)
	if text == "" || text == d.shown {
		return nil
	}

	var (
		msg *tele.Message
		err error
	)
	if d.draft == nil {
		msg, err = d.api.Send(d.to, text, tele.NoPreview)
	} else {
		msg, err = d.api.Edit(d.draft, text, tele.NoPreview)
	}
	d.flushed = d.now()
	if err != nil {
		return err
	}
	if msg != nil {
		d.draft = msg
	}
	d.shown = text
	return nil
}

// flush shows everything received so far, ignoring the interval.
func (d *draftSink) flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushLocked()
}

// discard removes the draft message, if one was sent.
func (d *draftSink) discard() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.draft == nil {
		return nil
	}
	err := d.api.Delete(d.draft)
	d.draft = nil
	return err
}
