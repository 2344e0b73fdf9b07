package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/cuuri/internal/config"
	"github.com/sandevgo/cuuri/internal/core"
	"github.com/sandevgo/cuuri/internal/service/chat"
	"github.com/sandevgo/cuuri/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const (
	baseContextKey = "base_context"
	defaultCaption = "What is in this image?"
)

type Bot struct {
	bot      *tele.Bot
	cfg      *config.TelegramConfig
	chat     core.Submitter
	provider core.ProviderConfig
	sender   *sender
	ownerID  int64

	mu       sync.Mutex
	sessions map[int64]string
}

func NewBot(
	ctx context.Context,
	cfg *config.TelegramConfig,
	provider core.ProviderConfig,
	svc core.Submitter,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:      b,
		cfg:      cfg,
		chat:     svc,
		provider: provider,
		sender:   newSender(b),
		ownerID:  cfg.OwnerID,
		sessions: make(map[int64]string),
	}

	// Use context from Signal with logger
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})

	// Middleware: Only allow the owner
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Sender() == nil || c.Sender().ID != bot.ownerID {
				return nil // Ignore unauthorized users
			}
			return next(c)
		}
	})

	b.Handle("/new", bot.handleNew)
	b.Handle("/session", bot.handleSession)
	b.Handle(tele.OnText, bot.handleMessage)
	b.Handle(tele.OnPhoto, bot.handlePhoto)

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

// session returns the active session of a chat. Chats start on a stable
// id so history survives restarts until /new is used.
func (b *Bot) session(chatID int64) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id, ok := b.sessions[chatID]; ok {
		return id
	}
	return fmt.Sprintf("telegram-%d", chatID)
}

func (b *Bot) resetSession(chatID int64) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := fmt.Sprintf("telegram-%d-%s", chatID, uuid.NewString())
	b.sessions[chatID] = id
	return id
}

func (b *Bot) handleNew(c tele.Context) error {
	id := b.resetSession(c.Chat().ID)
	return c.Send("Started a new conversation: " + id)
}

func (b *Bot) handleSession(c tele.Context) error {
	return c.Send(b.session(c.Chat().ID))
}

func (b *Bot) handleMessage(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	return b.reply(ctx, c, c.Text(), nil)
}

func (b *Bot) handlePhoto(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	logger := log.FromCtx(ctx)

	photo := c.Message().Photo
	rc, err := b.bot.File(&photo.File)
	if err != nil {
		logger.Error().Err(err).Msg("failed to download telegram photo")
		return c.Send("Could not download the photo.")
	}
	defer rc.Close()

	img, err := chat.ReadImage(rc)
	switch {
	case errors.Is(err, chat.ErrImageTooLarge):
		logger.Warn().Err(err).Msg("rejected telegram photo")
		return c.Send("That photo is too large.")
	case errors.Is(err, chat.ErrNotImage):
		logger.Warn().Err(err).Msg("rejected telegram photo")
		return c.Send("That file is not an image I can read.")
	case err != nil:
		logger.Error().Err(err).Msg("failed to download telegram photo")
		return c.Send("Could not download the photo.")
	}

	caption := c.Message().Caption
	if caption == "" {
		caption = defaultCaption
	}
	return b.reply(ctx, c, caption, []core.Image{img})
}

func (b *Bot) reply(ctx context.Context, c tele.Context, text string, images []core.Image) error {
	logger := log.FromCtx(ctx)
	_ = c.Notify(tele.Typing)

	draft := newDraftSink(b.bot, c.Chat(), b.cfg.EditInterval)
	answer, err := b.chat.Submit(ctx, core.SubmitRequest{
		SessionID:  b.session(c.Chat().ID),
		Text:       text,
		Images:     images,
		Model:      b.provider.GetModel(),
		Credential: b.provider.GetAPIKey(),
	}, draft)

	if errors.Is(err, chat.ErrStreamInterrupted) {
		// the partial draft stays visible
		if ferr := draft.flush(); ferr != nil {
			logger.Warn().Err(ferr).Msg("failed to update draft message")
		}
		return c.Send(describeError(err))
	}

	if serr := b.sender.replaceDraft(ctx, draft, c.Chat(), answer.Text); serr != nil {
		logger.Error().Err(serr).Msg("failed to send answer")
	}
	if err != nil {
		return c.Send(describeError(err))
	}
	return nil
}

func describeError(err error) string {
	var chatErr *chat.Error
	if !errors.As(err, &chatErr) {
		return "error: " + err.Error()
	}
	switch chatErr.Kind {
	case chat.KindPersistenceFailed:
		return "⚠️ The answer above was not saved to history."
	case chat.KindStreamInterrupted:
		return "⚠️ The answer was interrupted and not saved."
	case chat.KindHistoryFetchFailed:
		return "⚠️ Could not load the conversation history."
	default:
		return fmt.Sprintf("⚠️ Request failed: %v", chatErr.Err)
	}
}
