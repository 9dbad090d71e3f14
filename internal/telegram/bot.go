// Package telegram runs a Telegram bot that diagnoses leaf photos sent to it.
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/cropdoc/internal/analysis"
	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/errors"
	"github.com/tphakala/cropdoc/internal/httpclient"
	"github.com/tphakala/cropdoc/internal/logger"
	"github.com/tphakala/cropdoc/internal/privacy"
)

const (
	pollTimeout   = 30 // seconds, long polling
	maxConcurrent = 4
	baseDelay     = time.Second
	maxDelay      = 15 * time.Second
	maxMessageLen = 4000
)

// API is the subset of *tgbotapi.BotAPI used by the bot.
type API interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Diagnoser analyzes an image. *analysis.Analyzer satisfies it.
type Diagnoser interface {
	Analyze(ctx context.Context, in analysis.Input) (analysis.Result, error)
}

// Bot answers photo messages with a diagnosis.
type Bot struct {
	api       API
	diagnoser Diagnoser
	client    *httpclient.Client
	allowed   map[int64]struct{}
	log       logger.Logger
}

// New connects to the Bot API with the configured token.
func New(settings conf.TelegramSettings, d Diagnoser, client *httpclient.Client) (*Bot, error) {
	if settings.Token == "" {
		return nil, errors.Newf("telegram token is empty").
			Component("telegram").
			Category(errors.CategoryConfiguration).
			Build()
	}

	api, err := tgbotapi.NewBotAPIWithClient(settings.Token, tgbotapi.APIEndpoint, client.StandardClient())
	if err != nil {
		return nil, errors.New(privacy.WrapError(err)).
			Component("telegram").
			Category(errors.CategoryIntegration).
			Context("operation", "get_me").
			Build()
	}
	api.Debug = settings.Debug

	b := NewWithAPI(api, d, client, settings.AllowedChats)
	b.log.Info("authorized", logger.String("bot", api.Self.UserName))
	return b, nil
}

// NewWithAPI creates a bot around an existing API client.
func NewWithAPI(api API, d Diagnoser, client *httpclient.Client, allowedChats []int64) *Bot {
	allowed := make(map[int64]struct{}, len(allowedChats))
	for _, id := range allowedChats {
		allowed[id] = struct{}{}
	}
	return &Bot{
		api:       api,
		diagnoser: d,
		client:    client,
		allowed:   allowed,
		log:       logger.Global().Module("telegram"),
	}
}

// Run polls for updates until ctx is cancelled. Updates are handled with
// bounded concurrency. Cancellation does not wait for an in-flight long poll;
// updates it returns afterwards are not acknowledged and Telegram delivers
// them again on the next start.
func (b *Bot) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	offset := 0
	delay := baseDelay
	for gctx.Err() == nil {
		u := tgbotapi.NewUpdate(offset)
		u.Timeout = pollTimeout

		updates, err := b.poll(gctx, u)
		if gctx.Err() != nil {
			break
		}
		if err != nil {
			b.log.Warn("polling error",
				logger.Error(privacy.WrapError(err)),
				logger.Duration("retry_in", delay))
			select {
			case <-gctx.Done():
			case <-time.After(delay):
			}
			delay = min(delay*2, maxDelay)
			continue
		}
		delay = baseDelay

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			g.Go(func() error {
				b.HandleUpdate(gctx, upd)
				return nil
			})
		}
	}

	_ = g.Wait()
	b.log.Info("polling stopped")
	return nil
}

// poll runs one long poll. The Bot API client has no context support, so the
// call is abandoned rather than interrupted when ctx ends.
func (b *Bot) poll(ctx context.Context, u tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	type result struct {
		updates []tgbotapi.Update
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		updates, err := b.api.GetUpdates(u)
		ch <- result{updates, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.updates, r.err
	}
}

// HandleUpdate processes one update.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID

	if !b.isAllowed(chatID) {
		b.log.Debug("ignoring message from chat not in allow list", logger.Int64("chat_id", chatID))
		b.send(chatID, "This bot is not enabled for this chat.")
		return
	}

	if msg.IsCommand() {
		b.handleCommand(chatID, msg.Command())
		return
	}

	fileID, name := imageFile(msg)
	if fileID == "" {
		b.send(chatID, "Send a photo of a single leaf to get a diagnosis.")
		return
	}

	b.send(chatID, "Photo received, analyzing...")
	b.send(chatID, b.diagnose(ctx, fileID, name))
}

func (b *Bot) handleCommand(chatID int64, command string) {
	switch command {
	case "start", "help":
		b.send(chatID, helpText)
	default:
		b.send(chatID, "Unknown command. Try /help.")
	}
}

const helpText = `Send a clear photo of one plant leaf and I will identify the crop and any disease, with treatment and prevention advice.

Commands:
/help - show this message`

func (b *Bot) isAllowed(chatID int64) bool {
	if len(b.allowed) == 0 {
		return true
	}
	_, ok := b.allowed[chatID]
	return ok
}

// imageFile picks the largest photo size, or an image document.
func imageFile(msg *tgbotapi.Message) (fileID, name string) {
	if n := len(msg.Photo); n > 0 {
		best := msg.Photo[n-1]
		for _, p := range msg.Photo {
			if p.FileSize > best.FileSize {
				best = p
			}
		}
		return best.FileID, "photo.jpg"
	}
	if d := msg.Document; d != nil && strings.HasPrefix(d.MimeType, "image/") {
		return d.FileID, d.FileName
	}
	return "", ""
}

// diagnose downloads and analyzes a file and returns the reply text.
func (b *Bot) diagnose(ctx context.Context, fileID, name string) string {
	image, err := b.download(ctx, fileID)
	if err != nil {
		b.log.Error("download failed", logger.Error(privacy.WrapError(err)))
		return "Could not download the photo, please try again."
	}

	res, err := b.diagnoser.Analyze(ctx, analysis.Input{
		Image:  image,
		Name:   name,
		Source: analysis.SourceTelegram,
	})
	switch {
	case errors.IsCategory(err, errors.CategoryImageDecode):
		return "That file is not a supported image. Please send a JPEG or PNG photo."
	case err != nil:
		b.log.Warn("analysis failed", logger.Error(err))
		return "Analysis failed, please try again later."
	}
	return FormatResult(res)
}

func (b *Bot) download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, analysis.MaxImageSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > analysis.MaxImageSize {
		return nil, fmt.Errorf("file exceeds %d bytes", analysis.MaxImageSize)
	}
	return data, nil
}

func (b *Bot) send(chatID int64, text string) {
	if len(text) > maxMessageLen {
		text = text[:maxMessageLen] + "..."
	}
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.log.Warn("send failed",
			logger.Int64("chat_id", chatID),
			logger.Error(privacy.WrapError(err)))
	}
}
