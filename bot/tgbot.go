package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"Tasmeem/core"
	"Tasmeem/flow"
	"Tasmeem/lib/sl"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

type TgBot struct {
	conf       *core.Config
	api        *tgbotapi.BotAPI
	controller *flow.Controller
	log        *slog.Logger
	fileClient *http.Client
	quit       chan struct{}
}

func NewTgBot(conf *core.Config, log *slog.Logger) (*TgBot, error) {
	tgBot := &TgBot{
		conf: conf,
		log:  log.With(sl.Module("telegram")),
		fileClient: &http.Client{
			Timeout: time.Minute,
		},
		quit: make(chan struct{}),
	}

	api, err := tgbotapi.NewBotAPI(conf.TelegramApiKey)
	if err != nil {
		return nil, err
	}
	tgBot.api = api

	return tgBot, nil
}

// SetController sets the flow controller handling chat events
func (t *TgBot) SetController(controller *flow.Controller) {
	t.controller = controller
}

func (t *TgBot) Start() error {
	// Set up an update configuration
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	// Start listening for updates
	updates, err := t.api.GetUpdatesChan(u)
	if err != nil {
		return err
	}

	for {
		var update tgbotapi.Update
		select {
		case update = <-updates:
		case <-t.quit:
			return nil
		}
		if update.Message == nil {
			continue
		}

		incoming := update.Message
		if !incoming.Chat.IsPrivate() {
			continue
		}

		userId := strconv.FormatInt(incoming.Chat.ID, 10)

		if ref, ok := imageRef(incoming); ok {
			t.log.With(sl.User(userId)).Debug("incoming photo")
			go t.handlePhoto(incoming.Chat.ID, userId, ref)
			continue
		}

		if incoming.Text == "" {
			continue
		}

		logText := incoming.Text
		if len(logText) > 50 {
			logText = logText[:50] + "..."
		}
		t.log.With(sl.User(userId), slog.String("text", logText)).Debug("incoming message")

		go t.handleText(incoming.Chat.ID, userId, incoming.Text)
	}
}

func (t *TgBot) Stop() {
	close(t.quit)
}

// imageRef extracts the file id of an incoming image: the largest
// rendition of a photo, or a document with an image mime type.
func imageRef(message *tgbotapi.Message) (string, bool) {
	if message.Photo != nil && len(*message.Photo) > 0 {
		sizes := *message.Photo
		return sizes[len(sizes)-1].FileID, true
	}
	if message.Document != nil && strings.HasPrefix(message.Document.MimeType, "image/") {
		return message.Document.FileID, true
	}
	return "", false
}

func (t *TgBot) handleText(chatId int64, userId, text string) {
	t.controller.HandleText(context.Background(), userId, text, t.transport(chatId))
}

func (t *TgBot) handlePhoto(chatId int64, userId, ref string) {
	done := make(chan struct{})
	defer close(done)

	// keep the "uploading photo" indicator alive while the edit runs
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				t.sendChatAction(chatId, tgbotapi.ChatUploadPhoto)
			case <-done:
				return
			}
		}
	}()

	t.controller.HandlePhoto(context.Background(), userId, ref, t.transport(chatId))
}

func (t *TgBot) sendChatAction(chatId int64, action string) {
	msg := tgbotapi.NewChatAction(chatId, action)
	if _, err := t.api.Send(msg); err != nil {
		t.log.Error("sending chat action", sl.Err(err))
	}
}

func (t *TgBot) transport(chatId int64) flow.Transport {
	return &chatTransport{bot: t, chatId: chatId}
}

// chatTransport binds one chat to the controller's transport contract.
type chatTransport struct {
	bot    *TgBot
	chatId int64
}

func (c *chatTransport) Reply(text string) error {
	msg := tgbotapi.NewMessage(c.chatId, text)
	_, err := c.bot.api.Send(msg)
	return err
}

func (c *chatTransport) ReplyWithImage(image []byte, caption string) error {
	photo := tgbotapi.NewPhotoUpload(c.chatId, tgbotapi.FileBytes{
		Name:  "styled.png",
		Bytes: image,
	})
	photo.Caption = caption
	_, err := c.bot.api.Send(photo)
	return err
}

func (c *chatTransport) FetchImage(ctx context.Context, ref string) ([]byte, string, error) {
	fileURL, err := c.bot.api.GetFileDirectURL(ref)
	if err != nil {
		return nil, "", fmt.Errorf("resolving file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("making request: %w", err)
	}
	resp, err := c.bot.fileClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("downloading image: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.bot.log.Error("closing response body", sl.Err(err))
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("downloading image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading image: %w", err)
	}

	// Telegram serves files as octet-stream; sniff the real type
	return data, http.DetectContentType(data), nil
}
