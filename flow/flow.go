package flow

import (
	"context"
	"log/slog"

	"Tasmeem/ai"
	"Tasmeem/catalog"
	"Tasmeem/lib/sl"
	"Tasmeem/session"
	"Tasmeem/storage"

	"github.com/google/uuid"
)

// Transport is what the controller needs from the chat side: sending
// replies to the user behind one event, and pulling image bytes by the
// reference the event carried.
type Transport interface {
	Reply(text string) error
	ReplyWithImage(image []byte, caption string) error
	FetchImage(ctx context.Context, ref string) ([]byte, string, error)
}

// Controller turns chat events into catalog lookups, session moves and
// provider calls. One instance serves all users.
type Controller struct {
	catalog  *catalog.Cache
	sessions *session.Store
	seen     storage.SeenStore
	gateways map[catalog.Provider]ai.Gateway
	log      *slog.Logger
}

func NewController(
	cache *catalog.Cache,
	sessions *session.Store,
	seen storage.SeenStore,
	gateways map[catalog.Provider]ai.Gateway,
	log *slog.Logger,
) *Controller {
	return &Controller{
		catalog:  cache,
		sessions: sessions,
		seen:     seen,
		gateways: gateways,
		log:      log.With(sl.Module("flow")),
	}
}

// markSeen records the user and reports whether this is their first
// message. A persistence failure never blocks handling.
func (c *Controller) markSeen(userId string) bool {
	first, err := c.seen.MarkSeen(userId)
	if err != nil {
		c.log.Error("marking user seen", sl.User(userId), sl.Err(err))
	}
	return first
}

// HandleText processes a text event: a greeting, a candidate style
// code, or anything else.
func (c *Controller) HandleText(ctx context.Context, userId, text string, t Transport) {
	first := c.markSeen(userId)

	if isGreeting(text) {
		c.reply(userId, t, MsgGreetingReply)
		if first {
			c.reply(userId, t, MsgIntro)
		} else {
			c.reply(userId, t, MsgAskForCode)
		}
		return
	}

	if code, ok := normalizeCode(text); ok {
		c.handleCode(ctx, userId, code, t)
		return
	}

	if first {
		c.reply(userId, t, MsgIntro)
	} else {
		c.reply(userId, t, MsgAskForCode)
	}
}

func (c *Controller) handleCode(ctx context.Context, userId, code string, t Transport) {
	_, _, ok := c.resolve(ctx, code)
	if !ok {
		c.log.With(sl.User(userId), slog.String("code", code)).Info("unknown style code")
		c.reply(userId, t, MsgInvalidStyle)
		return
	}

	c.sessions.Set(userId, code)
	c.log.With(sl.User(userId), slog.String("code", code)).Info("style selected")
	c.reply(userId, t, MsgAskForImage)
}

// resolve looks a code up in the catalog; on a miss it forces exactly
// one refresh and retries, so a style added to the sheet moments ago
// still resolves. A refresh failure falls through to not-found.
func (c *Controller) resolve(ctx context.Context, code string) (string, catalog.Provider, bool) {
	prompt, ok := c.catalog.Prompt(code)
	if !ok {
		if _, err := c.catalog.Refresh(ctx); err != nil {
			c.log.Error("miss-triggered refresh", sl.Err(err))
		}
		prompt, ok = c.catalog.Prompt(code)
	}
	if !ok {
		return "", "", false
	}
	provider, ok := c.catalog.ProviderFor(code)
	if !ok {
		return "", "", false
	}
	return prompt, provider, true
}

// HandlePhoto processes an incoming photo against the user's pending
// style code. Whatever the outcome, the session is consumed: each code
// commitment pays for exactly one photo.
func (c *Controller) HandlePhoto(ctx context.Context, userId, ref string, t Transport) {
	c.markSeen(userId)

	status, code := c.sessions.Status(userId)
	switch status {
	case session.StatusNone:
		c.reply(userId, t, MsgNeedCodeFirst)
		return
	case session.StatusExpired:
		c.log.With(sl.User(userId)).Info("session expired")
		c.reply(userId, t, MsgExpired)
		return
	}
	defer c.sessions.Clear(userId)

	jobId := uuid.NewString()
	log := c.log.With(
		sl.User(userId),
		slog.String("code", code),
		slog.String("job", jobId),
	)

	prompt, provider, ok := c.resolve(ctx, code)
	if !ok {
		log.Warn("pending code no longer resolvable")
		c.reply(userId, t, MsgInvalidStyle)
		return
	}

	gateway, ok := c.gateways[provider]
	if !ok {
		log.Error("no gateway for provider", slog.String("provider", string(provider)))
		c.reply(userId, t, MsgInvalidStyle)
		return
	}

	c.reply(userId, t, MsgProcessing)

	image, mimeType, err := t.FetchImage(ctx, ref)
	if err != nil {
		log.Error("fetching image", sl.Err(err))
		c.reply(userId, t, MsgFailed+truncateError(err))
		return
	}

	log.With(
		slog.String("provider", string(provider)),
		slog.String("mime", mimeType),
		slog.Int("bytes", len(image)),
	).Info("dispatching to provider")

	edited, err := gateway.Edit(ctx, image, mimeType, prompt)
	if err != nil {
		log.Error("provider edit failed", sl.Err(err))
		c.reply(userId, t, MsgFailed+truncateError(err))
		return
	}

	if err := t.ReplyWithImage(edited, MsgDone); err != nil {
		log.Error("sending edited image", sl.Err(err))
		return
	}
	log.Info("edited image delivered")
}

func (c *Controller) reply(userId string, t Transport, text string) {
	if err := t.Reply(text); err != nil {
		c.log.Error("sending reply", sl.User(userId), sl.Err(err))
	}
}
