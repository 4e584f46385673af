package telegram

import (
	"context"
	"fmt"
	"time"

	gotdtelegram "github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"

	apperrors "github.com/lueurxax/channel-snapshot-bot/internal/core/errors"
	"github.com/lueurxax/channel-snapshot-bot/internal/platform/config"
	"github.com/lueurxax/channel-snapshot-bot/internal/platform/observability"
	"github.com/lueurxax/channel-snapshot-bot/internal/platform/worker"
)

const (
	historyPageSize = 100
	maxFloodRetries = 5
	floodWaitType   = "FLOOD_WAIT"
)

// MTProto is the gotd backed Platform. Every Run opens a fresh client on
// the stored session file and disconnects when it returns.
type MTProto struct {
	apiID       int
	apiHash     string
	sessionPath string
	logger      *zerolog.Logger
}

func NewMTProto(cfg *config.Config, logger *zerolog.Logger) *MTProto {
	return &MTProto{
		apiID:       cfg.TGAPIID,
		apiHash:     cfg.TGAPIHash,
		sessionPath: cfg.TGSessionPath,
		logger:      logger,
	}
}

func (p *MTProto) newClient() *gotdtelegram.Client {
	return gotdtelegram.NewClient(p.apiID, p.apiHash, gotdtelegram.Options{
		SessionStorage: &gotdtelegram.FileSessionStorage{
			Path: p.sessionPath,
		},
	})
}

// Run requires an authorized session; use Login first.
func (p *MTProto) Run(ctx context.Context, fn func(ctx context.Context, session Session) error) error {
	client := p.newClient()

	return client.Run(ctx, func(ctx context.Context) error {
		status, err := client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("auth status: %w", err)
		}

		if !status.Authorized {
			return apperrors.ErrNotAuthorized
		}

		return fn(ctx, &mtprotoSession{api: tg.NewClient(client), logger: p.logger})
	})
}

// Login runs the interactive authentication flow and stores the session.
func (p *MTProto) Login(ctx context.Context, authenticator auth.UserAuthenticator) error {
	client := p.newClient()

	return client.Run(ctx, func(ctx context.Context) error {
		if err := client.Auth().IfNecessary(ctx, auth.NewFlow(authenticator, auth.SendCodeOptions{})); err != nil {
			return fmt.Errorf("telegram login: %w", err)
		}

		self, err := client.Self(ctx)
		if err != nil {
			return fmt.Errorf("fetch self: %w", err)
		}

		p.logger.Info().Int64("user_id", self.ID).Str("username", self.Username).Msg("Successfully authenticated as user")

		return nil
	})
}

type mtprotoSession struct {
	api    *tg.Client
	logger *zerolog.Logger
}

func (s *mtprotoSession) History(ctx context.Context, channel string) (History, error) {
	resolved, err := s.api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: channel})
	if err != nil {
		switch {
		case tgerr.Is(err, "USERNAME_NOT_OCCUPIED", "USERNAME_INVALID"):
			return nil, fmt.Errorf("%w: %s", apperrors.ErrChannelNotFound, channel)
		default:
			return nil, fmt.Errorf("%w: resolve %s: %w", apperrors.ErrChannelUnavailable, channel, err)
		}
	}

	if len(resolved.Chats) == 0 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrChannelNotFound, channel)
	}

	ch, ok := resolved.Chats[0].(*tg.Channel)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNotAChannel, channel)
	}

	return &mtprotoHistory{
		api:    s.api,
		logger: s.logger,
		peer:   &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash},
		info:   ChannelInfo{Username: ch.Username, Title: ch.Title},
	}, nil
}

// mtprotoHistory pages backwards through a channel with MessagesGetHistory.
type mtprotoHistory struct {
	api    *tg.Client
	logger *zerolog.Logger
	peer   tg.InputPeerClass
	info   ChannelInfo

	buf       []Message
	offsetID  int
	exhausted bool
}

func (h *mtprotoHistory) Channel() ChannelInfo {
	return h.info
}

func (h *mtprotoHistory) Next(ctx context.Context) (Message, bool, error) {
	for len(h.buf) == 0 {
		if h.exhausted {
			return Message{}, false, nil
		}

		if err := h.fetchPage(ctx); err != nil {
			return Message{}, false, err
		}
	}

	msg := h.buf[0]
	h.buf = h.buf[1:]

	return msg, true, nil
}

func (h *mtprotoHistory) fetchPage(ctx context.Context) error {
	req := &tg.MessagesGetHistoryRequest{
		Peer:     h.peer,
		OffsetID: h.offsetID,
		Limit:    historyPageSize,
	}

	var (
		history tg.MessagesMessagesClass
		err     error
	)

	for attempt := 0; ; attempt++ {
		history, err = h.api.MessagesGetHistory(ctx, req)
		if err == nil {
			break
		}

		floodErr, ok := tgerr.As(err)
		if !ok || floodErr.Type != floodWaitType || attempt >= maxFloodRetries {
			if tgerr.Is(err, "CHANNEL_PRIVATE", "CHANNEL_INVALID") {
				return fmt.Errorf("%w: %s: %w", apperrors.ErrChannelUnavailable, h.info.Username, err)
			}

			return fmt.Errorf("failed to get history: %w", err)
		}

		wait := time.Duration(floodErr.Argument) * time.Second
		h.logger.Warn().Int("seconds", floodErr.Argument).Str("channel", h.info.Username).Msg("flood wait")
		observability.FloodWaitSeconds.Add(wait.Seconds())

		if err := worker.Wait(ctx, wait); err != nil {
			return err
		}
	}

	var raw []tg.MessageClass

	switch m := history.(type) {
	case *tg.MessagesMessages:
		raw = m.Messages
		h.exhausted = true
	case *tg.MessagesMessagesSlice:
		raw = m.Messages
	case *tg.MessagesChannelMessages:
		raw = m.Messages
	case *tg.MessagesMessagesNotModified:
		h.exhausted = true

		return nil
	}

	if len(raw) < historyPageSize {
		h.exhausted = true
	}

	h.buf = h.buf[:0]

	for _, mc := range raw {
		msg, ok := mc.(*tg.Message)
		if !ok {
			continue
		}

		h.buf = append(h.buf, Message{
			ID:   msg.ID,
			Text: msg.Message,
			Date: time.Unix(int64(msg.Date), 0),
		})
	}

	if n := len(raw); n > 0 {
		h.offsetID = raw[n-1].GetID()
	}

	return nil
}
