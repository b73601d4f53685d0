// Package bot routes inbound messenger events through the game and sends the reply.
package bot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/park285/xo-messenger-bot/internal/command"
	"github.com/park285/xo-messenger-bot/internal/game"
	"github.com/park285/xo-messenger-bot/internal/messenger"
)

type Handler struct {
	interp      *command.Interpreter
	ctl         *game.Controller
	egress      messenger.Egress
	sendTimeout time.Duration
	logger      *zap.Logger
}

func NewHandler(interp *command.Interpreter, ctl *game.Controller, egress messenger.Egress, sendTimeout time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &Handler{interp: interp, ctl: ctl, egress: egress, sendTimeout: sendTimeout, logger: logger}
}

// HandleEvent gates, interprets and answers one message. Delivery failures are logged only.
func (h *Handler) HandleEvent(ctx context.Context, ev messenger.Event) {
	if !h.interp.ShouldHandle(ev.SenderID, ev.ConversationID, ev.Text) {
		h.logger.Debug("message_ignored",
			zap.String("conversation_id", ev.ConversationID),
			zap.String("sender_id", ev.SenderID),
		)
		return
	}
	cmd := h.interp.Parse(ev.Text)
	reply := h.ctl.Handle(ctx, game.Request{
		ConversationID: ev.ConversationID,
		SenderID:       ev.SenderID,
		Command:        cmd,
	})
	if reply == nil || reply.Text == "" {
		return
	}

	recipient := ev.ConversationID
	if recipient == "" {
		recipient = ev.SenderID
	}
	sctx, cancel := context.WithTimeout(ctx, h.sendTimeout)
	defer cancel()
	if err := h.egress.SendText(sctx, recipient, reply.Text); err != nil {
		h.logger.Warn("reply_send_failed",
			zap.String("conversation_id", recipient),
			zap.String("command", cmd.Kind.String()),
			zap.Error(err),
		)
		return
	}
	h.logger.Debug("reply_sent",
		zap.String("conversation_id", recipient),
		zap.String("command", cmd.Kind.String()),
	)
}
