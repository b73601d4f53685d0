package messenger

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// EventHandler consumes one inbound event. It runs outside the webhook request.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev Event)
}

type EventHandlerFunc func(ctx context.Context, ev Event)

func (f EventHandlerFunc) HandleEvent(ctx context.Context, ev Event) { f(ctx, ev) }

// Webhook serves the platform callback: the verify handshake and event delivery.
type Webhook struct {
	verifyToken string
	handler     EventHandler
	dispatcher  *Dispatcher
	baseCtx     context.Context
	logger      *zap.Logger
}

// NewWebhook builds the webhook. Handlers run with baseCtx, never with the request context.
func NewWebhook(baseCtx context.Context, verifyToken string, handler EventHandler, dispatcher *Dispatcher, logger *zap.Logger) *Webhook {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Webhook{verifyToken: verifyToken, handler: handler, dispatcher: dispatcher, baseCtx: baseCtx, logger: logger}
}

// NewApp returns a fiber app with the webhook routes and a health route.
func NewApp(w *Webhook) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:             1 * 1024 * 1024,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("xo bot is running")
	})
	w.Register(app)
	return app
}

func (w *Webhook) Register(r fiber.Router) {
	r.Get("/webhook", w.verify)
	r.Post("/webhook", w.receive)
}

func (w *Webhook) verify(c *fiber.Ctx) error {
	if c.Query("hub.mode") == "subscribe" && w.verifyToken != "" && c.Query("hub.verify_token") == w.verifyToken {
		w.logger.Info("webhook_verified")
		return c.SendString(c.Query("hub.challenge"))
	}
	w.logger.Warn("webhook_verify_rejected", zap.String("mode", c.Query("hub.mode")))
	return c.SendStatus(fiber.StatusForbidden)
}

func (w *Webhook) receive(c *fiber.Ctx) error {
	var p Payload
	if err := json.Unmarshal(c.Body(), &p); err != nil {
		w.logger.Debug("webhook_bad_payload", zap.Error(err))
		return c.SendStatus(fiber.StatusBadRequest)
	}
	if p.Object != ObjectPage {
		return c.SendStatus(fiber.StatusNotFound)
	}
	for _, ev := range p.Events() {
		ev := ev
		w.dispatcher.Go("webhook_event", func() {
			w.handler.HandleEvent(w.baseCtx, ev)
		})
	}
	return c.Status(fiber.StatusOK).SendString("EVENT_RECEIVED")
}
