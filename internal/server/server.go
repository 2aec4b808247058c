package server

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"studybot/internal/config"
	"studybot/internal/dispatch"
	"studybot/internal/pkg/logger"
)

// Server receives webhook updates and hands them to the dispatcher. The
// webhook path embeds a secret so strangers cannot inject updates.
type Server struct {
	app    *fiber.App
	cfg    *config.Config
	router *dispatch.Router
	log    logger.ILogger
}

func New(cfg *config.Config, router *dispatch.Router, log logger.ILogger) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit:             1 * 1024 * 1024,
		DisableStartupMessage: true,
	})

	s := &Server{app: app, cfg: cfg, router: router, log: log}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Post("/webhook/:secret", s.handleWebhook)

	return s
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	s.log.Info("server", "listening", map[string]interface{}{"port": s.cfg.App.Port})
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

type webhookUser struct {
	ID       int64   `json:"id"`
	Username *string `json:"username"`
}

type webhookPhoto struct {
	FileID string `json:"file_id"`
}

type webhookDocument struct {
	FileID string `json:"file_id"`
}

type webhookMessage struct {
	MessageID int              `json:"message_id"`
	From      *webhookUser     `json:"from"`
	Text      string           `json:"text"`
	Photo     []webhookPhoto   `json:"photo"`
	Document  *webhookDocument `json:"document"`
}

type webhookCallback struct {
	ID      string          `json:"id"`
	From    *webhookUser    `json:"from"`
	Data    string          `json:"data"`
	Message *webhookMessage `json:"message"`
}

type webhookUpdate struct {
	UpdateID int64            `json:"update_id"`
	Message  *webhookMessage  `json:"message"`
	Callback *webhookCallback `json:"callback_query"`
}

func (s *Server) handleWebhook(c *fiber.Ctx) error {
	if c.Params("secret") != s.cfg.Bot.WebhookSecret {
		return c.SendStatus(fiber.StatusForbidden)
	}

	var update webhookUpdate
	if err := c.BodyParser(&update); err != nil {
		s.log.Warn("server", "unparseable update", map[string]interface{}{
			"error": err.Error(),
		})
		// Acknowledge anyway so the platform does not redeliver garbage.
		return c.SendStatus(fiber.StatusOK)
	}

	evt := toEvent(&update)
	if evt == nil {
		return c.SendStatus(fiber.StatusOK)
	}

	s.router.Dispatch(context.Background(), evt)
	return c.SendStatus(fiber.StatusOK)
}

func toEvent(update *webhookUpdate) *dispatch.Event {
	id := strconv.FormatInt(update.UpdateID, 10)

	if cb := update.Callback; cb != nil && cb.From != nil {
		evt := &dispatch.Event{
			ID:         id,
			Sender:     cb.From.ID,
			Username:   cb.From.Username,
			Kind:       dispatch.KindAction,
			Action:     cb.Data,
			CallbackID: cb.ID,
		}
		if cb.Message != nil {
			evt.MessageID = cb.Message.MessageID
		}
		return evt
	}

	if msg := update.Message; msg != nil && msg.From != nil {
		evt := &dispatch.Event{
			ID:        id,
			Sender:    msg.From.ID,
			Username:  msg.From.Username,
			MessageID: msg.MessageID,
		}
		switch {
		case len(msg.Photo) > 0:
			evt.Kind = dispatch.KindMedia
			// The last entry is the largest rendition.
			evt.MediaID = msg.Photo[len(msg.Photo)-1].FileID
		case msg.Document != nil:
			evt.Kind = dispatch.KindMedia
			evt.MediaID = msg.Document.FileID
		default:
			evt.Kind = dispatch.KindText
			evt.Text = msg.Text
		}
		return evt
	}

	return nil
}
