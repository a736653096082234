package controller

import (
	"deck-builder-be/internal/dto"
	"deck-builder-be/internal/pkg/logger"
	"deck-builder-be/internal/pkg/serverutils"
	"deck-builder-be/internal/service"
	internalWS "deck-builder-be/internal/websocket"
	wfevents "deck-builder-be/pkg/deck/events"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type IDeckController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	ServeWs(ctx *fiber.Ctx) error
	Chat(ctx *fiber.Ctx) error
	ConfirmOutline(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Trace(ctx *fiber.Ctx) error
	Download(ctx *fiber.Ctx) error
}

type deckController struct {
	deckService service.IDeckService
	hub         *internalWS.Hub
	logger      logger.ILogger
}

func NewDeckController(deckService service.IDeckService, hub *internalWS.Hub, log logger.ILogger) IDeckController {
	return &deckController{
		deckService: deckService,
		hub:         hub,
		logger:      log,
	}
}

func (c *deckController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/deck/v1")
	h.Post("session", c.CreateSession)
	h.Get("ws/:session_id", c.ServeWs)
	h.Post("chat", c.Chat)
	h.Post("confirm-outline", c.ConfirmOutline)
	h.Get("session/:session_id", c.Show)
	h.Get("session/:session_id/trace", c.Trace)
	h.Get("download/:session_id", c.Download)
}

func (c *deckController) CreateSession(ctx *fiber.Ctx) error {
	session, err := c.deckService.CreateSession(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Session created", dto.CreateSessionResponse{
		SessionId: session.ID,
		Status:    session.Status,
	}))
}

// ServeWs upgrades the connection and attaches it as a watcher of the
// session's event stream. Pass ?debug=true to also receive debug_* frames.
func (c *deckController) ServeWs(ctx *fiber.Ctx) error {
	sessionID := ctx.Params("session_id")
	debug := ctx.Query("debug") == "true"

	// Reject before upgrading so the client gets a proper 404
	if _, err := c.deckService.GetSession(ctx.Context(), sessionID); err != nil {
		return err
	}

	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		c.logger.Info("DeckController", "Starting WebSocket session", map[string]interface{}{
			"session_id": sessionID,
			"debug":      debug,
		})

		// First frame on every connection identifies the session
		hello, err := wfevents.Encode(wfevents.Session{Type: wfevents.TypeSession, SessionID: sessionID})
		if err == nil {
			if werr := conn.WriteMessage(websocket.TextMessage, hello); werr != nil {
				c.logger.Warn("DeckController", "Failed to send session frame", map[string]interface{}{"error": werr.Error()})
				return
			}
		}

		internalWS.ServeWs(c.hub, conn, sessionID, debug)
		c.logger.Info("DeckController", "WebSocket session ended", map[string]interface{}{"session_id": sessionID})
	})(ctx)
}

func (c *deckController) Chat(ctx *fiber.Ctx) error {
	var req dto.StartDeckRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.deckService.StartDeck(ctx.Context(), req.SessionId, req.Message); err != nil {
		return err
	}

	session, err := c.deckService.GetSession(ctx.Context(), req.SessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Deck build started", dto.StartDeckResponse{
		SessionId: session.ID,
		Status:    session.Status,
	}))
}

func (c *deckController) ConfirmOutline(ctx *fiber.Ctx) error {
	var req dto.ConfirmOutlineRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.deckService.ConfirmOutline(ctx.Context(), req.SessionId, req.Outline, req.AllSlides); err != nil {
		return err
	}

	session, err := c.deckService.GetSession(ctx.Context(), req.SessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Outline confirmed", dto.ConfirmOutlineResponse{
		SessionId: session.ID,
		Status:    session.Status,
	}))
}

func (c *deckController) Show(ctx *fiber.Ctx) error {
	sessionID := ctx.Params("session_id")

	session, err := c.deckService.GetSession(ctx.Context(), sessionID)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session", dto.ShowSessionResponse{
		SessionId:     session.ID,
		Status:        session.Status,
		Request:       session.Request,
		Outline:       session.Outline,
		Deck:          session.Deck,
		RevisionRound: session.RevisionRound,
		LastError:     session.LastError,
		CreatedAt:     session.CreatedAt,
	}))
}

func (c *deckController) Trace(ctx *fiber.Ctx) error {
	sessionID := ctx.Params("session_id")

	entries, err := c.deckService.GetTrace(ctx.Context(), sessionID)
	if err != nil {
		return err
	}

	res := make([]dto.TraceEntryResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, dto.TraceEntryResponse{Seq: e.Seq, At: e.At, Event: e.Event})
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get trace", res))
}

func (c *deckController) Download(ctx *fiber.Ctx) error {
	sessionID := ctx.Params("session_id")

	decks, err := c.deckService.DownloadManifest(ctx.Context(), sessionID)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get download manifest", dto.DownloadManifestResponse{
		SessionId: sessionID,
		Decks:     decks,
	}))
}
