package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel/boxd-companion/internal/page"
	"github.com/gofiber/fiber/v2"
)

const sessionWaitLimit = 30 * time.Second

type openSessionRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

type observeRequest struct {
	HTML string `json:"html"`
}

type clickRequest struct {
	Target string `json:"target"`
}

type selectRequest struct {
	TrackerID string `json:"trackerId"`
}

// SessionsHandler drives page sessions over HTTP. A client posts snapshots of
// a movie page and relays clicks; the injected markup is read back from the
// session.
type SessionsHandler struct {
	store *page.Store
}

func NewSessionsHandler(store *page.Store) *SessionsHandler {
	return &SessionsHandler{store: store}
}

func (h *SessionsHandler) Open(c *fiber.Ctx) error {
	var req openSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid json body"})
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "url is required"})
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(req.HTML))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid html"})
	}

	session := h.store.Open(c.UserContext(), req.URL, doc)
	if c.QueryBool("wait", false) {
		h.wait(c.UserContext(), session)
	}
	return c.Status(fiber.StatusCreated).JSON(session.Snapshot())
}

func (h *SessionsHandler) Get(c *fiber.Ctx) error {
	session, ok := h.store.Get(c.Params("id"))
	if !ok {
		return sessionNotFound(c)
	}
	if c.QueryBool("wait", false) {
		h.wait(c.UserContext(), session)
	}
	return c.JSON(session.Snapshot())
}

func (h *SessionsHandler) Page(c *fiber.Ctx) error {
	session, ok := h.store.Get(c.Params("id"))
	if !ok {
		return sessionNotFound(c)
	}
	out, err := session.HTML()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to render page"})
	}
	c.Type("html", "utf-8")
	return c.SendString(out)
}

func (h *SessionsHandler) Observe(c *fiber.Ctx) error {
	session, ok := h.store.Get(c.Params("id"))
	if !ok {
		return sessionNotFound(c)
	}

	var req observeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid json body"})
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(req.HTML))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid html"})
	}

	inserted := session.Observe(c.UserContext(), doc)
	return c.JSON(fiber.Map{"inserted": inserted, "session": session.Snapshot()})
}

func (h *SessionsHandler) Click(c *fiber.Ctx) error {
	session, ok := h.store.Get(c.Params("id"))
	if !ok {
		return sessionNotFound(c)
	}

	var req clickRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid json body"})
	}

	err := session.Click(c.UserContext(), page.Target(strings.TrimSpace(req.Target)))
	switch {
	case err == nil:
		return c.JSON(session.Snapshot())
	case errors.Is(err, page.ErrUnknownTarget):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "target must be control, dropdown or outside"})
	case errors.Is(err, page.ErrNoControl), errors.Is(err, page.ErrSessionClosed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to handle click"})
	}
}

func (h *SessionsHandler) Select(c *fiber.Ctx) error {
	session, ok := h.store.Get(c.Params("id"))
	if !ok {
		return sessionNotFound(c)
	}

	var req selectRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.TrackerID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "trackerId is required"})
	}

	target, err := session.Select(strings.TrimSpace(req.TrackerID))
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"url": target})
	case errors.Is(err, page.ErrDropdownClosed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, page.ErrTrackerNotListed):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to select tracker"})
	}
}

func (h *SessionsHandler) Delete(c *fiber.Ctx) error {
	if !h.store.Close(c.Params("id")) {
		return sessionNotFound(c)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *SessionsHandler) wait(ctx context.Context, session *page.Session) {
	if session.Snapshot().Resolution != page.ResolutionPending {
		return
	}
	waitCtx, cancel := context.WithTimeout(ctx, sessionWaitLimit)
	defer cancel()
	_ = session.Wait(waitCtx)
}

func sessionNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "session not found"})
}
