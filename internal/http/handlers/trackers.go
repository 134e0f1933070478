package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel/boxd-companion/internal/broadcast"
	"github.com/gabriel/boxd-companion/internal/messaging"
	"github.com/gabriel/boxd-companion/internal/models"
	"github.com/gabriel/boxd-companion/internal/searchutil"
	"github.com/gabriel/boxd-companion/internal/trackers"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

const eventKeepAlive = 25 * time.Second

type createTrackerRequest struct {
	Name       string `json:"name" form:"name"`
	URL        string `json:"url" form:"url"`
	SearchType string `json:"searchType" form:"searchType"`
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

type updateHub interface {
	Subscribe(pageURL string, handler broadcast.Handler) (string, func())
	Matches(pageURL string) bool
}

type TrackersHandler struct {
	registry *trackers.Registry
	hub      updateHub
}

func NewTrackersHandler(registry *trackers.Registry, hub updateHub) *TrackersHandler {
	return &TrackersHandler{registry: registry, hub: hub}
}

func (h *TrackersHandler) List(c *fiber.Ctx) error {
	current, err := h.registry.Load(c.UserContext())
	var readErr *trackers.StorageReadError
	if err != nil && !errors.As(err, &readErr) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to load trackers"})
	}

	items := trackers.Sorted(current)
	if c.QueryBool("enabled", false) {
		items = trackers.Enabled(current)
	}
	if query := searchutil.Normalize(c.Query("q")); query != "" {
		tokens := searchutil.TokenizeNormalized(query)
		filtered := make([]models.Tracker, 0, len(items))
		for _, item := range items {
			if searchutil.MatchesQuery(item.Name, query, tokens) {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	payload := fiber.Map{"items": items}
	if readErr != nil {
		payload["warning"] = "tracker settings unreadable, showing defaults"
	}
	return c.JSON(payload)
}

func (h *TrackersHandler) Create(c *fiber.Ctx) error {
	var req createTrackerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid json body"})
	}

	created, err := h.registry.AddCustom(c.UserContext(), req.Name, req.URL, models.SearchType(strings.TrimSpace(req.SearchType)))
	if err != nil {
		return writeRegistryError(c, err, "failed to create tracker")
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *TrackersHandler) SetEnabled(c *fiber.Ctx) error {
	var req setEnabledRequest
	if err := c.BodyParser(&req); err != nil || req.Enabled == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "enabled is required"})
	}

	updated, err := h.registry.SetEnabled(c.UserContext(), c.Params("id"), *req.Enabled)
	if err != nil {
		return writeRegistryError(c, err, "failed to update tracker")
	}
	return c.JSON(updated)
}

func (h *TrackersHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	removed, err := h.registry.Remove(c.UserContext(), id)
	if err != nil {
		return writeRegistryError(c, err, "failed to delete tracker")
	}
	return c.JSON(fiber.Map{"id": id, "removed": removed})
}

func (h *TrackersHandler) Export(c *fiber.Ctx) error {
	out, err := h.registry.ExportYAML(c.UserContext())
	if err != nil {
		return writeRegistryError(c, err, "failed to export trackers")
	}
	c.Set(fiber.HeaderContentType, "application/yaml; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="trackers.yaml"`)
	return c.Send(out)
}

func (h *TrackersHandler) Import(c *fiber.Ctx) error {
	imported, err := h.registry.ImportYAML(c.UserContext(), c.Body())
	if err != nil {
		var validationErr *trackers.ValidationError
		if errors.As(err, &validationErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error(), "field": validationErr.Field})
		}
		if errors.Is(err, trackers.ErrInvalidYAML) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid yaml body"})
		}
		return writeRegistryError(c, err, "failed to import trackers")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"items": imported})
}

// Events streams tracker updates to a remote page as server-sent events. The
// url query parameter must match the target site.
func (h *TrackersHandler) Events(c *fiber.Ctx) error {
	pageURL := utils.CopyString(strings.TrimSpace(c.Query("url")))
	if pageURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "url is required"})
	}
	if h.hub == nil || !h.hub.Matches(pageURL) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "url does not match target site"})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	hub := h.hub
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		// The subscription lives exactly as long as the stream.
		updates := make(chan messaging.UpdateTrackers, 8)
		_, unsubscribe := hub.Subscribe(pageURL, func(_ context.Context, msg messaging.UpdateTrackers) {
			select {
			case updates <- msg:
			default:
			}
		})
		defer unsubscribe()

		ticker := time.NewTicker(eventKeepAlive)
		defer ticker.Stop()

		if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil || w.Flush() != nil {
			return
		}
		for {
			select {
			case msg := <-updates:
				payload, err := json.Marshal(msg)
				if err != nil {
					continue
				}
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Action, payload); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
	return nil
}

func writeRegistryError(c *fiber.Ctx, err error, fallback string) error {
	var validationErr *trackers.ValidationError
	var readErr *trackers.StorageReadError
	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": validationErr.Message, "field": validationErr.Field})
	case errors.Is(err, trackers.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "tracker not found"})
	case errors.As(err, &readErr):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"message": "tracker settings unreadable"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": fallback})
	}
}
