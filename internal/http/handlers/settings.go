package handlers

import (
	"embed"
	"errors"
	"html/template"
	"strconv"
	"strings"
	"sync"

	"github.com/gabriel/boxd-companion/internal/models"
	"github.com/gabriel/boxd-companion/internal/trackers"
	"github.com/gofiber/fiber/v2"
)

//go:embed templates/*.html
var templateFS embed.FS

type settingsPageData struct {
	Trackers       []models.Tracker
	StorageWarning bool
	Error          string
	ErrorField     string
	Form           createTrackerRequest
	SearchTypes    []models.SearchType
	Placeholder    string
}

// SettingsHandler serves the options page: the tracker list with toggles,
// delete buttons for custom trackers and the add form.
type SettingsHandler struct {
	registry     *trackers.Registry
	templates    *template.Template
	templateOnce sync.Once
	templateErr  error
}

func NewSettingsHandler(registry *trackers.Registry) *SettingsHandler {
	return &SettingsHandler{registry: registry}
}

func (h *SettingsHandler) Page(c *fiber.Ctx) error {
	return h.renderPage(c, fiber.StatusOK, settingsPageData{
		Form: createTrackerRequest{SearchType: string(models.SearchTypeTitle)},
	})
}

func (h *SettingsHandler) AddFromForm(c *fiber.Ctx) error {
	form := createTrackerRequest{
		Name:       c.FormValue("name"),
		URL:        c.FormValue("url"),
		SearchType: strings.TrimSpace(c.FormValue("searchType")),
	}
	if form.SearchType == "" {
		form.SearchType = string(models.SearchTypeTitle)
	}

	_, err := h.registry.AddCustom(c.UserContext(), form.Name, form.URL, models.SearchType(form.SearchType))
	if err != nil {
		var validationErr *trackers.ValidationError
		if errors.As(err, &validationErr) {
			return h.renderPage(c, fiber.StatusUnprocessableEntity, settingsPageData{
				Error:      validationErr.Message,
				ErrorField: validationErr.Field,
				Form:       form,
			})
		}
		return h.renderPage(c, fiber.StatusInternalServerError, settingsPageData{
			Error: "Could not save the tracker. Try again.",
			Form:  form,
		})
	}
	return c.Redirect("/settings", fiber.StatusSeeOther)
}

func (h *SettingsHandler) ToggleFromForm(c *fiber.Ctx) error {
	id := c.Params("id")

	enabled, explicit := parseFormBool(c.FormValue("enabled"))
	if !explicit {
		current, err := h.registry.Load(c.UserContext())
		if err != nil {
			return h.renderPage(c, fiber.StatusServiceUnavailable, settingsPageData{Error: "Tracker settings are unreadable."})
		}
		tracker, ok := current[id]
		if !ok {
			return c.Status(fiber.StatusNotFound).SendString("Tracker not found")
		}
		enabled = !tracker.Enabled
	}

	if _, err := h.registry.SetEnabled(c.UserContext(), id, enabled); err != nil {
		if errors.Is(err, trackers.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).SendString("Tracker not found")
		}
		return h.renderPage(c, fiber.StatusServiceUnavailable, settingsPageData{Error: "Could not update the tracker."})
	}
	return c.Redirect("/settings", fiber.StatusSeeOther)
}

func (h *SettingsHandler) DeleteFromForm(c *fiber.Ctx) error {
	if _, err := h.registry.Remove(c.UserContext(), c.Params("id")); err != nil {
		return h.renderPage(c, fiber.StatusServiceUnavailable, settingsPageData{Error: "Could not delete the tracker."})
	}
	return c.Redirect("/settings", fiber.StatusSeeOther)
}

func (h *SettingsHandler) renderPage(c *fiber.Ctx, status int, data settingsPageData) error {
	current, err := h.registry.Load(c.UserContext())
	var readErr *trackers.StorageReadError
	if err != nil && !errors.As(err, &readErr) {
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to load trackers")
	}

	data.Trackers = trackers.Sorted(current)
	data.StorageWarning = readErr != nil
	data.SearchTypes = []models.SearchType{models.SearchTypeTitle, models.SearchTypeIMDb}
	data.Placeholder = trackers.Placeholder

	c.Status(status)
	return h.render(c, "settings.html", data)
}

func (h *SettingsHandler) render(c *fiber.Ctx, templateName string, data any) error {
	h.templateOnce.Do(func() {
		h.templates, h.templateErr = template.New("").Funcs(template.FuncMap{
			"searchTypeLabel": func(value models.SearchType) string { return value.Label() },
		}).ParseFS(templateFS, "templates/*.html")
	})

	if h.templateErr != nil || h.templates == nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Template load error")
	}
	c.Type("html", "utf-8")
	return h.templates.ExecuteTemplate(c.Response().BodyWriter(), templateName, data)
}

func parseFormBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	if raw == "on" {
		return true, true
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return value, true
}
