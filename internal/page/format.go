package page

import (
	"fmt"
	"html"
	"strings"

	"github.com/gabriel/boxd-companion/internal/models"
)

const (
	NoReleaseDataMsg = "No release date information available"
	LoadingMsg       = "Loading release dates…"
	NoSourcesMsg     = "No sources enabled"
)

const partSeparator = " • "

func statusColor(status models.ReleaseStatus) string {
	switch status {
	case models.StatusUpcoming:
		return "#e5533d"
	case models.StatusReleased:
		return "#4caf50"
	default:
		return "#8f8f8f"
	}
}

// FormatInfo renders a summary as plain text.
func FormatInfo(summary *models.ReleaseDateSummary) string {
	if summary == nil || !summary.HasData {
		return NoReleaseDataMsg
	}

	parts := make([]string, 0, 2)
	if summary.Physical != nil && summary.Physical.Value != "" {
		parts = append(parts, "DVD/Blu-ray: "+summary.Physical.Value)
	}
	if summary.Digital != nil && summary.Digital.Value != "" {
		parts = append(parts, "Digital: "+summary.Digital.Value)
	}
	return strings.Join(parts, partSeparator)
}

// FormatInfoHTML renders a summary with each date coloured by its status.
func FormatInfoHTML(summary *models.ReleaseDateSummary) string {
	if summary == nil || !summary.HasData {
		return html.EscapeString(NoReleaseDataMsg)
	}

	parts := make([]string, 0, 2)
	if summary.Physical != nil && summary.Physical.Value != "" {
		parts = append(parts, "DVD/Blu-ray: "+coloured(*summary.Physical))
	}
	if summary.Digital != nil && summary.Digital.Value != "" {
		parts = append(parts, "Digital: "+coloured(*summary.Digital))
	}
	return strings.Join(parts, partSeparator)
}

func coloured(entry models.ReleaseDateEntry) string {
	return fmt.Sprintf(`<span style="color:%s">%s</span>`, statusColor(entry.Status), html.EscapeString(entry.Value))
}
