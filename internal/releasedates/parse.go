package releasedates

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gabriel/boxd-companion/internal/models"
)

var releaseHeading = regexp.MustCompile(`(?i)release date`)

// Parse extracts the physical and digital release dates from a movie page.
// A page without a release date heading yields a summary with no data.
func Parse(html string) models.ReleaseDateSummary {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.ReleaseDateSummary{}
	}

	var heading *goquery.Selection
	doc.Find("h2").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if releaseHeading.MatchString(h.Text()) {
			heading = h
			return false
		}
		return true
	})
	if heading == nil {
		return models.ReleaseDateSummary{}
	}

	spans := dateSpans(heading)
	summary := models.ReleaseDateSummary{}
	if len(spans) > 0 {
		summary.Physical = entryFrom(spans[0])
	}
	if len(spans) > 1 {
		summary.Digital = entryFrom(spans[1])
	}
	summary.HasData = summary.Physical != nil || summary.Digital != nil
	return summary
}

// dateSpans returns the spans inside the heading, or when it has none, the
// spans of the section that follows it up to the next heading.
func dateSpans(heading *goquery.Selection) []*goquery.Selection {
	var spans []*goquery.Selection
	heading.Find("span").Each(func(_ int, s *goquery.Selection) {
		spans = append(spans, s)
	})
	if len(spans) > 0 {
		return spans
	}

	heading.NextUntil("h1, h2, h3, h4, h5, h6").Each(func(_ int, sibling *goquery.Selection) {
		if sibling.Is("span") {
			spans = append(spans, sibling)
		}
		sibling.Find("span").Each(func(_ int, s *goquery.Selection) {
			spans = append(spans, s)
		})
	})
	return spans
}

func entryFrom(span *goquery.Selection) *models.ReleaseDateEntry {
	value := strings.TrimSpace(span.Text())
	return &models.ReleaseDateEntry{Value: value, Status: statusOf(span, value)}
}

func statusOf(span *goquery.Selection, value string) models.ReleaseStatus {
	switch {
	case span.HasClass("past"):
		return models.StatusReleased
	case span.HasClass("future"):
		if strings.Contains(strings.ToLower(value), "not announced") {
			return models.StatusUnknown
		}
		return models.StatusUpcoming
	default:
		return models.StatusUnknown
	}
}
