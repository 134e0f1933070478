package releasedates

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gabriel/boxd-companion/internal/models"
)

// CandidateExtractor turns a search result page into movie candidates in
// document order.
type CandidateExtractor interface {
	Extract(html []byte) ([]models.Candidate, error)
}

var candidatePattern = regexp.MustCompile(`(?i)<a[^>]+href=["']([^"']*/movies/[^"']+)["'][^>]*>[\s\S]*?<img[^>]+src=["'][^"']*?(\d{4})\.jpg["'][^>]*>`)

// RegexExtractor matches a movie link followed by its poster image, whose
// file name ends with the release year.
type RegexExtractor struct{}

func (RegexExtractor) Extract(html []byte) ([]models.Candidate, error) {
	matches := candidatePattern.FindAllSubmatch(html, -1)
	candidates := make([]models.Candidate, 0, len(matches))
	for _, match := range matches {
		candidates = append(candidates, models.Candidate{
			URL:  string(match[1]),
			Year: string(match[2]),
		})
	}
	return candidates, nil
}

var posterYear = regexp.MustCompile(`(\d{4})\.jpg$`)

// DocumentExtractor walks parsed anchors instead of raw markup. Only posters
// nested inside the anchor count.
type DocumentExtractor struct{}

func (DocumentExtractor) Extract(html []byte) ([]models.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	var candidates []models.Candidate
	doc.Find(`a[href*="/movies/"]`).Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return
		}
		a.Find("img[src]").EachWithBreak(func(_ int, img *goquery.Selection) bool {
			match := posterYear.FindStringSubmatch(strings.TrimSpace(img.AttrOr("src", "")))
			if match == nil {
				return true
			}
			candidates = append(candidates, models.Candidate{URL: href, Year: match[1]})
			return false
		})
	})
	return candidates, nil
}

// SelectCandidate prefers the first candidate of the requested year and falls
// back to the first candidate overall.
func SelectCandidate(candidates []models.Candidate, year string) (models.Candidate, bool) {
	if len(candidates) == 0 {
		return models.Candidate{}, false
	}
	if year != "" {
		for _, candidate := range candidates {
			if candidate.Year == year {
				return candidate, true
			}
		}
	}
	return candidates[0], true
}

// AbsoluteURL prefixes root-relative links with the aggregator base URL.
func AbsoluteURL(baseURL, href string) string {
	if strings.HasPrefix(href, "/") {
		return strings.TrimRight(baseURL, "/") + href
	}
	return href
}
