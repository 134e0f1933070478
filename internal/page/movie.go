package page

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gabriel/boxd-companion/internal/searchutil"
)

const (
	footerSelector = "p.text-link.text-footer"
	titleSelector  = "h1.headline-1.primaryname span.name"
	yearSelector   = ".releasedate a"
	imdbSelector   = `a[href*="imdb.com/title/tt"]`

	controlSelector = ".download-movie-button"
	infoSelector    = ".release-dates-info"
	infoBtnSelector = ".release-info-btn"
)

// Movie is what the host page tells us about the film being viewed.
type Movie struct {
	Title      string `json:"title"`
	Year       string `json:"year"`
	IMDbID     string `json:"imdbId,omitempty"`
	TitleQuery string `json:"titleQuery"`
}

func ExtractMovie(doc *goquery.Document) Movie {
	title := strings.TrimSpace(doc.Find(titleSelector).First().Text())
	year := strings.TrimSpace(doc.Find(yearSelector).First().Text())

	imdbID := ""
	if href, ok := doc.Find(imdbSelector).First().Attr("href"); ok {
		imdbID = searchutil.IMDbID(href)
	}

	return Movie{
		Title:      title,
		Year:       year,
		IMDbID:     imdbID,
		TitleQuery: searchutil.TitleQuery(title, year),
	}
}
