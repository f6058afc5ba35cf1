// Package render turns proximity results into the text and cards sent back
// to the conversational front end.
package render

import (
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/swapstation/backend-go/internal/models"
)

const (
	mapsSearchURL   = "https://www.google.com/maps/search/"
	DefaultMaxCards = 3
	DefaultFooter   = "點此開啟 Google 導航"
	DefaultImageURL = "https://i.imgur.com/FPLafsz.png"
	DefaultImageAlt = "Google Maps"
)

// Messages are the user facing sentences. Found is a format string taking
// the station name and the rounded distance in meters.
type Messages struct {
	Found               string
	NotFound            string
	LocationUnavailable string
	GuestUnsupported    string
	PermissionContext   string
}

func DefaultMessages() Messages {
	return Messages{
		Found:               "離您最近的 GOGORO 換電站是「%s」，直線距離約 %d 公尺。",
		NotFound:            "很抱歉，在附近沒有 GOGORO 的換電站。",
		LocationUnavailable: "很抱歉，沒辦法取得您的定位資訊。",
		GuestUnsupported:    "很抱歉，您目前是訪客身份，所以沒辦法取得您的定位資訊。",
		PermissionContext:   "為了要查詢附近的 GOGORO 換電站",
	}
}

// Capabilities describes what the requesting surface can display.
type Capabilities struct {
	SupportsRichCards bool
}

type Card struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Footer      string `json:"footer,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	ImageAlt    string `json:"imageAlt,omitempty"`
}

type Renderer struct {
	Messages   Messages
	MaxCards   int
	FooterText string
	ImageURL   string
	ImageAlt   string
}

func NewRenderer() *Renderer {
	return &Renderer{
		Messages:   DefaultMessages(),
		MaxCards:   DefaultMaxCards,
		FooterText: DefaultFooter,
		ImageURL:   DefaultImageURL,
		ImageAlt:   DefaultImageAlt,
	}
}

// SpokenText names the first (nearest) station, or says nothing was found.
func (r *Renderer) SpokenText(stations []models.Station) string {
	if len(stations) == 0 {
		return r.Messages.NotFound
	}
	nearest := stations[0]
	return fmt.Sprintf(r.Messages.Found, nearest.Name, int64(math.Round(nearest.Distance)))
}

func (r *Renderer) LocationUnavailable() string {
	return r.Messages.LocationUnavailable
}

func (r *Renderer) GuestUnsupported() string {
	return r.Messages.GuestUnsupported
}

func (r *Renderer) PermissionContext() string {
	return r.Messages.PermissionContext
}

// Cards builds navigation cards. A single result is already covered by the
// spoken text, so cards need at least two stations and a rich surface.
func (r *Renderer) Cards(stations []models.Station, caps Capabilities) []Card {
	if !caps.SupportsRichCards || len(stations) < 2 {
		return nil
	}

	n := len(stations)
	if r.MaxCards > 0 && n > r.MaxCards {
		n = r.MaxCards
	}

	cards := make([]Card, 0, n)
	for _, s := range stations[:n] {
		cards = append(cards, Card{
			Title:       s.Name,
			URL:         MapURL(s),
			Description: s.Address,
			Footer:      r.FooterText,
			ImageURL:    r.ImageURL,
			ImageAlt:    r.ImageAlt,
		})
	}
	return cards
}

// MapURL links to the station on Google Maps, pinned to its place id when
// one is known.
func MapURL(s models.Station) string {
	q := url.Values{}
	q.Set("api", "1")
	q.Set("query", strconv.FormatFloat(s.Latitude, 'f', -1, 64)+","+strconv.FormatFloat(s.Longitude, 'f', -1, 64))
	if s.PlaceID != "" {
		q.Set("query_place_id", s.PlaceID)
	}
	return mapsSearchURL + "?" + q.Encode()
}
