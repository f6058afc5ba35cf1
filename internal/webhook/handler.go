// Package webhook is the Dialogflow fulfillment endpoint of the voice assistant.
package webhook

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"
	"github.com/swapstation/backend-go/internal/api"
	"github.com/swapstation/backend-go/internal/query"
	"github.com/swapstation/backend-go/internal/render"
	"github.com/swapstation/backend-go/internal/session"
)

// Answerer produces the reply to a nearby query.
type Answerer interface {
	Answer(ctx context.Context, q query.Query, session string) *query.Result
}

// Intents holds the Dialogflow intent display names that are handled.
type Intents struct {
	AskLocation string
	Result      string
}

type Handler struct {
	answerer Answerer
	renderer *render.Renderer
	sessions session.Selector
	intents  Intents
}

func NewHandler(answerer Answerer, renderer *render.Renderer, sessions session.Selector, intents Intents) *Handler {
	if renderer == nil {
		renderer = render.NewRenderer()
	}
	return &Handler{
		answerer: answerer,
		renderer: renderer,
		sessions: sessions,
		intents:  intents,
	}
}

func (h *Handler) HandleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	body := []byte(request.Body)
	if request.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(request.Body)
		if err != nil {
			return api.Error("Invalid request body", http.StatusBadRequest)
		}
		body = decoded
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		log.Warn().Err(err).Msg("Invalid webhook request")
		return api.Error("Invalid request body", http.StatusBadRequest)
	}

	resp, ok := h.Fulfill(ctx, &req)
	if !ok {
		log.Warn().Str("intent", req.IntentName()).Msg("Unhandled intent")
		return api.Error("Unhandled intent", http.StatusBadRequest)
	}
	return api.Success(resp)
}

// Fulfill dispatches on the intent name. ok is false for intents this
// handler does not serve.
func (h *Handler) Fulfill(ctx context.Context, req *Request) (*Response, bool) {
	switch req.IntentName() {
	case h.intents.AskLocation:
		return h.askLocation(req), true
	case h.intents.Result:
		return h.result(ctx, req), true
	default:
		return nil, false
	}
}

func (h *Handler) askLocation(req *Request) *Response {
	if !req.Verified() {
		return closeWith(h.renderer.GuestUnsupported())
	}

	return &Response{
		Payload: ResponsePayload{Google: GoogleResponse{
			ExpectUserResponse: true,
			RichResponse: &RichResponse{Items: []RichItem{
				{SimpleResponse: &SimpleResponse{TextToSpeech: permissionPlaceholder}},
			}},
			SystemIntent: &SystemIntent{
				Intent: permissionIntent,
				Data: PermissionSpec{
					Type:        permissionValueSpec,
					OptContext:  h.renderer.PermissionContext(),
					Permissions: []string{preciseLocation},
				},
			},
		}},
	}
}

func (h *Handler) result(ctx context.Context, req *Request) *Response {
	if !req.PermissionGranted() {
		return closeWith(h.renderer.LocationUnavailable())
	}

	key := req.SessionKey()
	lat, lng, hasLocation := req.Location()
	if !hasLocation {
		last := h.recall(ctx, req, key)
		if last == nil {
			return closeWith(h.renderer.LocationUnavailable())
		}
		log.Debug().Str("session", key).Msg("Device location missing, using remembered location")
		lat, lng = last.Latitude, last.Longitude
	}

	result := h.answerer.Answer(ctx, query.Query{
		Lat: lat,
		Lng: lng,
		Capabilities: render.Capabilities{
			SupportsRichCards: req.HasCapability(capabilityWebBrowser),
		},
	}, key)

	h.remember(ctx, req, key, lat, lng, result)

	resp := closeWith(result.SpokenText)
	if len(result.Cards) > 0 {
		resp.Payload.Google.RichResponse.Items = append(resp.Payload.Google.RichResponse.Items, RichItem{
			CarouselBrowse: carousel(result.Cards),
		})
	}
	return resp
}

// recall returns the last remembered location of the conversation, or nil.
func (h *Handler) recall(ctx context.Context, req *Request, key string) *session.Record {
	store := h.sessions.For(req.Verified())
	if store == nil || key == "" {
		return nil
	}

	record, err := store.Load(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("session", key).Msg("Failed to load session")
		return nil
	}
	return record
}

// remember stores the last answer. Failures only cost the history, so they
// are logged and the reply is still sent.
func (h *Handler) remember(ctx context.Context, req *Request, key string, lat, lng float64, result *query.Result) {
	store := h.sessions.For(req.Verified())
	if store == nil || key == "" {
		return
	}

	ids := make([]string, 0, len(result.Stations))
	for _, s := range result.Stations {
		ids = append(ids, s.ID)
	}
	record := session.Record{
		Latitude:   lat,
		Longitude:  lng,
		StationIDs: ids,
		SpokenText: result.SpokenText,
	}
	if err := store.Save(ctx, key, record); err != nil {
		log.Warn().Err(err).Str("session", key).Msg("Failed to save session")
	}
}

func closeWith(text string) *Response {
	return &Response{
		FulfillmentText: text,
		Payload: ResponsePayload{Google: GoogleResponse{
			ExpectUserResponse: false,
			RichResponse: &RichResponse{Items: []RichItem{
				{SimpleResponse: &SimpleResponse{TextToSpeech: text}},
			}},
		}},
	}
}

func carousel(cards []render.Card) *CarouselBrowse {
	items := make([]CarouselItem, 0, len(cards))
	for _, c := range cards {
		item := CarouselItem{
			Title:         c.Title,
			OpenURLAction: OpenURLAction{URL: c.URL},
			Description:   c.Description,
			Footer:        c.Footer,
		}
		if c.ImageURL != "" {
			item.Image = &Image{URL: c.ImageURL, AccessibilityText: c.ImageAlt}
		}
		items = append(items, item)
	}
	return &CarouselBrowse{Items: items}
}
