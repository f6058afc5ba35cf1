package api

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"
)

// LambdaFunc is the signature of an API Gateway proxy handler.
type LambdaFunc func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// HTTPHandler serves a LambdaFunc over plain HTTP for local runs.
func HTTPHandler(fn LambdaFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "reading body", http.StatusBadRequest)
			return
		}

		request := events.APIGatewayProxyRequest{
			HTTPMethod:            r.Method,
			Path:                  r.URL.Path,
			Headers:               map[string]string{},
			QueryStringParameters: map[string]string{},
			Body:                  string(body),
		}
		for name := range r.Header {
			request.Headers[name] = r.Header.Get(name)
		}
		for name := range r.URL.Query() {
			request.QueryStringParameters[name] = r.URL.Query().Get(name)
		}

		resp, err := fn(r.Context(), request)
		if err != nil {
			log.Error().Err(err).Str("path", r.URL.Path).Msg("Handler failed")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		for name, value := range resp.Headers {
			w.Header().Set(name, value)
		}
		payload := []byte(resp.Body)
		if resp.IsBase64Encoded {
			if payload, err = base64.StdEncoding.DecodeString(resp.Body); err != nil {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
		}
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write(payload)
	}
}
