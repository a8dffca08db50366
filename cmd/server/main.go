package main

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"os"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/jun/watchlist/internal/app"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to read .env")
	}

	application, err := app.New(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application")
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	log.Info().Str("addr", addr).Msg("starting local server")
	if err := http.ListenAndServe(addr, newRouter(application)); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// newRouter mirrors the API Gateway resources so requests reach the Lambda
// handler with Resource and PathParameters populated.
func newRouter(application *app.App) *mux.Router {
	r := mux.NewRouter()
	for _, prefix := range []string{"", "/api"} {
		r.Handle(prefix+"/watchList", proxy(application, "/watchList"))
		r.Handle(prefix+"/watchList/{itemId}", proxy(application, "/watchList/{itemId}"))
		r.Handle(prefix+"/watchList/{itemId}/attachment", proxy(application, "/watchList/{itemId}/attachment"))
	}
	r.NotFoundHandler = proxy(application, "")
	return r
}

func proxy(application *app.App, resource string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		headers := make(map[string]string)
		for k, v := range r.Header {
			headers[k] = v[0]
		}

		queryParams := make(map[string]string)
		for k, v := range r.URL.Query() {
			queryParams[k] = v[0]
		}

		req := events.APIGatewayProxyRequest{
			Resource:              resource,
			Path:                  r.URL.Path,
			HTTPMethod:            r.Method,
			Headers:               headers,
			QueryStringParameters: queryParams,
			PathParameters:        mux.Vars(r),
			Body:                  string(body),
		}
		if !utf8.Valid(body) {
			req.Body = base64.StdEncoding.EncodeToString(body)
			req.IsBase64Encoded = true
		}

		resp, err := application.HandleRequest(r.Context(), req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(resp.StatusCode)
		w.Write([]byte(resp.Body))
	})
}
