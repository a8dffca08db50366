package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/jun/watchlist/internal/auth"
	"github.com/jun/watchlist/internal/store"
	"github.com/jun/watchlist/internal/watchlist"
)

// errBadBody is returned when the request body is not the expected JSON document.
var errBadBody = fmt.Errorf("%w: body must be a JSON object", watchlist.ErrInvalidRequest)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// jsonResponse marshals v into an API Gateway response with the given status.
func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"Internal Server Error"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// JSONError builds a JSON error response.
func JSONError(status int, msg string) events.APIGatewayProxyResponse {
	return jsonResponse(status, errorBody{Error: msg})
}

// ErrorResponse maps an error from the service layer onto its HTTP status.
// Unexpected errors are logged and reported with a generic message.
func ErrorResponse(ctx context.Context, err error) events.APIGatewayProxyResponse {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return JSONError(http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, watchlist.ErrInvalidRequest):
		return JSONError(http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		return JSONError(http.StatusNotFound, "Item not found")
	default:
		zerolog.Ctx(ctx).Error().Err(err).Msg("request failed")
		return JSONError(http.StatusInternalServerError, "Internal Server Error")
	}
}

// decodeBody unmarshals the request body into v, undoing API Gateway's base64
// encoding when it was applied.
func decodeBody(req events.APIGatewayProxyRequest, v any) error {
	raw := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return errBadBody
		}
		raw = decoded
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errBadBody
	}
	return nil
}
