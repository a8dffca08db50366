package handler

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jun/watchlist/internal/auth"
	"github.com/jun/watchlist/internal/model"
)

// WatchListService is the business layer behind the watch list routes.
type WatchListService interface {
	ListItems(ctx context.Context, token string) ([]model.WatchListItem, error)
	GetItem(ctx context.Context, token, itemID string) (*model.WatchListItem, error)
	CreateItem(ctx context.Context, token string, req model.CreateItemRequest) (*model.WatchListItem, error)
	UpdateItem(ctx context.Context, token, itemID string, req model.UpdateItemRequest) (*model.WatchListItem, error)
	DeleteItem(ctx context.Context, token, itemID string) (*model.WatchListItem, error)
	GenerateUploadURL(ctx context.Context, token, itemID string) (string, error)
}

// WatchListHandler serves the /watchList routes.
type WatchListHandler struct {
	service WatchListService
}

// NewWatchListHandler creates a new WatchListHandler.
func NewWatchListHandler(service WatchListService) *WatchListHandler {
	return &WatchListHandler{service: service}
}

type itemsResponse struct {
	Items []model.WatchListItem `json:"items"`
}

type itemResponse struct {
	Item *model.WatchListItem `json:"item"`
}

type updatedItemResponse struct {
	UpdatedItem *model.WatchListItem `json:"updatedItem"`
}

type deletedItemResponse struct {
	DeletedItem *model.WatchListItem `json:"deletedItem"`
}

type uploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
}

// ListItems handles GET /watchList.
func (h *WatchListHandler) ListItems(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	token, err := auth.BearerToken(req.Headers)
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}

	items, err := h.service.ListItems(ctx, token)
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}
	if items == nil {
		items = []model.WatchListItem{}
	}
	return jsonResponse(http.StatusOK, itemsResponse{Items: items}), nil
}

// CreateItem handles POST /watchList.
func (h *WatchListHandler) CreateItem(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	token, err := auth.BearerToken(req.Headers)
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}

	var payload model.CreateItemRequest
	if err := decodeBody(req, &payload); err != nil {
		return ErrorResponse(ctx, err), nil
	}

	item, err := h.service.CreateItem(ctx, token, payload)
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}
	return jsonResponse(http.StatusCreated, itemResponse{Item: item}), nil
}

// GetItem handles GET /watchList/{itemId}.
func (h *WatchListHandler) GetItem(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	token, err := auth.BearerToken(req.Headers)
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}

	itemID := req.PathParameters["itemId"]
	if itemID == "" {
		return JSONError(http.StatusBadRequest, "Missing itemId"), nil
	}

	item, err := h.service.GetItem(ctx, token, itemID)
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}
	return jsonResponse(http.StatusOK, itemResponse{Item: item}), nil
}

// UpdateItem handles PATCH /watchList/{itemId}.
func (h *WatchListHandler) UpdateItem(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	token, err := auth.BearerToken(req.Headers)
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}

	itemID := req.PathParameters["itemId"]
	if itemID == "" {
		return JSONError(http.StatusBadRequest, "Missing itemId"), nil
	}

	var payload model.UpdateItemRequest
	if err := decodeBody(req, &payload); err != nil {
		return ErrorResponse(ctx, err), nil
	}

	item, err := h.service.UpdateItem(ctx, token, itemID, payload)
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}
	return jsonResponse(http.StatusOK, updatedItemResponse{UpdatedItem: item}), nil
}

// DeleteItem handles DELETE /watchList/{itemId}. Deleting an absent item
// succeeds with a null deletedItem.
func (h *WatchListHandler) DeleteItem(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	token, err := auth.BearerToken(req.Headers)
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}

	itemID := req.PathParameters["itemId"]
	if itemID == "" {
		return JSONError(http.StatusBadRequest, "Missing itemId"), nil
	}

	item, err := h.service.DeleteItem(ctx, token, itemID)
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}
	return jsonResponse(http.StatusOK, deletedItemResponse{DeletedItem: item}), nil
}

// GenerateUploadURL handles POST /watchList/{itemId}/attachment.
func (h *WatchListHandler) GenerateUploadURL(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	token, err := auth.BearerToken(req.Headers)
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}

	itemID := req.PathParameters["itemId"]
	if itemID == "" {
		return JSONError(http.StatusBadRequest, "Missing itemId"), nil
	}

	uploadURL, err := h.service.GenerateUploadURL(ctx, token, itemID)
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}
	return jsonResponse(http.StatusCreated, uploadURLResponse{UploadURL: uploadURL}), nil
}
