package model

// WatchListItem is one entry in a user's watch list.
// The (UserID, ItemID) pair is the table's primary key.
type WatchListItem struct {
	UserID        string `json:"userId" dynamodbav:"userId"`
	ItemID        string `json:"itemId" dynamodbav:"itemId"`
	Name          string `json:"name" dynamodbav:"name"`
	CreatedAt     string `json:"createdAt" dynamodbav:"createdAt"` // RFC 3339, UTC
	AttachmentURL string `json:"attachmentUrl,omitempty" dynamodbav:"attachmentUrl,omitempty"`
}

// CreateItemRequest is the body of POST /watchList.
type CreateItemRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// UpdateItemRequest is the body of PATCH /watchList/{itemId}.
type UpdateItemRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}
