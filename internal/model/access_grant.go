package model

const (
	AccessActionView     = "view"
	AccessActionDownload = "download"
)

const (
	IdentityKindSession  = "session"
	IdentityKindExternal = "external"
)

// ShortLivedAccessGrant is minted per successful view/download request and
// redeemed once by the document-serving layer. Eviction after the TTL is
// delegated to the store.
type ShortLivedAccessGrant struct {
	ID            string `json:"id" dynamodbav:"id"`
	LinkID        string `json:"link_id" dynamodbav:"link_id"`
	RoomID        string `json:"room_id" dynamodbav:"room_id"`
	DocumentID    string `json:"document_id" dynamodbav:"document_id"`
	Action        string `json:"action" dynamodbav:"action"`
	IdentityKind  string `json:"identity_kind" dynamodbav:"identity_kind"`
	ViewerName    string `json:"viewer_name,omitempty" dynamodbav:"viewer_name,omitempty"`
	ViewerEmail   string `json:"viewer_email,omitempty" dynamodbav:"viewer_email,omitempty"`
	WatermarkCode string `json:"watermark_code,omitempty" dynamodbav:"watermark_code,omitempty"`
	CreatedAt     string `json:"created_at" dynamodbav:"created_at"`
}
