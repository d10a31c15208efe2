package model

const (
	LinkStatusActive    = "active"
	LinkStatusExpired   = "expired"
	LinkStatusRevoked   = "revoked"
	LinkStatusExhausted = "exhausted"
)

// SharedLink is a bearer capability granting scoped, time/use-limited access
// to one document, one folder, or the whole room. The token is the sole
// bearer credential; the short code is a human-shareable alias for it.
type SharedLink struct {
	ID        string `json:"id" dynamodbav:"id"`
	RoomID    string `json:"room_id" dynamodbav:"room_id"`
	Token     string `json:"token" dynamodbav:"token"`
	ShortCode string `json:"short_code" dynamodbav:"short_code"`

	// Scope: at most one of DocumentID/FolderID is set; both empty means
	// the link covers the entire room.
	DocumentID string `json:"document_id,omitempty" dynamodbav:"document_id,omitempty"`
	FolderID   string `json:"folder_id,omitempty" dynamodbav:"folder_id,omitempty"`

	CreatedBy string `json:"created_by" dynamodbav:"created_by"`
	CreatedAt string `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt string `json:"expires_at" dynamodbav:"expires_at"`

	MaxUses     int `json:"max_uses,omitempty" dynamodbav:"max_uses,omitempty"`
	CurrentUses int `json:"current_uses" dynamodbav:"current_uses"`

	RecipientEmail  string `json:"recipient_email,omitempty" dynamodbav:"recipient_email,omitempty"`
	RequirePassword bool   `json:"require_password" dynamodbav:"require_password"`
	PasswordHash    string `json:"-" dynamodbav:"password_hash,omitempty"`
	RequireNda      bool   `json:"require_nda" dynamodbav:"require_nda"`
	NdaTemplateID   string `json:"nda_template_id,omitempty" dynamodbav:"nda_template_id,omitempty"`

	CanView        bool `json:"can_view" dynamodbav:"can_view"`
	CanDownload    bool `json:"can_download" dynamodbav:"can_download"`
	CanPrint       bool `json:"can_print" dynamodbav:"can_print"`
	ApplyWatermark bool `json:"apply_watermark" dynamodbav:"apply_watermark"`
	TrackActivity  bool `json:"track_activity" dynamodbav:"track_activity"`

	Status string `json:"status" dynamodbav:"status"`
}
