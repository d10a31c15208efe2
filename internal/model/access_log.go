package model

const (
	LogEventValidation = "validation"
	LogEventAccess     = "access"
)

// AccessLogEntry is append-only: one entry per validation attempt (success
// or failure) and one per access-grant issuance. Entries are never mutated
// or deleted.
type AccessLogEntry struct {
	ID         string `json:"id" dynamodbav:"id"`
	LinkID     string `json:"link_id,omitempty" dynamodbav:"link_id,omitempty"`
	RoomID     string `json:"room_id,omitempty" dynamodbav:"room_id,omitempty"`
	Event      string `json:"event" dynamodbav:"event"`
	Success    bool   `json:"success" dynamodbav:"success"`
	Reason     string `json:"reason,omitempty" dynamodbav:"reason,omitempty"`
	DocumentID string `json:"document_id,omitempty" dynamodbav:"document_id,omitempty"`
	Action     string `json:"action,omitempty" dynamodbav:"action,omitempty"`
	UserEmail  string `json:"user_email,omitempty" dynamodbav:"user_email,omitempty"`
	UserName   string `json:"user_name,omitempty" dynamodbav:"user_name,omitempty"`
	VisitorIP  string `json:"visitor_ip,omitempty" dynamodbav:"visitor_ip,omitempty"`
	UserAgent  string `json:"user_agent,omitempty" dynamodbav:"user_agent,omitempty"`
	OccurredAt string `json:"occurred_at" dynamodbav:"occurred_at"`
}
