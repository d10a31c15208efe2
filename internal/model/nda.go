package model

const (
	SignatureStatusValid   = "valid"
	SignatureStatusRevoked = "revoked"
	SignatureStatusExpired = "expired"
)

const (
	GrantScopeFullRoom          = "full_room"
	GrantScopeSpecificDocuments = "specific_documents"
	GrantScopeSpecificFolders   = "specific_folders"
)

// NdaTemplate is one version of a room's NDA text. New versions append;
// history is never overwritten.
type NdaTemplate struct {
	ID        string `json:"id" dynamodbav:"id"`
	RoomID    string `json:"room_id" dynamodbav:"room_id"`
	Version   int    `json:"version" dynamodbav:"version"`
	Title     string `json:"title" dynamodbav:"title"`
	Content   string `json:"content" dynamodbav:"content"`
	IsActive  bool   `json:"is_active" dynamodbav:"is_active"`
	CreatedBy string `json:"created_by,omitempty" dynamodbav:"created_by,omitempty"`
	CreatedAt string `json:"created_at" dynamodbav:"created_at"`
}

// NdaSignature is an immutable record of one signer's acceptance.
// DocumentHash is a SHA-256 over the plain-text template content;
// SignatureHash binds signer, timestamp and DocumentHash so the record is
// verifiable without re-reading the template.
type NdaSignature struct {
	ID            string `json:"id" dynamodbav:"id"`
	RoomID        string `json:"room_id" dynamodbav:"room_id"`
	TemplateID    string `json:"template_id" dynamodbav:"template_id"`
	SignerName    string `json:"signer_name" dynamodbav:"signer_name"`
	SignerEmail   string `json:"signer_email" dynamodbav:"signer_email"`
	SignerTitle   string `json:"signer_title,omitempty" dynamodbav:"signer_title,omitempty"`
	SignerCompany string `json:"signer_company,omitempty" dynamodbav:"signer_company,omitempty"`
	LinkID        string `json:"link_id,omitempty" dynamodbav:"link_id,omitempty"`
	DocumentHash  string `json:"document_hash" dynamodbav:"document_hash"`
	SignatureHash string `json:"signature_hash" dynamodbav:"signature_hash"`
	SignedAt      string `json:"signed_at" dynamodbav:"signed_at"`
	Status        string `json:"status" dynamodbav:"status"`
}

// NdaAccessGrant is the per-email authorization derived from a signature.
// Its expiry is independent of the signature's own lifecycle.
type NdaAccessGrant struct {
	ID          string   `json:"id" dynamodbav:"id"`
	RoomID      string   `json:"room_id" dynamodbav:"room_id"`
	SignatureID string   `json:"signature_id" dynamodbav:"signature_id"`
	Email       string   `json:"email" dynamodbav:"email"`
	Scope       string   `json:"scope" dynamodbav:"scope"`
	DocumentIDs []string `json:"document_ids,omitempty" dynamodbav:"document_ids,omitempty"`
	FolderIDs   []string `json:"folder_ids,omitempty" dynamodbav:"folder_ids,omitempty"`
	GrantedAt   string   `json:"granted_at" dynamodbav:"granted_at"`
	ExpiresAt   string   `json:"expires_at" dynamodbav:"expires_at"`
	IsActive    bool     `json:"is_active" dynamodbav:"is_active"`
}
