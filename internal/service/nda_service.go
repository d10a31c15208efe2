package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/quartzcap/dataroom/internal/model"
	apperr "github.com/quartzcap/dataroom/internal/pkg/errors"
	"github.com/quartzcap/dataroom/internal/pkg/timeutil"
	"github.com/quartzcap/dataroom/internal/repo"
)

const defaultNdaTitle = "Non-Disclosure Agreement"

const defaultNdaContent = `<h1>Non-Disclosure Agreement</h1>
<p>By accessing documents in this data room you agree to keep all
information contained in them strictly confidential, to use it solely for
the purpose of evaluating a potential investment, and not to reproduce or
distribute any material without prior written consent.</p>
<p>This obligation survives the expiry of your access.</p>`

type NdaService struct {
	ndas          *repo.NdaRepo
	grantValidity time.Duration
	now           func() time.Time
}

func NewNdaService(ndas *repo.NdaRepo, grantValidity time.Duration) *NdaService {
	return &NdaService{ndas: ndas, grantValidity: grantValidity, now: time.Now}
}

// GetActiveTemplateForRoom returns the newest template flagged active,
// seeding a default template the first time a room is asked for one. The
// seed is create-on-read so rooms need no separate provisioning step.
func (s *NdaService) GetActiveTemplateForRoom(ctx context.Context, roomID string) (*model.NdaTemplate, error) {
	templates, err := s.ndas.ListTemplatesByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	var newest *model.NdaTemplate
	for i := range templates {
		if !templates[i].IsActive {
			continue
		}
		// Versions disambiguate templates created within the same second.
		if newest == nil || templates[i].Version > newest.Version {
			newest = &templates[i]
		}
	}
	if newest != nil {
		return newest, nil
	}
	return s.CreateTemplate(ctx, roomID, defaultNdaTitle, defaultNdaContent, "")
}

// CreateTemplate appends a new template version flagged active. Prior
// versions keep their flags untouched; "active" is resolved as the newest
// flagged record, so history survives for audit.
func (s *NdaService) CreateTemplate(ctx context.Context, roomID, title, content, createdBy string) (*model.NdaTemplate, error) {
	if roomID == "" || content == "" {
		return nil, apperr.ErrInvalid
	}
	existing, err := s.ndas.ListTemplatesByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = defaultNdaTitle
	}
	tpl := &model.NdaTemplate{
		ID:        newID(),
		RoomID:    roomID,
		Version:   len(existing) + 1,
		Title:     title,
		Content:   content,
		IsActive:  true,
		CreatedBy: createdBy,
		CreatedAt: timeutil.FormatISO(s.now()),
	}
	if err := s.ndas.CreateTemplate(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *NdaService) GetTemplate(ctx context.Context, id string) (*model.NdaTemplate, error) {
	return s.ndas.GetTemplate(ctx, id)
}

func (s *NdaService) ListSignatures(ctx context.Context, roomID string) ([]model.NdaSignature, error) {
	return s.ndas.ListSignaturesByRoom(ctx, roomID)
}

type SignNdaInput struct {
	RoomID        string
	TemplateID    string // empty means the room's active template
	SignerName    string
	SignerEmail   string
	SignerTitle   string
	SignerCompany string
	LinkID        string
}

type SignNdaResult struct {
	Signature   *model.NdaSignature   `json:"signature"`
	AccessGrant *model.NdaAccessGrant `json:"access_grant"`
}

// SignNda records a signature and derives a full-room access grant for the
// signer's email. DocumentHash covers the tag-stripped plain text, so two
// signatures of the same unmodified template hash identically regardless of
// markup churn; SignatureHash binds signer, timestamp and DocumentHash.
func (s *NdaService) SignNda(ctx context.Context, input SignNdaInput) (*SignNdaResult, error) {
	if input.RoomID == "" || input.SignerName == "" || input.SignerEmail == "" {
		return nil, apperr.ErrInvalid
	}
	var tpl *model.NdaTemplate
	var err error
	if input.TemplateID != "" {
		tpl, err = s.ndas.GetTemplate(ctx, input.TemplateID)
	} else {
		tpl, err = s.GetActiveTemplateForRoom(ctx, input.RoomID)
	}
	if err != nil {
		return nil, err
	}
	if tpl.RoomID != input.RoomID {
		return nil, apperr.ErrForbidden
	}

	now := s.now()
	signedAt := timeutil.FormatISO(now)
	email := strings.ToLower(strings.TrimSpace(input.SignerEmail))
	documentHash := hashDocument(tpl.Content)

	sig := &model.NdaSignature{
		ID:            newID(),
		RoomID:        input.RoomID,
		TemplateID:    tpl.ID,
		SignerName:    input.SignerName,
		SignerEmail:   email,
		SignerTitle:   input.SignerTitle,
		SignerCompany: input.SignerCompany,
		LinkID:        input.LinkID,
		DocumentHash:  documentHash,
		SignatureHash: hashSignature(input.SignerName, email, signedAt, documentHash),
		SignedAt:      signedAt,
		Status:        model.SignatureStatusValid,
	}
	if err := s.ndas.CreateSignature(ctx, sig); err != nil {
		return nil, err
	}

	grant := &model.NdaAccessGrant{
		ID:          newID(),
		RoomID:      input.RoomID,
		SignatureID: sig.ID,
		Email:       email,
		Scope:       model.GrantScopeFullRoom,
		GrantedAt:   signedAt,
		ExpiresAt:   timeutil.FormatISO(now.Add(s.grantValidity)),
		IsActive:    true,
	}
	if err := s.ndas.CreateGrant(ctx, grant); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("nda signed",
		zap.String("room_id", input.RoomID),
		zap.String("template_id", tpl.ID),
		zap.String("signer_email", email),
	)
	return &SignNdaResult{Signature: sig, AccessGrant: grant}, nil
}

type NdaVerificationResult struct {
	Valid    bool                  `json:"valid"`
	Error    string                `json:"error,omitempty"`
	Grant    *model.NdaAccessGrant `json:"grant,omitempty"`
	Template *model.NdaTemplate    `json:"template,omitempty"`
}

// VerifyNdaAccess checks whether the email holds a currently valid grant for
// the room, via the reverse index: no signature scan is involved. The active
// template rides along on success so callers can show which version was
// signed against.
func (s *NdaService) VerifyNdaAccess(ctx context.Context, roomID, email string) (*NdaVerificationResult, error) {
	email = strings.TrimSpace(email)
	if roomID == "" || email == "" {
		return &NdaVerificationResult{Valid: false, Error: "no_signature"}, nil
	}
	grants, err := s.ndas.ListGrants(ctx, roomID, email)
	if err != nil {
		return nil, err
	}
	if len(grants) == 0 {
		return &NdaVerificationResult{Valid: false, Error: "no_signature"}, nil
	}
	grant := grants[0]
	if !grant.IsActive {
		return &NdaVerificationResult{Valid: false, Error: "revoked"}, nil
	}
	if expiry, err := timeutil.ParseISO(grant.ExpiresAt); err == nil && s.now().After(expiry) {
		return &NdaVerificationResult{Valid: false, Error: "expired"}, nil
	}
	tpl, err := s.GetActiveTemplateForRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &NdaVerificationResult{Valid: true, Grant: &grant, Template: tpl}, nil
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// stripTags reduces template markup to its visible text so the document
// hash is stable across markup-only edits.
func stripTags(content string) string {
	text := tagPattern.ReplaceAllString(content, " ")
	return strings.Join(strings.Fields(text), " ")
}

func hashDocument(content string) string {
	sum := sha256.Sum256([]byte(stripTags(content)))
	return hex.EncodeToString(sum[:])
}

func hashSignature(name, email, signedAt, documentHash string) string {
	payload := strings.Join([]string{name, strings.ToLower(email), signedAt, documentHash}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
