package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/quartzcap/dataroom/internal/model"
	apperr "github.com/quartzcap/dataroom/internal/pkg/errors"
	"github.com/quartzcap/dataroom/internal/pkg/timeutil"
	"github.com/quartzcap/dataroom/internal/repo"
)

// StaffIdentity is a verified internal session identity supplied by the
// upstream authentication layer.
type StaffIdentity struct {
	Email string
	Name  string
}

type AccessService struct {
	links      *LinkService
	ndas       *NdaService
	grants     *repo.AccessGrantRepo
	accessLogs *AccessLogService
	grantTTL   time.Duration
	baseURL    string
	now        func() time.Time
}

func NewAccessService(links *LinkService, ndas *NdaService, grants *repo.AccessGrantRepo, accessLogs *AccessLogService, grantTTL time.Duration, baseURL string) *AccessService {
	return &AccessService{
		links:      links,
		ndas:       ndas,
		grants:     grants,
		accessLogs: accessLogs,
		grantTTL:   grantTTL,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		now:        time.Now,
	}
}

type AccessRequestInput struct {
	DocumentID string
	Action     string
	UserName   string // self-asserted external identity
	UserEmail  string
	Password   string
	Meta       RequestMeta
}

type AccessResult struct {
	Granted               bool   `json:"granted"`
	Reason                string `json:"reason,omitempty"`
	RequiresPassword      bool   `json:"requires_password,omitempty"`
	RequiresNda           bool   `json:"requires_nda,omitempty"`
	NdaTemplateID         string `json:"nda_template_id,omitempty"`
	URL                   string `json:"url,omitempty"`
	WatermarkApplied      bool   `json:"watermark_applied"`
	WatermarkTrackingCode string `json:"watermark_tracking_code,omitempty"`
}

// RequestAccess runs the full authorization chain for one view/download
// request and, on success, mints a single-use short-lived grant the document
// serving layer can redeem. Identity comes from the verified session when
// one exists; the client's own claim of having signed the NDA is never
// trusted, the grant index is consulted instead.
func (s *AccessService) RequestAccess(ctx context.Context, token string, input AccessRequestInput, session *StaffIdentity) (*AccessResult, error) {
	if input.DocumentID == "" {
		return nil, apperr.ErrInvalid
	}
	if input.Action != model.AccessActionView && input.Action != model.AccessActionDownload {
		return nil, apperr.ErrInvalid
	}

	identityKind := model.IdentityKindExternal
	name, email := input.UserName, input.UserEmail
	if session != nil {
		identityKind = model.IdentityKindSession
		name, email = session.Name, session.Email
	}

	// The NDA check needs the link's room before the validator runs, so the
	// link is pre-resolved here; the validator re-reads it and logs the one
	// authoritative attempt.
	ndaSigned := false
	if link, err := s.links.links.GetByToken(ctx, token); err == nil && link.RequireNda {
		verification, err := s.ndas.VerifyNdaAccess(ctx, link.RoomID, email)
		if err != nil {
			return nil, err
		}
		ndaSigned = verification.Valid
	} else if err != nil && !apperr.IsNotFound(err) {
		return nil, err
	}

	result, err := s.links.ValidateLink(ctx, token, ValidateOptions{
		UserEmail: email,
		UserName:  name,
		Password:  input.Password,
		NdaSigned: ndaSigned,
		Meta:      input.Meta,
	})
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return &AccessResult{
			Reason:           result.Reason,
			RequiresPassword: result.RequiresPassword,
			RequiresNda:      result.RequiresNda,
			NdaTemplateID:    result.NdaTemplateID,
		}, nil
	}
	link := result.Link

	allowed := (input.Action == model.AccessActionView && link.CanView) ||
		(input.Action == model.AccessActionDownload && link.CanDownload)
	if !allowed {
		if logErr := s.accessLogs.LogValidation(ctx, link, ReasonAccessDenied, false, email, name, input.Meta); logErr != nil {
			logutil.GetLogger(ctx).Error("log denied access failed", zap.Error(logErr))
		}
		return &AccessResult{Reason: ReasonAccessDenied}, nil
	}
	if link.RequireNda && email == "" {
		return &AccessResult{Reason: ReasonNdaRequired, RequiresNda: true, NdaTemplateID: link.NdaTemplateID}, nil
	}

	now := s.now()
	grant := &model.ShortLivedAccessGrant{
		ID:           uuid.NewString(),
		LinkID:       link.ID,
		RoomID:       link.RoomID,
		DocumentID:   input.DocumentID,
		Action:       input.Action,
		IdentityKind: identityKind,
		ViewerName:   name,
		ViewerEmail:  strings.ToLower(strings.TrimSpace(email)),
		CreatedAt:    timeutil.FormatISO(now),
	}
	if link.ApplyWatermark {
		grant.WatermarkCode = watermarkCode(name, email, grant.CreatedAt, input.DocumentID)
	}
	if err := s.grants.Create(ctx, grant, now.Add(s.grantTTL)); err != nil {
		return nil, err
	}

	if err := s.links.RecordUse(ctx, link); err != nil {
		return nil, err
	}
	if err := s.accessLogs.LogAccess(ctx, link, input.DocumentID, input.Action, email, name, input.Meta); err != nil {
		return nil, err
	}

	logutil.GetLogger(ctx).Info("access grant issued",
		zap.String("link_id", link.ID),
		zap.String("document_id", input.DocumentID),
		zap.String("action", input.Action),
		zap.String("identity_kind", identityKind),
	)
	return &AccessResult{
		Granted:               true,
		URL:                   s.baseURL + "/api/v1/access/" + grant.ID,
		WatermarkApplied:      link.ApplyWatermark,
		WatermarkTrackingCode: grant.WatermarkCode,
	}, nil
}

// RedeemGrant resolves a short-lived grant and consumes it. The record is
// deleted on redemption; the store TTL covers grants that are never
// redeemed.
func (s *AccessService) RedeemGrant(ctx context.Context, grantID string) (*model.ShortLivedAccessGrant, error) {
	grant, err := s.grants.Get(ctx, grantID)
	if err != nil {
		return nil, err
	}
	if err := s.grants.Delete(ctx, grantID); err != nil {
		return nil, err
	}
	return grant, nil
}

// watermarkCode derives the leak-attribution code embedded in served
// content. It binds viewer name, email, access timestamp and document so a
// leaked page traces back to one access event.
func watermarkCode(name, email, accessedAt, documentID string) string {
	payload := strings.Join([]string{name, strings.ToLower(email), accessedAt, documentID}, "|")
	sum := sha256.Sum256([]byte(payload))
	code := strings.ToUpper(hex.EncodeToString(sum[:8]))
	return fmt.Sprintf("WM-%s-%s-%s-%s", code[0:4], code[4:8], code[8:12], code[12:16])
}
