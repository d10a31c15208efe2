package service

import (
	"context"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/quartzcap/dataroom/internal/model"
	apperr "github.com/quartzcap/dataroom/internal/pkg/errors"
	"github.com/quartzcap/dataroom/internal/pkg/password"
	"github.com/quartzcap/dataroom/internal/pkg/timeutil"
	"github.com/quartzcap/dataroom/internal/repo"
)

// Validation outcomes. Every failure maps to a client-actionable reason.
const (
	ReasonNotFound         = "not_found"
	ReasonExpired          = "expired"
	ReasonRevoked          = "revoked"
	ReasonExhausted        = "exhausted"
	ReasonWrongEmail       = "wrong_email"
	ReasonPasswordRequired = "password_required"
	ReasonNdaRequired      = "nda_required"
	ReasonAccessDenied     = "access_denied"
	ReasonRateLimited      = "rate_limited"
)

const maxRoomLinks = 200

type LinkService struct {
	links      *repo.LinkRepo
	accessLogs *AccessLogService
	now        func() time.Time
}

func NewLinkService(links *repo.LinkRepo, accessLogs *AccessLogService) *LinkService {
	return &LinkService{links: links, accessLogs: accessLogs, now: time.Now}
}

// ExpirySpec is a relative expiry: amount of hours, days or weeks.
type ExpirySpec struct {
	Amount int    `json:"amount"`
	Unit   string `json:"unit"`
}

func (e ExpirySpec) duration() (time.Duration, bool) {
	if e.Amount <= 0 {
		return 0, false
	}
	switch e.Unit {
	case "hours":
		return time.Duration(e.Amount) * time.Hour, true
	case "days":
		return time.Duration(e.Amount) * 24 * time.Hour, true
	case "weeks":
		return time.Duration(e.Amount) * 7 * 24 * time.Hour, true
	}
	return 0, false
}

type CreateLinkInput struct {
	RoomID     string
	DocumentID string
	FolderID   string
	CreatedBy  string

	ExpiresIn ExpirySpec
	ExpiresAt string // absolute override, RFC 3339

	MaxUses        int
	RecipientEmail string
	Password       string
	RequireNda     bool
	NdaTemplateID  string

	// Defaults are view-only with watermarking on: downloads and printing
	// are opt-in, watermarking and activity tracking are opt-out.
	CanDownload    bool
	CanPrint       bool
	ApplyWatermark *bool
	TrackActivity  *bool
}

const defaultLinkLifetime = 7 * 24 * time.Hour

// CreateLink mints a link with a fresh token and short code and registers
// all lookup paths.
func (s *LinkService) CreateLink(ctx context.Context, input CreateLinkInput) (*model.SharedLink, error) {
	if input.RoomID == "" {
		return nil, apperr.ErrInvalid
	}
	if input.DocumentID != "" && input.FolderID != "" {
		return nil, apperr.ErrInvalid
	}
	now := s.now()
	expiresAt := input.ExpiresAt
	if expiresAt == "" {
		lifetime := defaultLinkLifetime
		if d, ok := input.ExpiresIn.duration(); ok {
			lifetime = d
		}
		expiresAt = timeutil.FormatISO(now.Add(lifetime))
	} else if _, err := timeutil.ParseISO(expiresAt); err != nil {
		return nil, apperr.ErrInvalid
	}

	link := &model.SharedLink{
		RoomID:         input.RoomID,
		DocumentID:     input.DocumentID,
		FolderID:       input.FolderID,
		CreatedBy:      input.CreatedBy,
		CreatedAt:      timeutil.FormatISO(now),
		ExpiresAt:      expiresAt,
		MaxUses:        input.MaxUses,
		RecipientEmail: strings.ToLower(strings.TrimSpace(input.RecipientEmail)),
		RequireNda:     input.RequireNda,
		NdaTemplateID:  input.NdaTemplateID,
		CanView:        true,
		CanDownload:    input.CanDownload,
		CanPrint:       input.CanPrint,
		ApplyWatermark: true,
		TrackActivity:  true,
		Status:         model.LinkStatusActive,
	}
	if input.ApplyWatermark != nil {
		link.ApplyWatermark = *input.ApplyWatermark
	}
	if input.TrackActivity != nil {
		link.TrackActivity = *input.TrackActivity
	}
	if input.Password != "" {
		hash, err := password.Hash(input.Password)
		if err != nil {
			return nil, err
		}
		link.RequirePassword = true
		link.PasswordHash = hash
	}

	// Short codes are only 8 characters, so a collision with an existing
	// link is possible; the conditional index write detects it and we retry
	// with fresh identifiers.
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		link.ID = newID()
		link.Token = newToken()
		link.ShortCode = newShortCode()
		err = s.links.Create(ctx, link)
		if err == nil {
			return link, nil
		}
		if !apperr.IsConflict(err) {
			return nil, err
		}
	}
	return nil, err
}

func (s *LinkService) GetLinkByID(ctx context.Context, id string) (*model.SharedLink, error) {
	link, err := s.links.GetByID(ctx, id)
	return s.refreshStatus(ctx, link, err)
}

func (s *LinkService) GetLinkByToken(ctx context.Context, token string) (*model.SharedLink, error) {
	link, err := s.links.GetByToken(ctx, token)
	return s.refreshStatus(ctx, link, err)
}

func (s *LinkService) GetLinkByShortCode(ctx context.Context, code string) (*model.SharedLink, error) {
	link, err := s.links.GetByShortCode(ctx, code)
	return s.refreshStatus(ctx, link, err)
}

func (s *LinkService) GetLinksByRoom(ctx context.Context, roomID string) ([]model.SharedLink, error) {
	links, err := s.links.ListByRoom(ctx, roomID, maxRoomLinks)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range links {
		links[i].Status = computeEffectiveStatus(&links[i], now)
	}
	return links, nil
}

// RevokeLink is the only explicit owner-driven status transition. Revoked is
// terminal: nothing flips a link back to active.
func (s *LinkService) RevokeLink(ctx context.Context, id string) (*model.SharedLink, error) {
	link, err := s.links.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	link.Status = model.LinkStatusRevoked
	if err := s.links.Update(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

// ExtendLink pushes the expiry out. An expired link becomes active again;
// a revoked link stays revoked.
func (s *LinkService) ExtendLink(ctx context.Context, id string, spec ExpirySpec, absolute string) (*model.SharedLink, error) {
	link, err := s.links.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	newExpiry := absolute
	if newExpiry == "" {
		d, ok := spec.duration()
		if !ok {
			return nil, apperr.ErrInvalid
		}
		newExpiry = timeutil.FormatISO(s.now().Add(d))
	} else if _, err := timeutil.ParseISO(newExpiry); err != nil {
		return nil, apperr.ErrInvalid
	}
	link.ExpiresAt = newExpiry
	if link.Status == model.LinkStatusExpired {
		link.Status = model.LinkStatusActive
	}
	if err := s.links.Update(ctx, link); err != nil {
		return nil, err
	}
	link.Status = computeEffectiveStatus(link, s.now())
	return link, nil
}

type ValidateOptions struct {
	UserEmail    string
	UserName     string
	Password     string
	NdaSigned    bool
	SkipNdaCheck bool
	Meta         RequestMeta
}

type ValidateLinkResult struct {
	Valid            bool              `json:"valid"`
	Reason           string            `json:"reason,omitempty"`
	Link             *model.SharedLink `json:"link,omitempty"`
	RequiresPassword bool              `json:"requires_password,omitempty"`
	RequiresNda      bool              `json:"requires_nda,omitempty"`
	NdaTemplateID    string            `json:"nda_template_id,omitempty"`
}

// ValidateLink runs the ordered multi-factor pipeline. Each check
// short-circuits with its own reason; the recipient restriction is checked
// before password and NDA so an unauthorized recipient learns nothing about
// the remaining factors. Every outcome is logged before it is returned.
func (s *LinkService) ValidateLink(ctx context.Context, token string, opts ValidateOptions) (*ValidateLinkResult, error) {
	result, link, err := s.runChecks(ctx, token, opts)
	if err != nil {
		return nil, err
	}
	if logErr := s.accessLogs.LogValidation(ctx, link, result.Reason, result.Valid, opts.UserEmail, opts.UserName, opts.Meta); logErr != nil {
		// Audit writes gate validity: a link must not validate without its
		// attempt on record.
		if result.Valid {
			return nil, logErr
		}
		logutil.GetLogger(ctx).Error("log validation attempt failed", zap.Error(logErr))
	}
	return result, nil
}

func (s *LinkService) runChecks(ctx context.Context, token string, opts ValidateOptions) (*ValidateLinkResult, *model.SharedLink, error) {
	link, err := s.links.GetByToken(ctx, token)
	if apperr.IsNotFound(err) {
		return &ValidateLinkResult{Reason: ReasonNotFound}, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	switch link.Status {
	case model.LinkStatusRevoked:
		return &ValidateLinkResult{Reason: ReasonRevoked}, link, nil
	case model.LinkStatusExhausted:
		return &ValidateLinkResult{Reason: ReasonExhausted}, link, nil
	}

	now := s.now()
	if effective := computeEffectiveStatus(link, now); effective != link.Status {
		s.persistStatus(ctx, link, effective)
		switch effective {
		case model.LinkStatusExpired:
			return &ValidateLinkResult{Reason: ReasonExpired}, link, nil
		case model.LinkStatusExhausted:
			return &ValidateLinkResult{Reason: ReasonExhausted}, link, nil
		}
	}

	if link.RecipientEmail != "" &&
		!strings.EqualFold(strings.TrimSpace(opts.UserEmail), link.RecipientEmail) {
		return &ValidateLinkResult{Reason: ReasonWrongEmail}, link, nil
	}

	if link.RequirePassword {
		if opts.Password == "" || password.Compare(link.PasswordHash, opts.Password) != nil {
			return &ValidateLinkResult{Reason: ReasonPasswordRequired, RequiresPassword: true}, link, nil
		}
	}

	if link.RequireNda && !opts.SkipNdaCheck && !opts.NdaSigned {
		return &ValidateLinkResult{
			Reason:        ReasonNdaRequired,
			RequiresNda:   true,
			NdaTemplateID: link.NdaTemplateID,
		}, link, nil
	}

	return &ValidateLinkResult{Valid: true, Link: link}, link, nil
}

// RecordUse bumps the usage counter after a successful access. The check in
// the validator and this increment are not one atomic step; see the repo
// note on the advisory cap.
func (s *LinkService) RecordUse(ctx context.Context, link *model.SharedLink) error {
	uses, err := s.links.IncrementUses(ctx, link.ID)
	if err != nil {
		return err
	}
	link.CurrentUses = int(uses)
	return nil
}

// computeEffectiveStatus derives the status a link should be in at the given
// instant. Transitions are one-way: revoked and exhausted are terminal, and
// active decays to expired or exhausted without requiring any background
// sweep to have run.
func computeEffectiveStatus(link *model.SharedLink, now time.Time) string {
	if link.Status != model.LinkStatusActive {
		return link.Status
	}
	if expiry, err := timeutil.ParseISO(link.ExpiresAt); err == nil && now.After(expiry) {
		return model.LinkStatusExpired
	}
	if link.MaxUses > 0 && link.CurrentUses >= link.MaxUses {
		return model.LinkStatusExhausted
	}
	return model.LinkStatusActive
}

// persistStatus writes a lazily computed transition back. Best effort: the
// next read recomputes the same answer, so a failed write costs nothing but
// a retried computation.
func (s *LinkService) persistStatus(ctx context.Context, link *model.SharedLink, status string) {
	link.Status = status
	if err := s.links.Update(ctx, link); err != nil {
		logutil.GetLogger(ctx).Warn("persist lazy status transition failed",
			zap.String("link_id", link.ID),
			zap.String("status", status),
			zap.Error(err),
		)
	}
}

func (s *LinkService) refreshStatus(ctx context.Context, link *model.SharedLink, err error) (*model.SharedLink, error) {
	if err != nil {
		return nil, err
	}
	if effective := computeEffectiveStatus(link, s.now()); effective != link.Status {
		s.persistStatus(ctx, link, effective)
	}
	return link, nil
}
