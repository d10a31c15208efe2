package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/quartzcap/dataroom/internal/model"
	apperr "github.com/quartzcap/dataroom/internal/pkg/errors"
	"github.com/quartzcap/dataroom/internal/pkg/response"
	"github.com/quartzcap/dataroom/internal/service"
)

// ShareHandler serves the public, token-addressed surface used by external
// recipients.
type ShareHandler struct {
	links  *service.LinkService
	ndas   *service.NdaService
	access *service.AccessService
}

func NewShareHandler(links *service.LinkService, ndas *service.NdaService, access *service.AccessService) *ShareHandler {
	return &ShareHandler{links: links, ndas: ndas, access: access}
}

type scopeDescriptor struct {
	Type       string `json:"type"` // room | folder | document
	DocumentID string `json:"document_id,omitempty"`
	FolderID   string `json:"folder_id,omitempty"`
}

type templateDescriptor struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Version int    `json:"version"`
	Content string `json:"content"`
}

type ndaDescriptor struct {
	Required      bool                `json:"required"`
	AlreadySigned bool                `json:"already_signed"`
	Template      *templateDescriptor `json:"template,omitempty"`
}

type sharedLinkView struct {
	RoomID         string          `json:"room_id"`
	ShortCode      string          `json:"short_code"`
	Scope          scopeDescriptor `json:"scope"`
	ExpiresAt      string          `json:"expires_at"`
	CanView        bool            `json:"can_view"`
	CanDownload    bool            `json:"can_download"`
	CanPrint       bool            `json:"can_print"`
	ApplyWatermark bool            `json:"apply_watermark"`
}

// Get validates the link with the NDA check deferred and returns what the
// client needs to render the next step: link metadata, scope, and the NDA
// descriptor including whether this email already holds a verified grant.
func (h *ShareHandler) Get(c *gin.Context) {
	email := c.Query("email")
	result, err := h.links.ValidateLink(c.Request.Context(), c.Param("token"), service.ValidateOptions{
		UserEmail:    email,
		Password:     c.Query("password"),
		SkipNdaCheck: true,
		Meta:         requestMeta(c),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	if !result.Valid {
		writeValidationFailure(c, result)
		return
	}
	link := result.Link

	var nda *ndaDescriptor
	if link.RequireNda {
		nda = &ndaDescriptor{Required: true}
		verification, err := h.ndas.VerifyNdaAccess(c.Request.Context(), link.RoomID, email)
		if err != nil {
			handleError(c, err)
			return
		}
		nda.AlreadySigned = verification.Valid
		tpl, err := h.activeTemplate(c, link)
		if err != nil {
			handleError(c, err)
			return
		}
		nda.Template = &templateDescriptor{
			ID:      tpl.ID,
			Title:   tpl.Title,
			Version: tpl.Version,
			Content: tpl.Content,
		}
	}

	response.Success(c, gin.H{
		"link": sharedLinkView{
			RoomID:         link.RoomID,
			ShortCode:      link.ShortCode,
			Scope:          linkScope(link),
			ExpiresAt:      link.ExpiresAt,
			CanView:        link.CanView,
			CanDownload:    link.CanDownload,
			CanPrint:       link.CanPrint,
			ApplyWatermark: link.ApplyWatermark,
		},
		"nda": nda,
	})
}

type accessRequest struct {
	DocumentID string `json:"document_id"`
	Action     string `json:"action"`
	UserName   string `json:"user_name"`
	UserEmail  string `json:"user_email"`
	Password   string `json:"password"`
}

// RequestAccess mints a short-lived access grant for one document. The NDA
// requirement is enforced server-side regardless of anything the client
// claims.
func (h *ShareHandler) RequestAccess(c *gin.Context) {
	var req accessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, 400, "invalid", "invalid request")
		return
	}
	result, err := h.access.RequestAccess(c.Request.Context(), c.Param("token"), service.AccessRequestInput{
		DocumentID: req.DocumentID,
		Action:     req.Action,
		UserName:   req.UserName,
		UserEmail:  req.UserEmail,
		Password:   req.Password,
		Meta:       requestMeta(c),
	}, sessionIdentity(c))
	if err != nil {
		handleError(c, err)
		return
	}
	if !result.Granted {
		writeValidationFailure(c, &service.ValidateLinkResult{
			Reason:           result.Reason,
			RequiresPassword: result.RequiresPassword,
			RequiresNda:      result.RequiresNda,
			NdaTemplateID:    result.NdaTemplateID,
		})
		return
	}
	response.Success(c, gin.H{
		"url":                     result.URL,
		"watermark_applied":       result.WatermarkApplied,
		"watermark_tracking_code": result.WatermarkTrackingCode,
	})
}

type signNdaRequest struct {
	UserName    string `json:"user_name"`
	UserEmail   string `json:"user_email"`
	UserTitle   string `json:"user_title"`
	UserCompany string `json:"user_company"`
	Password    string `json:"password"`
}

// SignNda accepts the NDA for the link's room. The link must clear every
// factor ahead of the NDA itself before a signature is recorded.
func (h *ShareHandler) SignNda(c *gin.Context) {
	var req signNdaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, 400, "invalid", "invalid request")
		return
	}
	name, email := req.UserName, req.UserEmail
	if session := sessionIdentity(c); session != nil {
		name, email = session.Name, session.Email
	}
	result, err := h.links.ValidateLink(c.Request.Context(), c.Param("token"), service.ValidateOptions{
		UserEmail:    email,
		UserName:     name,
		Password:     req.Password,
		SkipNdaCheck: true,
		Meta:         requestMeta(c),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	if !result.Valid {
		writeValidationFailure(c, result)
		return
	}
	link := result.Link
	signed, err := h.ndas.SignNda(c.Request.Context(), service.SignNdaInput{
		RoomID:        link.RoomID,
		TemplateID:    link.NdaTemplateID,
		SignerName:    name,
		SignerEmail:   email,
		SignerTitle:   req.UserTitle,
		SignerCompany: req.UserCompany,
		LinkID:        link.ID,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"signature": gin.H{
			"id":             signed.Signature.ID,
			"signed_at":      signed.Signature.SignedAt,
			"document_hash":  signed.Signature.DocumentHash,
			"signature_hash": signed.Signature.SignatureHash,
		},
		"access_grant": gin.H{
			"id":         signed.AccessGrant.ID,
			"scope":      signed.AccessGrant.Scope,
			"expires_at": signed.AccessGrant.ExpiresAt,
		},
	})
}

func (h *ShareHandler) activeTemplate(c *gin.Context, link *model.SharedLink) (*model.NdaTemplate, error) {
	if link.NdaTemplateID != "" {
		tpl, err := h.ndas.GetTemplate(c.Request.Context(), link.NdaTemplateID)
		if err == nil {
			return tpl, nil
		}
		if !apperr.IsNotFound(err) {
			return nil, err
		}
	}
	return h.ndas.GetActiveTemplateForRoom(c.Request.Context(), link.RoomID)
}

func linkScope(link *model.SharedLink) scopeDescriptor {
	switch {
	case link.DocumentID != "":
		return scopeDescriptor{Type: "document", DocumentID: link.DocumentID}
	case link.FolderID != "":
		return scopeDescriptor{Type: "folder", FolderID: link.FolderID}
	default:
		return scopeDescriptor{Type: "room"}
	}
}
