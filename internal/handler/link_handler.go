package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quartzcap/dataroom/internal/pkg/response"
	"github.com/quartzcap/dataroom/internal/service"
)

// LinkHandler serves the staff-facing link management surface.
type LinkHandler struct {
	links      *service.LinkService
	accessLogs *service.AccessLogService
}

func NewLinkHandler(links *service.LinkService, accessLogs *service.AccessLogService) *LinkHandler {
	return &LinkHandler{links: links, accessLogs: accessLogs}
}

type createLinkRequest struct {
	DocumentID     string             `json:"document_id"`
	FolderID       string             `json:"folder_id"`
	ExpiresIn      service.ExpirySpec `json:"expires_in"`
	ExpiresAt      string             `json:"expires_at"`
	MaxUses        int                `json:"max_uses"`
	RecipientEmail string             `json:"recipient_email"`
	Password       string             `json:"password"`
	RequireNda     bool               `json:"require_nda"`
	NdaTemplateID  string             `json:"nda_template_id"`
	CanDownload    bool               `json:"can_download"`
	CanPrint       bool               `json:"can_print"`
	ApplyWatermark *bool              `json:"apply_watermark"`
	TrackActivity  *bool              `json:"track_activity"`
}

func (h *LinkHandler) Create(c *gin.Context) {
	var req createLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, 400, "invalid", "invalid request")
		return
	}
	link, err := h.links.CreateLink(c.Request.Context(), service.CreateLinkInput{
		RoomID:         c.Param("roomId"),
		DocumentID:     req.DocumentID,
		FolderID:       req.FolderID,
		CreatedBy:      getUserID(c),
		ExpiresIn:      req.ExpiresIn,
		ExpiresAt:      req.ExpiresAt,
		MaxUses:        req.MaxUses,
		RecipientEmail: req.RecipientEmail,
		Password:       req.Password,
		RequireNda:     req.RequireNda,
		NdaTemplateID:  req.NdaTemplateID,
		CanDownload:    req.CanDownload,
		CanPrint:       req.CanPrint,
		ApplyWatermark: req.ApplyWatermark,
		TrackActivity:  req.TrackActivity,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, link)
}

func (h *LinkHandler) ListByRoom(c *gin.Context) {
	links, err := h.links.GetLinksByRoom(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"links": links})
}

func (h *LinkHandler) Revoke(c *gin.Context) {
	link, err := h.links.RevokeLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, link)
}

type extendLinkRequest struct {
	ExpiresIn service.ExpirySpec `json:"expires_in"`
	ExpiresAt string             `json:"expires_at"`
}

func (h *LinkHandler) Extend(c *gin.Context) {
	var req extendLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, 400, "invalid", "invalid request")
		return
	}
	link, err := h.links.ExtendLink(c.Request.Context(), c.Param("id"), req.ExpiresIn, req.ExpiresAt)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, link)
}

func (h *LinkHandler) Stats(c *gin.Context) {
	// The link must exist; stats for an unknown id would silently read an
	// empty partition.
	if _, err := h.links.GetLinkByID(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	stats, err := h.accessLogs.GetLinkStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}

func (h *LinkHandler) Logs(c *gin.Context) {
	if _, err := h.links.GetLinkByID(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	limit := int32(100)
	if value := c.Query("limit"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			limit = int32(parsed)
		}
	}
	entries, err := h.accessLogs.ListByLink(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"entries": entries})
}
