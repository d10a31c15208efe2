package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/quartzcap/dataroom/internal/pkg/response"
	"github.com/quartzcap/dataroom/internal/service"
)

// NdaHandler serves the staff-facing NDA template and audit surface.
type NdaHandler struct {
	ndas *service.NdaService
}

func NewNdaHandler(ndas *service.NdaService) *NdaHandler {
	return &NdaHandler{ndas: ndas}
}

func (h *NdaHandler) GetActiveTemplate(c *gin.Context) {
	tpl, err := h.ndas.GetActiveTemplateForRoom(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, tpl)
}

type createTemplateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *NdaHandler) CreateTemplate(c *gin.Context) {
	var req createTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, 400, "invalid", "invalid request")
		return
	}
	tpl, err := h.ndas.CreateTemplate(c.Request.Context(), c.Param("roomId"), req.Title, req.Content, getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, tpl)
}

func (h *NdaHandler) ListSignatures(c *gin.Context) {
	sigs, err := h.ndas.ListSignatures(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"signatures": sigs})
}
