package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/quartzcap/dataroom/internal/pkg/response"
	"github.com/quartzcap/dataroom/internal/service"
)

// AccessHandler redeems short-lived grants for the document-serving layer.
// Redemption consumes the grant: a second call with the same id, or any call
// after the TTL, resolves nothing.
type AccessHandler struct {
	access *service.AccessService
}

func NewAccessHandler(access *service.AccessService) *AccessHandler {
	return &AccessHandler{access: access}
}

func (h *AccessHandler) Redeem(c *gin.Context) {
	grant, err := h.access.RedeemGrant(c.Request.Context(), c.Param("grantId"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, grant)
}
