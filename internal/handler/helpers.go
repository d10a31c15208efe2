package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/quartzcap/dataroom/internal/middleware"
	apperr "github.com/quartzcap/dataroom/internal/pkg/errors"
	"github.com/quartzcap/dataroom/internal/pkg/response"
	"github.com/quartzcap/dataroom/internal/service"
)

func getUserID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextUserIDKey)
	userID, _ := value.(string)
	return userID
}

func getUserEmail(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextUserEmailKey)
	email, _ := value.(string)
	return email
}

func getUserName(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextUserNameKey)
	name, _ := value.(string)
	return name
}

// sessionIdentity returns the verified staff identity, or nil when the
// request carries no valid session.
func sessionIdentity(c *gin.Context) *service.StaffIdentity {
	email := getUserEmail(c)
	if email == "" {
		return nil
	}
	return &service.StaffIdentity{Email: email, Name: getUserName(c)}
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		VisitorIP: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case apperr.IsNotFound(err):
		response.Error(c, http.StatusNotFound, "not_found", "not found")
	case err == apperr.ErrUnauthorized:
		response.Error(c, http.StatusUnauthorized, "unauthorized", "unauthorized")
	case err == apperr.ErrForbidden:
		response.Error(c, http.StatusForbidden, "forbidden", "forbidden")
	case err == apperr.ErrInvalid:
		response.Error(c, http.StatusBadRequest, "invalid", "invalid request")
	case apperr.IsConflict(err):
		response.Error(c, http.StatusConflict, "conflict", "conflict")
	default:
		// Persistence failures land here: the subsystem fails closed rather
		// than degrading to a permissive default.
		response.Error(c, http.StatusInternalServerError, "internal", "internal error")
	}
}

// writeValidationFailure maps a validator outcome onto the wire: 404 for an
// unresolvable token, 403 for everything else, with hints so the client can
// render the next step without re-deriving the pipeline.
func writeValidationFailure(c *gin.Context, result *service.ValidateLinkResult) {
	status := http.StatusForbidden
	if result.Reason == service.ReasonNotFound {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{
		"error": response.APIError{Code: result.Reason, Message: "link validation failed"},
		"validation": gin.H{
			"reason":            result.Reason,
			"requires_password": result.RequiresPassword,
			"requires_nda":      result.RequiresNda,
			"nda_template_id":   result.NdaTemplateID,
		},
	})
}
