package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/quartzcap/dataroom/internal/handler"
	"github.com/quartzcap/dataroom/internal/middleware"
	"github.com/quartzcap/dataroom/internal/model"
	"github.com/quartzcap/dataroom/internal/pkg/jwt"
	"github.com/quartzcap/dataroom/internal/repo"
	"github.com/quartzcap/dataroom/internal/service"
	"github.com/quartzcap/dataroom/internal/store"
)

var testJWTSecret = []byte("test-secret")

type testBackend struct {
	store  *store.MemoryStore
	links  *service.LinkService
	ndas   *service.NdaService
	access *service.AccessService
	logs   *service.AccessLogService
}

// seedLink creates a link directly through the service layer so share-surface
// tests do not depend on the staff API.
func (b *testBackend) seedLink(t *testing.T, input service.CreateLinkInput) *model.SharedLink {
	t.Helper()
	link, err := b.links.CreateLink(context.Background(), input)
	require.NoError(t, err)
	return link
}

func setupRouter(t *testing.T) (http.Handler, *testBackend) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMemoryStore()
	logs := service.NewAccessLogService(repo.NewAccessLogRepo(st))
	links := service.NewLinkService(repo.NewLinkRepo(st), logs)
	ndas := service.NewNdaService(repo.NewNdaRepo(st), 365*24*time.Hour)
	access := service.NewAccessService(links, ndas, repo.NewAccessGrantRepo(st), logs, 5*time.Minute, "https://dataroom.test")

	deps := handler.RouterDeps{
		Shares:          handler.NewShareHandler(links, ndas, access),
		Links:           handler.NewLinkHandler(links, logs),
		Ndas:            handler.NewNdaHandler(ndas),
		Access:          handler.NewAccessHandler(access),
		JWTSecret:       testJWTSecret,
		RateLimit:       1000,
		RateLimitWindow: time.Minute,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)

	return engine, &testBackend{store: st, links: links, ndas: ndas, access: access, logs: logs}
}

func staffToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.GenerateToken("staff-1", "ops@example.com", "Ops User", testJWTSecret, time.Hour)
	require.NoError(t, err)
	return token
}
