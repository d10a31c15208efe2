package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quartzcap/dataroom/internal/model"
	apperr "github.com/quartzcap/dataroom/internal/pkg/errors"
)

func TestRequestAccess_ViewGrantWithWatermark(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	link, err := env.links.CreateLink(ctx, CreateLinkInput{RoomID: "room-1"})
	require.NoError(t, err)

	result, err := env.access.RequestAccess(ctx, link.Token, AccessRequestInput{
		DocumentID: "doc-1",
		Action:     model.AccessActionView,
		UserName:   "Visitor",
		UserEmail:  "visitor@x.example",
	}, nil)
	require.NoError(t, err)
	require.True(t, result.Granted)
	require.True(t, result.WatermarkApplied)
	require.True(t, strings.HasPrefix(result.WatermarkTrackingCode, "WM-"))
	require.Contains(t, result.URL, "https://dataroom.test/api/v1/access/")

	grantID := result.URL[strings.LastIndex(result.URL, "/")+1:]
	grant, err := env.access.RedeemGrant(ctx, grantID)
	require.NoError(t, err)
	require.Equal(t, "doc-1", grant.DocumentID)
	require.Equal(t, model.AccessActionView, grant.Action)
	require.Equal(t, model.IdentityKindExternal, grant.IdentityKind)
	require.Equal(t, result.WatermarkTrackingCode, grant.WatermarkCode)

	// Redemption consumes the grant.
	_, err = env.access.RedeemGrant(ctx, grantID)
	require.True(t, apperr.IsNotFound(err))
}

func TestRequestAccess_GrantExpiresViaTTL(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	link, err := env.links.CreateLink(ctx, CreateLinkInput{RoomID: "room-1"})
	require.NoError(t, err)

	result, err := env.access.RequestAccess(ctx, link.Token, AccessRequestInput{
		DocumentID: "doc-1",
		Action:     model.AccessActionView,
		UserEmail:  "visitor@x.example",
	}, nil)
	require.NoError(t, err)
	require.True(t, result.Granted)

	env.advance(6 * time.Minute)
	grantID := result.URL[strings.LastIndex(result.URL, "/")+1:]
	_, err = env.access.RedeemGrant(ctx, grantID)
	require.True(t, apperr.IsNotFound(err))
}

func TestRequestAccess_DownloadDeniedByPermissions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	link, err := env.links.CreateLink(ctx, CreateLinkInput{RoomID: "room-1"})
	require.NoError(t, err)

	result, err := env.access.RequestAccess(ctx, link.Token, AccessRequestInput{
		DocumentID: "doc-1",
		Action:     model.AccessActionDownload,
	}, nil)
	require.NoError(t, err)
	require.False(t, result.Granted)
	require.Equal(t, ReasonAccessDenied, result.Reason)

	stats, err := env.logs.GetLinkStats(ctx, link.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stats.FailureReasons[ReasonAccessDenied])
}

func TestRequestAccess_NdaEnforcedServerSide(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	link, err := env.links.CreateLink(ctx, CreateLinkInput{RoomID: "room-1", RequireNda: true})
	require.NoError(t, err)

	// No signature on record: denied no matter what the client asserts.
	result, err := env.access.RequestAccess(ctx, link.Token, AccessRequestInput{
		DocumentID: "doc-1",
		Action:     model.AccessActionView,
		UserName:   "Visitor",
		UserEmail:  "visitor@x.example",
	}, nil)
	require.NoError(t, err)
	require.False(t, result.Granted)
	require.Equal(t, ReasonNdaRequired, result.Reason)
	require.True(t, result.RequiresNda)

	_, err = env.ndas.SignNda(ctx, SignNdaInput{
		RoomID:      "room-1",
		SignerName:  "Visitor",
		SignerEmail: "visitor@x.example",
		LinkID:      link.ID,
	})
	require.NoError(t, err)

	result, err = env.access.RequestAccess(ctx, link.Token, AccessRequestInput{
		DocumentID: "doc-1",
		Action:     model.AccessActionView,
		UserName:   "Visitor",
		UserEmail:  "visitor@x.example",
	}, nil)
	require.NoError(t, err)
	require.True(t, result.Granted)
}

func TestRequestAccess_SessionIdentityPreferred(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	link, err := env.links.CreateLink(ctx, CreateLinkInput{RoomID: "room-1"})
	require.NoError(t, err)

	result, err := env.access.RequestAccess(ctx, link.Token, AccessRequestInput{
		DocumentID: "doc-1",
		Action:     model.AccessActionView,
		UserName:   "Forged Name",
		UserEmail:  "forged@x.example",
	}, &StaffIdentity{Email: "staff@quartzcap.example", Name: "Staff Member"})
	require.NoError(t, err)
	require.True(t, result.Granted)

	grantID := result.URL[strings.LastIndex(result.URL, "/")+1:]
	grant, err := env.access.RedeemGrant(ctx, grantID)
	require.NoError(t, err)
	require.Equal(t, model.IdentityKindSession, grant.IdentityKind)
	require.Equal(t, "staff@quartzcap.example", grant.ViewerEmail)
	require.Equal(t, "Staff Member", grant.ViewerName)
}

func TestRequestAccess_SingleUseLinkScenario(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	link, err := env.links.CreateLink(ctx, CreateLinkInput{RoomID: "room-1", MaxUses: 1})
	require.NoError(t, err)

	first, err := env.access.RequestAccess(ctx, link.Token, AccessRequestInput{
		DocumentID: "doc-1",
		Action:     model.AccessActionView,
		UserEmail:  "visitor@x.example",
	}, nil)
	require.NoError(t, err)
	require.True(t, first.Granted)

	second, err := env.access.RequestAccess(ctx, link.Token, AccessRequestInput{
		DocumentID: "doc-1",
		Action:     model.AccessActionView,
		UserEmail:  "visitor@x.example",
	}, nil)
	require.NoError(t, err)
	require.False(t, second.Granted)
	require.Equal(t, ReasonExhausted, second.Reason)
}

func TestRequestAccess_InvalidInput(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.access.RequestAccess(ctx, "token", AccessRequestInput{Action: model.AccessActionView}, nil)
	require.Error(t, err)

	_, err = env.access.RequestAccess(ctx, "token", AccessRequestInput{DocumentID: "doc-1", Action: "delete"}, nil)
	require.Error(t, err)
}

func TestWatermarkCode_BindsIdentityAndDocument(t *testing.T) {
	a := watermarkCode("Alice", "alice@x.example", "2026-08-29T10:00:00Z", "doc-1")
	require.True(t, strings.HasPrefix(a, "WM-"))
	require.Equal(t, a, watermarkCode("Alice", "ALICE@X.EXAMPLE", "2026-08-29T10:00:00Z", "doc-1"))
	require.NotEqual(t, a, watermarkCode("Alice", "alice@x.example", "2026-08-29T10:00:00Z", "doc-2"))
	require.NotEqual(t, a, watermarkCode("Alice", "alice@x.example", "2026-08-29T10:00:01Z", "doc-1"))
	require.NotEqual(t, a, watermarkCode("Bob", "alice@x.example", "2026-08-29T10:00:00Z", "doc-1"))
}
