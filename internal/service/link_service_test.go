package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quartzcap/dataroom/internal/model"
	"github.com/quartzcap/dataroom/internal/pkg/timeutil"
)

func TestCreateLink_DefaultsAndLookupPaths(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	link, err := env.links.CreateLink(ctx, CreateLinkInput{RoomID: "room-1", CreatedBy: "staff-1"})
	require.NoError(t, err)
	require.NotEmpty(t, link.Token)
	require.Len(t, link.ShortCode, 8)
	require.Equal(t, model.LinkStatusActive, link.Status)

	// View-only defaults with watermarking on.
	require.True(t, link.CanView)
	require.False(t, link.CanDownload)
	require.False(t, link.CanPrint)
	require.True(t, link.ApplyWatermark)
	require.True(t, link.TrackActivity)

	byID, err := env.links.GetLinkByID(ctx, link.ID)
	require.NoError(t, err)
	byToken, err := env.links.GetLinkByToken(ctx, link.Token)
	require.NoError(t, err)
	byCode, err := env.links.GetLinkByShortCode(ctx, link.ShortCode)
	require.NoError(t, err)
	require.Equal(t, byID.ID, byToken.ID)
	require.Equal(t, byID.ID, byCode.ID)
}

func TestCreateLink_UniqueTokensAndCodes(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		link, err := env.links.CreateLink(ctx, CreateLinkInput{RoomID: "room-1"})
		require.NoError(t, err)
		require.False(t, seen[link.Token], "token reused")
		require.False(t, seen[link.ShortCode], "short code reused")
		seen[link.Token] = true
		seen[link.ShortCode] = true
	}
}

func TestCreateLink_RejectsDoubleScope(t *testing.T) {
	env := newTestEnv()
	_, err := env.links.CreateLink(context.Background(), CreateLinkInput{
		RoomID:     "room-1",
		DocumentID: "doc-1",
		FolderID:   "folder-1",
	})
	require.Error(t, err)
}

func TestValidateLink_NotFound(t *testing.T) {
	env := newTestEnv()
	result, err := env.links.ValidateLink(context.Background(), "no-such-token", ValidateOptions{})
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.Equal(t, ReasonNotFound, result.Reason)
}

func TestValidateLink_PasswordFlow(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	link, err := env.links.CreateLink(ctx, CreateLinkInput{RoomID: "room-1", Password: "secret"})
	require.NoError(t, err)

	result, err := env.links.ValidateLink(ctx, link.Token, ValidateOptions{Password: "wrong"})
	require.NoError(t, err)
	require.Equal(t, ReasonPasswordRequired, result.Reason)
	require.True(t, result.RequiresPassword)

	result, err = env.links.ValidateLink(ctx, link.Token, ValidateOptions{})
	require.NoError(t, err)
	require.Equal(t, ReasonPasswordRequired, result.Reason)

	result, err = env.links.ValidateLink(ctx, link.Token, ValidateOptions{Password: "secret"})
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Equal(t, link.ID, result.Link.ID)
}

func TestValidateLink_WrongEmailCheckedBeforePassword(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	link, err := env.links.CreateLink(ctx, CreateLinkInput{
		RoomID:         "room-1",
		RecipientEmail: "Alice@Fund.example",
		Password:       "secret",
		RequireNda:     true,
	})
	require.NoError(t, err)

	// The wrong recipient must not learn that a password or NDA exists.
	result, err := env.links.ValidateLink(ctx, link.Token, ValidateOptions{UserEmail: "mallory@other.example"})
	require.NoError(t, err)
	require.Equal(t, ReasonWrongEmail, result.Reason)
	require.False(t, result.RequiresPassword)
	require.False(t, result.RequiresNda)

	// Recipient matching is case-insensitive.
	result, err = env.links.ValidateLink(ctx, link.Token, ValidateOptions{
		UserEmail: "ALICE@fund.EXAMPLE",
		Password:  "secret",
		NdaSigned: true,
	})
	require.NoError(t, err)
	require.True(t, result.Valid)
}

func TestValidateLink_ExpiredWithoutPriorAccess(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	link, err := env.links.CreateLink(ctx, CreateLinkInput{
		RoomID:    "room-1",
		ExpiresAt: timeutil.FormatISO(env.nowTime.Add(-time.Hour)),
	})
	require.NoError(t, err)

	result, err := env.links.ValidateLink(ctx, link.Token, ValidateOptions{})
	require.NoError(t, err)
	require.Equal(t, ReasonExpired, result.Reason)

	// The lazy transition persisted.
	stored, err := env.links.links.GetByID(ctx, link.ID)
	require.NoError(t, err)
	require.Equal(t, model.LinkStatusExpired, stored.Status)
}

func TestValidateLink_ExhaustionAfterMaxUses(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	link, err := env.links.CreateLink(ctx, CreateLinkInput{RoomID: "room-1", MaxUses: 1})
	require.NoError(t, err)

	result, err := env.links.ValidateLink(ctx, link.Token, ValidateOptions{})
	require.NoError(t, err)
	require.True(t, result.Valid)

	require.NoError(t, env.links.RecordUse(ctx, result.Link))

	result, err = env.links.ValidateLink(ctx, link.Token, ValidateOptions{})
	require.NoError(t, err)
	require.Equal(t, ReasonExhausted, result.Reason)

	// Status reads as exhausted on subsequent lookups.
	stored, err := env.links.GetLinkByID(ctx, link.ID)
	require.NoError(t, err)
	require.Equal(t, model.LinkStatusExhausted, stored.Status)
}

func TestRevokeLink_IsPermanent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	link, err := env.links.CreateLink(ctx, CreateLinkInput{RoomID: "room-1"})
	require.NoError(t, err)

	revoked, err := env.links.RevokeLink(ctx, link.ID)
	require.NoError(t, err)
	require.Equal(t, model.LinkStatusRevoked, revoked.Status)

	// Extending the expiry does not un-revoke.
	extended, err := env.links.ExtendLink(ctx, link.ID, ExpirySpec{Amount: 2, Unit: "weeks"}, "")
	require.NoError(t, err)
	require.Equal(t, model.LinkStatusRevoked, extended.Status)

	result, err := env.links.ValidateLink(ctx, link.Token, ValidateOptions{})
	require.NoError(t, err)
	require.Equal(t, ReasonRevoked, result.Reason)
}

func TestExtendLink_ReactivatesExpired(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	link, err := env.links.CreateLink(ctx, CreateLinkInput{
		RoomID:    "room-1",
		ExpiresAt: timeutil.FormatISO(env.nowTime.Add(-time.Hour)),
	})
	require.NoError(t, err)

	// Trip the lazy expiry first.
	_, err = env.links.ValidateLink(ctx, link.Token, ValidateOptions{})
	require.NoError(t, err)

	extended, err := env.links.ExtendLink(ctx, link.ID, ExpirySpec{Amount: 3, Unit: "days"}, "")
	require.NoError(t, err)
	require.Equal(t, model.LinkStatusActive, extended.Status)

	result, err := env.links.ValidateLink(ctx, link.Token, ValidateOptions{})
	require.NoError(t, err)
	require.True(t, result.Valid)
}

func TestGetLinksByRoom_NewestFirst(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	first, err := env.links.CreateLink(ctx, CreateLinkInput{RoomID: "room-1"})
	require.NoError(t, err)
	env.advance(time.Second)
	second, err := env.links.CreateLink(ctx, CreateLinkInput{RoomID: "room-1"})
	require.NoError(t, err)

	links, err := env.links.GetLinksByRoom(ctx, "room-1")
	require.NoError(t, err)
	require.Len(t, links, 2)
	require.Equal(t, second.ID, links[0].ID)
	require.Equal(t, first.ID, links[1].ID)
}

func TestValidateLink_FailuresAreLogged(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	link, err := env.links.CreateLink(ctx, CreateLinkInput{RoomID: "room-1", Password: "secret"})
	require.NoError(t, err)

	_, err = env.links.ValidateLink(ctx, link.Token, ValidateOptions{Password: "nope"})
	require.NoError(t, err)
	_, err = env.links.ValidateLink(ctx, link.Token, ValidateOptions{Password: "secret"})
	require.NoError(t, err)

	stats, err := env.logs.GetLinkStats(ctx, link.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalAttempts)
	require.Equal(t, 1, stats.Failed)
	require.Equal(t, 1, stats.Successful)
	require.Equal(t, 1, stats.FailureReasons[ReasonPasswordRequired])
}

func TestComputeEffectiveStatus(t *testing.T) {
	now := time.Now()
	link := &model.SharedLink{
		Status:    model.LinkStatusActive,
		ExpiresAt: timeutil.FormatISO(now.Add(time.Hour)),
	}
	require.Equal(t, model.LinkStatusActive, computeEffectiveStatus(link, now))

	link.ExpiresAt = timeutil.FormatISO(now.Add(-time.Minute))
	require.Equal(t, model.LinkStatusExpired, computeEffectiveStatus(link, now))

	// Expiry wins over exhaustion; terminal statuses stay put.
	link.MaxUses = 1
	link.CurrentUses = 1
	require.Equal(t, model.LinkStatusExpired, computeEffectiveStatus(link, now))

	link.ExpiresAt = timeutil.FormatISO(now.Add(time.Hour))
	require.Equal(t, model.LinkStatusExhausted, computeEffectiveStatus(link, now))

	link.Status = model.LinkStatusRevoked
	require.Equal(t, model.LinkStatusRevoked, computeEffectiveStatus(link, now))
}
