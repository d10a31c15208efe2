package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quartzcap/dataroom/internal/model"
)

func TestGetActiveTemplate_SeedsDefaultOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	first, err := env.ndas.GetActiveTemplateForRoom(ctx, "room-1")
	require.NoError(t, err)
	require.True(t, first.IsActive)
	require.Equal(t, 1, first.Version)
	require.NotEmpty(t, first.Content)

	second, err := env.ndas.GetActiveTemplateForRoom(ctx, "room-1")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestCreateTemplate_NewestActiveWins(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	v1, err := env.ndas.CreateTemplate(ctx, "room-1", "NDA", "<p>version one</p>", "staff-1")
	require.NoError(t, err)
	env.advance(time.Second)
	v2, err := env.ndas.CreateTemplate(ctx, "room-1", "NDA", "<p>version two</p>", "staff-1")
	require.NoError(t, err)
	require.Equal(t, 2, v2.Version)

	active, err := env.ndas.GetActiveTemplateForRoom(ctx, "room-1")
	require.NoError(t, err)
	require.Equal(t, v2.ID, active.ID)

	// Prior versions are retained, not overwritten.
	kept, err := env.ndas.GetTemplate(ctx, v1.ID)
	require.NoError(t, err)
	require.Equal(t, "<p>version one</p>", kept.Content)
}

func TestSignNda_ThenVerify(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	result, err := env.ndas.SignNda(ctx, SignNdaInput{
		RoomID:      "room-1",
		SignerName:  "Alice Example",
		SignerEmail: "Alice@Fund.example",
	})
	require.NoError(t, err)
	require.Equal(t, model.SignatureStatusValid, result.Signature.Status)
	require.Equal(t, "alice@fund.example", result.Signature.SignerEmail)
	require.Equal(t, model.GrantScopeFullRoom, result.AccessGrant.Scope)
	require.True(t, result.AccessGrant.IsActive)

	verification, err := env.ndas.VerifyNdaAccess(ctx, "room-1", "alice@fund.example")
	require.NoError(t, err)
	require.True(t, verification.Valid)
	require.NotNil(t, verification.Template)
	require.Equal(t, result.AccessGrant.ID, verification.Grant.ID)

	// Case-insensitive on the email.
	verification, err = env.ndas.VerifyNdaAccess(ctx, "room-1", "ALICE@FUND.EXAMPLE")
	require.NoError(t, err)
	require.True(t, verification.Valid)

	verification, err = env.ndas.VerifyNdaAccess(ctx, "room-2", "alice@fund.example")
	require.NoError(t, err)
	require.False(t, verification.Valid)
	require.Equal(t, "no_signature", verification.Error)

	verification, err = env.ndas.VerifyNdaAccess(ctx, "room-1", "bob@fund.example")
	require.NoError(t, err)
	require.False(t, verification.Valid)
	require.Equal(t, "no_signature", verification.Error)
}

func TestVerifyNdaAccess_GrantExpiry(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.ndas.SignNda(ctx, SignNdaInput{
		RoomID:      "room-1",
		SignerName:  "Alice Example",
		SignerEmail: "alice@fund.example",
	})
	require.NoError(t, err)

	env.advance(366 * 24 * time.Hour)
	verification, err := env.ndas.VerifyNdaAccess(ctx, "room-1", "alice@fund.example")
	require.NoError(t, err)
	require.False(t, verification.Valid)
	require.Equal(t, "expired", verification.Error)
}

func TestDocumentHash_StableAcrossMarkup(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.ndas.CreateTemplate(ctx, "room-1", "NDA", "<p>keep this text</p>", "")
	require.NoError(t, err)

	first, err := env.ndas.SignNda(ctx, SignNdaInput{RoomID: "room-1", SignerName: "A", SignerEmail: "a@x.example"})
	require.NoError(t, err)
	second, err := env.ndas.SignNda(ctx, SignNdaInput{RoomID: "room-1", SignerName: "B", SignerEmail: "b@x.example"})
	require.NoError(t, err)
	require.Equal(t, first.Signature.DocumentHash, second.Signature.DocumentHash)
	require.NotEqual(t, first.Signature.SignatureHash, second.Signature.SignatureHash)

	// Markup-only churn does not move the hash; visible text does.
	require.Equal(t, hashDocument("<p>keep this text</p>"), hashDocument("<div><b>keep</b> this   text</div>"))
	require.NotEqual(t, hashDocument("<p>keep this text</p>"), hashDocument("<p>keep that text</p>"))
}

func TestSignNda_TemplateFromAnotherRoomRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	other, err := env.ndas.CreateTemplate(ctx, "room-2", "NDA", "<p>other room</p>", "")
	require.NoError(t, err)

	_, err = env.ndas.SignNda(ctx, SignNdaInput{
		RoomID:      "room-1",
		TemplateID:  other.ID,
		SignerName:  "A",
		SignerEmail: "a@x.example",
	})
	require.Error(t, err)
}
