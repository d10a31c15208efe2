package repo

import (
	"context"

	"github.com/quartzcap/dataroom/internal/model"
	"github.com/quartzcap/dataroom/internal/store"
)

type NdaRepo struct {
	store store.Store
}

func NewNdaRepo(s store.Store) *NdaRepo {
	return &NdaRepo{store: s}
}

type templateRecord struct {
	PK string `dynamodbav:"pk"`
	SK string `dynamodbav:"sk"`
	model.NdaTemplate
}

type signatureRecord struct {
	PK string `dynamodbav:"pk"`
	SK string `dynamodbav:"sk"`
	model.NdaSignature
}

type grantRecord struct {
	PK string `dynamodbav:"pk"`
	SK string `dynamodbav:"sk"`
	model.NdaAccessGrant
}

// CreateTemplate appends a new template version: a canonical record for id
// lookup and a full copy under the room partition for version history.
// Templates are immutable after creation, so the two copies cannot drift.
func (r *NdaRepo) CreateTemplate(ctx context.Context, tpl *model.NdaTemplate) error {
	if err := r.store.PutIfAbsent(ctx, &templateRecord{
		PK:          templatePK(tpl.ID),
		SK:          metaSK,
		NdaTemplate: *tpl,
	}); err != nil {
		return err
	}
	return r.store.Put(ctx, &templateRecord{
		PK:          roomPK(tpl.RoomID),
		SK:          roomTemplateSK(tpl.CreatedAt, tpl.ID),
		NdaTemplate: *tpl,
	})
}

func (r *NdaRepo) GetTemplate(ctx context.Context, id string) (*model.NdaTemplate, error) {
	var rec templateRecord
	if err := r.store.Get(ctx, templatePK(id), metaSK, &rec); err != nil {
		return nil, err
	}
	return &rec.NdaTemplate, nil
}

// ListTemplatesByRoom returns all template versions for a room, newest first.
func (r *NdaRepo) ListTemplatesByRoom(ctx context.Context, roomID string) ([]model.NdaTemplate, error) {
	var recs []templateRecord
	err := r.store.Query(ctx, store.Query{
		PK:         roomPK(roomID),
		SKPrefix:   "ndatpl#",
		Descending: true,
	}, &recs)
	if err != nil {
		return nil, err
	}
	templates := make([]model.NdaTemplate, 0, len(recs))
	for _, rec := range recs {
		templates = append(templates, rec.NdaTemplate)
	}
	return templates, nil
}

func (r *NdaRepo) CreateSignature(ctx context.Context, sig *model.NdaSignature) error {
	return r.store.Put(ctx, &signatureRecord{
		PK:           roomPK(sig.RoomID),
		SK:           roomSignatureSK(sig.SignedAt, sig.ID),
		NdaSignature: *sig,
	})
}

func (r *NdaRepo) ListSignaturesByRoom(ctx context.Context, roomID string) ([]model.NdaSignature, error) {
	var recs []signatureRecord
	err := r.store.Query(ctx, store.Query{
		PK:         roomPK(roomID),
		SKPrefix:   "ndasig#",
		Descending: true,
	}, &recs)
	if err != nil {
		return nil, err
	}
	sigs := make([]model.NdaSignature, 0, len(recs))
	for _, rec := range recs {
		sigs = append(sigs, rec.NdaSignature)
	}
	return sigs, nil
}

// CreateGrant writes the grant under its (room, lowercased email) partition.
// The partition key doubles as the reverse index: verification never scans
// signatures.
func (r *NdaRepo) CreateGrant(ctx context.Context, grant *model.NdaAccessGrant) error {
	return r.store.Put(ctx, &grantRecord{
		PK:             ndaGrantPK(grant.RoomID, grant.Email),
		SK:             ndaGrantSK(grant.GrantedAt, grant.ID),
		NdaAccessGrant: *grant,
	})
}

// ListGrants returns the email's grants for a room, most recently granted
// first.
func (r *NdaRepo) ListGrants(ctx context.Context, roomID, email string) ([]model.NdaAccessGrant, error) {
	var recs []grantRecord
	err := r.store.Query(ctx, store.Query{
		PK:         ndaGrantPK(roomID, email),
		SKPrefix:   "grant#",
		Descending: true,
	}, &recs)
	if err != nil {
		return nil, err
	}
	grants := make([]model.NdaAccessGrant, 0, len(recs))
	for _, rec := range recs {
		grants = append(grants, rec.NdaAccessGrant)
	}
	return grants, nil
}
