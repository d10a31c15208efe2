package repo

import (
	"context"
	"time"

	"github.com/quartzcap/dataroom/internal/model"
	"github.com/quartzcap/dataroom/internal/store"
)

type AccessGrantRepo struct {
	store store.Store
}

func NewAccessGrantRepo(s store.Store) *AccessGrantRepo {
	return &AccessGrantRepo{store: s}
}

type accessGrantRecord struct {
	PK         string `dynamodbav:"pk"`
	SK         string `dynamodbav:"sk"`
	ExpiresTTL int64  `dynamodbav:"expires_ttl"`
	model.ShortLivedAccessGrant
}

// Create claims the grant id with a conditional write and hands expiry to
// the store's TTL mechanism; no application timer is involved.
func (r *AccessGrantRepo) Create(ctx context.Context, grant *model.ShortLivedAccessGrant, expiresAt time.Time) error {
	return r.store.PutIfAbsent(ctx, &accessGrantRecord{
		PK:                    accessGrantPK(grant.ID),
		SK:                    metaSK,
		ExpiresTTL:            expiresAt.Unix(),
		ShortLivedAccessGrant: *grant,
	})
}

func (r *AccessGrantRepo) Get(ctx context.Context, id string) (*model.ShortLivedAccessGrant, error) {
	var rec accessGrantRecord
	if err := r.store.Get(ctx, accessGrantPK(id), metaSK, &rec); err != nil {
		return nil, err
	}
	return &rec.ShortLivedAccessGrant, nil
}

func (r *AccessGrantRepo) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, accessGrantPK(id), metaSK)
}
