package repo

import (
	"context"

	"github.com/quartzcap/dataroom/internal/model"
	apperr "github.com/quartzcap/dataroom/internal/pkg/errors"
	"github.com/quartzcap/dataroom/internal/store"
)

type LinkRepo struct {
	store store.Store
}

func NewLinkRepo(s store.Store) *LinkRepo {
	return &LinkRepo{store: s}
}

type linkRecord struct {
	PK string `dynamodbav:"pk"`
	SK string `dynamodbav:"sk"`
	model.SharedLink
}

type linkPointer struct {
	PK     string `dynamodbav:"pk"`
	SK     string `dynamodbav:"sk"`
	LinkID string `dynamodbav:"link_id"`
}

type roomEntry struct {
	PK     string `dynamodbav:"pk"`
	SK     string `dynamodbav:"sk"`
	RoomID string `dynamodbav:"room_id"`
}

// Create writes the canonical record, then the token and short-code index
// records, then the chronological room index record. The four writes are not
// transactional; a crash mid-sequence leaves a link resolvable by id but not
// by every alias until the index-repair job catches up.
func (r *LinkRepo) Create(ctx context.Context, link *model.SharedLink) error {
	if err := r.store.PutIfAbsent(ctx, &linkRecord{
		PK:         linkPK(link.ID),
		SK:         metaSK,
		SharedLink: *link,
	}); err != nil {
		return err
	}
	if err := r.PutTokenIndex(ctx, link); err != nil {
		return err
	}
	if err := r.PutShortCodeIndex(ctx, link); err != nil {
		return err
	}
	if err := r.store.Put(ctx, &linkPointer{
		PK:     roomPK(link.RoomID),
		SK:     roomLinkSK(link.CreatedAt, link.ID),
		LinkID: link.ID,
	}); err != nil {
		return err
	}
	// Room registry feeds the index-repair job; losing the race to another
	// writer just means the room is already registered.
	err := r.store.PutIfAbsent(ctx, &roomEntry{
		PK:     roomsPK,
		SK:     roomEntrySK(link.RoomID),
		RoomID: link.RoomID,
	})
	if err != nil && !apperr.IsConflict(err) {
		return err
	}
	return nil
}

// PutTokenIndex claims the token lookup record. Tokens are never reused, so
// an existing record under another link id is a hard conflict.
func (r *LinkRepo) PutTokenIndex(ctx context.Context, link *model.SharedLink) error {
	return r.store.PutIfAbsent(ctx, &linkPointer{
		PK:     linkTokenPK(link.Token),
		SK:     metaSK,
		LinkID: link.ID,
	})
}

func (r *LinkRepo) PutShortCodeIndex(ctx context.Context, link *model.SharedLink) error {
	return r.store.PutIfAbsent(ctx, &linkPointer{
		PK:     linkCodePK(link.ShortCode),
		SK:     metaSK,
		LinkID: link.ID,
	})
}

func (r *LinkRepo) GetByID(ctx context.Context, id string) (*model.SharedLink, error) {
	var rec linkRecord
	if err := r.store.Get(ctx, linkPK(id), metaSK, &rec); err != nil {
		return nil, err
	}
	return &rec.SharedLink, nil
}

func (r *LinkRepo) GetByToken(ctx context.Context, token string) (*model.SharedLink, error) {
	var ptr linkPointer
	if err := r.store.Get(ctx, linkTokenPK(token), metaSK, &ptr); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, ptr.LinkID)
}

func (r *LinkRepo) GetByShortCode(ctx context.Context, code string) (*model.SharedLink, error) {
	var ptr linkPointer
	if err := r.store.Get(ctx, linkCodePK(code), metaSK, &ptr); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, ptr.LinkID)
}

// Update rewrites the canonical record. Index records never change: token,
// short code and creation time are immutable.
func (r *LinkRepo) Update(ctx context.Context, link *model.SharedLink) error {
	return r.store.Put(ctx, &linkRecord{
		PK:         linkPK(link.ID),
		SK:         metaSK,
		SharedLink: *link,
	})
}

// IncrementUses bumps the usage counter with the store's atomic add and
// returns the new count. Callers check the cap before incrementing, so two
// concurrent redemptions of the final use can both pass; the cap is advisory,
// the security boundary is token secrecy.
func (r *LinkRepo) IncrementUses(ctx context.Context, id string) (int64, error) {
	return r.store.Add(ctx, linkPK(id), metaSK, "current_uses", 1)
}

// ListByRoom returns the room's links newest first, resolving each room
// index record to its canonical link. Index entries whose canonical record
// is missing (a crashed create) are skipped.
func (r *LinkRepo) ListByRoom(ctx context.Context, roomID string, limit int32) ([]model.SharedLink, error) {
	var ptrs []linkPointer
	err := r.store.Query(ctx, store.Query{
		PK:         roomPK(roomID),
		SKPrefix:   "link#",
		Limit:      limit,
		Descending: true,
	}, &ptrs)
	if err != nil {
		return nil, err
	}
	links := make([]model.SharedLink, 0, len(ptrs))
	for _, ptr := range ptrs {
		link, err := r.GetByID(ctx, ptr.LinkID)
		if apperr.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		links = append(links, *link)
	}
	return links, nil
}

func (r *LinkRepo) ListRooms(ctx context.Context) ([]string, error) {
	var entries []roomEntry
	err := r.store.Query(ctx, store.Query{PK: roomsPK, SKPrefix: "room#"}, &entries)
	if err != nil {
		return nil, err
	}
	rooms := make([]string, 0, len(entries))
	for _, e := range entries {
		rooms = append(rooms, e.RoomID)
	}
	return rooms, nil
}
