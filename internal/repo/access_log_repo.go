package repo

import (
	"context"

	"github.com/quartzcap/dataroom/internal/model"
	"github.com/quartzcap/dataroom/internal/store"
)

// UnresolvedLinkID keys log entries for validation attempts whose token
// never resolved to a link.
const UnresolvedLinkID = "unresolved"

type AccessLogRepo struct {
	store store.Store
}

func NewAccessLogRepo(s store.Store) *AccessLogRepo {
	return &AccessLogRepo{store: s}
}

type logRecord struct {
	PK string `dynamodbav:"pk"`
	SK string `dynamodbav:"sk"`
	model.AccessLogEntry
}

// Append writes one log entry. There is no update or delete path on this
// entity.
func (r *AccessLogRepo) Append(ctx context.Context, entry *model.AccessLogEntry) error {
	linkID := entry.LinkID
	if linkID == "" {
		linkID = UnresolvedLinkID
	}
	return r.store.Put(ctx, &logRecord{
		PK:             linkLogPK(linkID),
		SK:             logSK(entry.OccurredAt, entry.ID),
		AccessLogEntry: *entry,
	})
}

// ListByLink returns a link's log entries in chronological order. Stats are
// aggregated from the full set at read time, so limit is 0 (unbounded) for
// that path.
func (r *AccessLogRepo) ListByLink(ctx context.Context, linkID string, limit int32) ([]model.AccessLogEntry, error) {
	var recs []logRecord
	err := r.store.Query(ctx, store.Query{
		PK:       linkLogPK(linkID),
		SKPrefix: "log#",
		Limit:    limit,
	}, &recs)
	if err != nil {
		return nil, err
	}
	entries := make([]model.AccessLogEntry, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, rec.AccessLogEntry)
	}
	return entries, nil
}
