package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	apperr "github.com/quartzcap/dataroom/internal/pkg/errors"
	"github.com/quartzcap/dataroom/internal/repo"
)

// IndexRepairJob walks every room's link partition and re-claims any token
// or short-code index record a crashed create left missing. Link creation
// writes four records non-transactionally; this job closes that window
// after the fact. Lookups stay correct without it ever running; a link
// with a missing index is merely unreachable through that alias.
type IndexRepairJob struct {
	links *repo.LinkRepo
}

func NewIndexRepairJob(links *repo.LinkRepo) *IndexRepairJob {
	return &IndexRepairJob{links: links}
}

func (j *IndexRepairJob) Name() string {
	return "link_index_repair"
}

func (j *IndexRepairJob) Run(ctx context.Context) error {
	rooms, err := j.links.ListRooms(ctx)
	if err != nil {
		return err
	}
	repaired := 0
	for _, roomID := range rooms {
		links, err := j.links.ListByRoom(ctx, roomID, 0)
		if err != nil {
			return err
		}
		for i := range links {
			link := &links[i]
			// A conflict means the index record is already in place, which
			// is the normal case.
			if err := j.links.PutTokenIndex(ctx, link); err == nil {
				repaired++
			} else if !apperr.IsConflict(err) {
				return err
			}
			if err := j.links.PutShortCodeIndex(ctx, link); err == nil {
				repaired++
			} else if !apperr.IsConflict(err) {
				return err
			}
		}
	}
	if repaired > 0 {
		logutil.GetLogger(ctx).Warn("repaired missing link index records", zap.Int("count", repaired))
	}
	return nil
}
