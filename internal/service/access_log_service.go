package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/quartzcap/dataroom/internal/model"
	"github.com/quartzcap/dataroom/internal/pkg/timeutil"
	"github.com/quartzcap/dataroom/internal/repo"
)

// RequestMeta carries request-side metadata into log entries.
type RequestMeta struct {
	VisitorIP string
	UserAgent string
}

type AccessLogService struct {
	logs *repo.AccessLogRepo
	now  func() time.Time
}

func NewAccessLogService(logs *repo.AccessLogRepo) *AccessLogService {
	return &AccessLogService{logs: logs, now: time.Now}
}

// LogValidation records one validation attempt, success or failure. Failed
// attempts are first-class audit data: they are written before the outcome
// reaches the caller.
func (s *AccessLogService) LogValidation(ctx context.Context, link *model.SharedLink, reason string, valid bool, email, name string, meta RequestMeta) error {
	entry := &model.AccessLogEntry{
		ID:         newID(),
		Event:      model.LogEventValidation,
		Success:    valid,
		UserEmail:  strings.ToLower(strings.TrimSpace(email)),
		UserName:   name,
		VisitorIP:  meta.VisitorIP,
		UserAgent:  meta.UserAgent,
		OccurredAt: timeutil.FormatISO(s.now()),
	}
	if !valid {
		entry.Reason = reason
	}
	if link != nil {
		entry.LinkID = link.ID
		entry.RoomID = link.RoomID
	}
	return s.logs.Append(ctx, entry)
}

// LogAccess records one successful access-grant issuance.
func (s *AccessLogService) LogAccess(ctx context.Context, link *model.SharedLink, documentID, action, email, name string, meta RequestMeta) error {
	return s.logs.Append(ctx, &model.AccessLogEntry{
		ID:         newID(),
		LinkID:     link.ID,
		RoomID:     link.RoomID,
		Event:      model.LogEventAccess,
		Success:    true,
		DocumentID: documentID,
		Action:     action,
		UserEmail:  strings.ToLower(strings.TrimSpace(email)),
		UserName:   name,
		VisitorIP:  meta.VisitorIP,
		UserAgent:  meta.UserAgent,
		OccurredAt: timeutil.FormatISO(s.now()),
	})
}

func (s *AccessLogService) ListByLink(ctx context.Context, linkID string, limit int32) ([]model.AccessLogEntry, error) {
	return s.logs.ListByLink(ctx, linkID, limit)
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type LinkStats struct {
	TotalAttempts  int            `json:"total_attempts"`
	Successful     int            `json:"successful"`
	Failed         int            `json:"failed"`
	UniqueUsers    int            `json:"unique_users"`
	LastAccessAt   string         `json:"last_access_at,omitempty"`
	Daily          []DailyCount   `json:"daily"`
	FailureReasons map[string]int `json:"failure_reasons"`
}

// GetLinkStats aggregates a link's full log at read time. Maintained
// counters would be cheaper to read but harder to keep crash-consistent;
// the append-only log stays the source of truth.
func (s *AccessLogService) GetLinkStats(ctx context.Context, linkID string) (*LinkStats, error) {
	entries, err := s.logs.ListByLink(ctx, linkID, 0)
	if err != nil {
		return nil, err
	}
	stats := &LinkStats{FailureReasons: make(map[string]int)}
	users := make(map[string]struct{})
	daily := make(map[string]int)
	for _, entry := range entries {
		stats.TotalAttempts++
		if entry.Success {
			stats.Successful++
			if entry.OccurredAt > stats.LastAccessAt {
				stats.LastAccessAt = entry.OccurredAt
			}
		} else {
			stats.Failed++
			stats.FailureReasons[entry.Reason]++
		}
		if entry.UserEmail != "" {
			users[strings.ToLower(entry.UserEmail)] = struct{}{}
		}
		daily[timeutil.Day(entry.OccurredAt)]++
	}
	stats.UniqueUsers = len(users)
	stats.Daily = make([]DailyCount, 0, len(daily))
	for date, count := range daily {
		stats.Daily = append(stats.Daily, DailyCount{Date: date, Count: count})
	}
	sort.Slice(stats.Daily, func(i, j int) bool { return stats.Daily[i].Date < stats.Daily[j].Date })
	return stats, nil
}
