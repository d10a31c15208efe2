package service

import (
	"time"

	"github.com/quartzcap/dataroom/internal/repo"
	"github.com/quartzcap/dataroom/internal/store"
)

type testEnv struct {
	store   *store.MemoryStore
	links   *LinkService
	ndas    *NdaService
	access  *AccessService
	logs    *AccessLogService
	nowTime time.Time
}

func newTestEnv() *testEnv {
	st := store.NewMemoryStore()
	logs := NewAccessLogService(repo.NewAccessLogRepo(st))
	links := NewLinkService(repo.NewLinkRepo(st), logs)
	ndas := NewNdaService(repo.NewNdaRepo(st), 365*24*time.Hour)
	access := NewAccessService(links, ndas, repo.NewAccessGrantRepo(st), logs, 5*time.Minute, "https://dataroom.test")

	env := &testEnv{
		store:   st,
		links:   links,
		ndas:    ndas,
		access:  access,
		logs:    logs,
		nowTime: time.Now(),
	}
	now := func() time.Time { return env.nowTime }
	st.SetClock(now)
	logs.now = now
	links.now = now
	ndas.now = now
	access.now = now
	return env
}

// advance moves every clock in the environment forward together.
func (e *testEnv) advance(d time.Duration) {
	e.nowTime = e.nowTime.Add(d)
}
