package store

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	apperr "github.com/quartzcap/dataroom/internal/pkg/errors"
)

// MemoryStore mirrors the DynamoDB store's semantics, including TTL-based
// eviction on read, for tests. It uses the same attributevalue codec so any
// marshaling mismatch shows up in tests too.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]map[string]map[string]types.AttributeValue
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]map[string]map[string]types.AttributeValue),
		now:   time.Now,
	}
}

// SetClock overrides the store clock, letting tests step past TTL windows.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Put(ctx context.Context, rec interface{}) error {
	item, pk, sk, err := marshalRecord(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(pk, sk, item)
	return nil
}

func (s *MemoryStore) PutIfAbsent(ctx context.Context, rec interface{}) error {
	item, pk, sk, err := marshalRecord(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// attribute_not_exists sees physically present items, TTL-expired or
	// not; eviction lags, so an expired item still conflicts here.
	if _, ok := s.items[pk][sk]; ok {
		return apperr.ErrConflict
	}
	s.putLocked(pk, sk, item)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, pk, sk string, out interface{}) error {
	s.mu.Lock()
	item, ok := s.items[pk][sk]
	expired := ok && itemExpired(item, s.now().Unix())
	s.mu.Unlock()
	if !ok || expired {
		return apperr.ErrNotFound
	}
	return attributevalue.UnmarshalMap(item, out)
}

func (s *MemoryStore) Query(ctx context.Context, q Query, out interface{}) error {
	s.mu.Lock()
	nowUnix := s.now().Unix()
	var keys []string
	for sk, item := range s.items[q.PK] {
		if !strings.HasPrefix(sk, q.SKPrefix) || itemExpired(item, nowUnix) {
			continue
		}
		keys = append(keys, sk)
	}
	sort.Strings(keys)
	if q.Descending {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}
	if q.Limit > 0 && int32(len(keys)) > q.Limit {
		keys = keys[:q.Limit]
	}
	items := make([]map[string]types.AttributeValue, 0, len(keys))
	for _, sk := range keys {
		items = append(items, s.items[q.PK][sk])
	}
	s.mu.Unlock()
	return attributevalue.UnmarshalListOfMaps(items, out)
}

func (s *MemoryStore) Delete(ctx context.Context, pk, sk string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items[pk], sk)
	return nil
}

func (s *MemoryStore) Add(ctx context.Context, pk, sk, attr string, delta int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[pk][sk]
	if !ok {
		item = map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: pk},
			"sk": &types.AttributeValueMemberS{Value: sk},
		}
		s.putLocked(pk, sk, item)
	}
	var current int64
	if av, ok := item[attr].(*types.AttributeValueMemberN); ok {
		current, _ = strconv.ParseInt(av.Value, 10, 64)
	}
	current += int64(delta)
	item[attr] = &types.AttributeValueMemberN{Value: strconv.FormatInt(current, 10)}
	return current, nil
}

func (s *MemoryStore) putLocked(pk, sk string, item map[string]types.AttributeValue) {
	if s.items[pk] == nil {
		s.items[pk] = make(map[string]map[string]types.AttributeValue)
	}
	s.items[pk][sk] = item
}

func marshalRecord(rec interface{}) (map[string]types.AttributeValue, string, string, error) {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, "", "", err
	}
	pk, _ := item["pk"].(*types.AttributeValueMemberS)
	sk, _ := item["sk"].(*types.AttributeValueMemberS)
	if pk == nil || sk == nil {
		return nil, "", "", apperr.ErrInvalid
	}
	return item, pk.Value, sk.Value, nil
}
