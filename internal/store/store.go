package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Store is a single-table (partition key, sort key) record store. Records
// are plain structs carrying `dynamodbav`-tagged fields including "pk" and
// "sk"; an optional numeric "expires_ttl" attribute (unix seconds) marks the
// record for automatic eviction. Expired records are never returned, even if
// the backend has not physically removed them yet.
//
// There are no multi-item transactions: every mutation is a single-item
// write, and multi-record entities are kept eventually consistent by the
// caller (see the index-repair job).
type Store interface {
	// Put writes the record unconditionally.
	Put(ctx context.Context, rec interface{}) error
	// PutIfAbsent writes the record only if no item exists under its
	// (pk, sk); it returns ErrConflict otherwise.
	PutIfAbsent(ctx context.Context, rec interface{}) error
	// Get loads one record into out, returning ErrNotFound on miss.
	Get(ctx context.Context, pk, sk string, out interface{}) error
	// Query loads all records under pk whose sort key begins with
	// q.SKPrefix into out (a pointer to a slice), in sort-key order.
	Query(ctx context.Context, q Query, out interface{}) error
	// Delete removes one record; deleting a missing record is not an error.
	Delete(ctx context.Context, pk, sk string) error
	// Add atomically adds delta to a numeric attribute of one record and
	// returns the new value.
	Add(ctx context.Context, pk, sk, attr string, delta int) (int64, error)
}

type Query struct {
	PK         string
	SKPrefix   string
	Limit      int32 // 0 means unbounded
	Descending bool
}

const ttlAttr = "expires_ttl"

func itemExpired(item map[string]types.AttributeValue, nowUnix int64) bool {
	av, ok := item[ttlAttr]
	if !ok {
		return false
	}
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return false
	}
	var ttl int64
	for _, ch := range n.Value {
		if ch < '0' || ch > '9' {
			return false
		}
		ttl = ttl*10 + int64(ch-'0')
	}
	return ttl <= nowUnix
}
