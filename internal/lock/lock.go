// Package lock provides the per-key lock arena that serializes status
// transitions and table-flag changes. Keys are plain strings such as
// "table:12" or "party:483920". Two backends are available: an in-process
// arena for single-instance deployments and a Redis-backed lock for
// deployments running several API instances against one database.
package lock

import (
	"context"
	"fmt"
	"strconv"
)

// Locker acquires an exclusive lock on key. The returned function releases
// it and is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// TableKey is the lock key for a physical table.
func TableKey(id int64) string { return "table:" + strconv.FormatInt(id, 10) }

// PartyKey is the lock key for a confirmation code.
func PartyKey(code string) string { return "party:" + code }

// BucketKey is the lock key for a capacity bucket during allocation.
func BucketKey(capacity int) string { return fmt.Sprintf("bucket:%d", capacity) }
