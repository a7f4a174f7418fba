// Package slot is the durable key-value layer behind the data store. Each
// slot holds one serialized collection (or one profile document) for one user.
package slot

import (
	"context"
	"fmt"

	"skytrack/internal/model"
)

const prefix = "skytrack"

// Slots reads and writes whole values by key. Get reports ok=false for a
// missing key rather than an error.
type Slots interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Key is the slot holding one kind of record for one user.
func Key(kind model.Kind, uid string) string {
	return fmt.Sprintf("%s_%s_%s", prefix, kind, uid)
}

// ProfileKey is the slot holding a user's profile document for external identity backends.
func ProfileKey(uid string) string {
	return fmt.Sprintf("%s_profile_%s", prefix, uid)
}

// AccountsKey is the slot holding the local identity backend's account book.
const AccountsKey = prefix + "_accounts"
