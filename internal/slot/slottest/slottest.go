// Package slottest holds the behaviour every slot backend must share.
package slottest

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"skytrack/internal/slot"
)

// Run exercises s with keys unique to this invocation.
func Run(t *testing.T, s slot.Slots) {
	t.Helper()
	ctx := context.Background()
	key := fmt.Sprintf("skytrack_test_%d", time.Now().UnixNano())
	t.Cleanup(func() { _ = s.Delete(ctx, key) })

	t.Run("missing", func(t *testing.T) {
		_, ok, err := s.Get(ctx, key)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if ok {
			t.Fatal("missing key reported present")
		}
	})

	t.Run("put get", func(t *testing.T) {
		want := []byte(`[{"id":"a"}]`)
		if err := s.Put(ctx, key, want); err != nil {
			t.Fatalf("put: %v", err)
		}
		got, ok, err := s.Get(ctx, key)
		if err != nil || !ok {
			t.Fatalf("get: ok=%v err=%v", ok, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("got %s, want %s", got, want)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		if err := s.Put(ctx, key, []byte(`[]`)); err != nil {
			t.Fatalf("put: %v", err)
		}
		got, _, _ := s.Get(ctx, key)
		if string(got) != `[]` {
			t.Errorf("got %s after overwrite", got)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := s.Delete(ctx, key); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, ok, _ := s.Get(ctx, key); ok {
			t.Fatal("key still present after delete")
		}
		if err := s.Delete(ctx, key); err != nil {
			t.Fatalf("second delete: %v", err)
		}
	})
}
