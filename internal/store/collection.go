package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"skytrack/internal/model"
	"skytrack/internal/slot"
)

type collection[T model.Record] struct {
	kind  model.Kind
	items []T
}

func (c *collection[T]) index(id string) int {
	return slices.IndexFunc(c.items, func(r T) bool { return r.RecordID() == id })
}

func (c *collection[T]) list() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *collection[T]) load(ctx context.Context, slots slot.Slots, uid string) error {
	key := slot.Key(c.kind, uid)
	b, ok, err := slots.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		c.items = nil
		return nil
	}
	var items []T
	if err := json.Unmarshal(b, &items); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	c.items = items
	return nil
}

func persist[T model.Record](ctx context.Context, w *Workspace, kind model.Kind, items []T) error {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	key := slot.Key(kind, w.uid)
	if err := w.slots.Put(ctx, key, b); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// insert stamps a new record via build, writes the grown collection and only
// then swaps it into memory.
func insert[T model.Record](ctx context.Context, w *Workspace, c *collection[T], build func(id string, now time.Time) T) (rec T, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	defer func() { w.observe(string(c.kind), "add", err) }()

	var zero T
	if w.closed {
		return zero, ErrUnauthenticated
	}

	id := w.newID()
	for c.index(id) >= 0 {
		id = w.newID()
	}
	rec = build(id, w.now())

	next := append(c.list(), rec)
	if err := persist(ctx, w, c.kind, next); err != nil {
		return zero, err
	}
	c.items = next
	w.log.LogUserAction(w.uid, "add", "kind", c.kind, "id", id)
	return rec, nil
}

func modify[T model.Record](ctx context.Context, w *Workspace, c *collection[T], id string, apply func(*T)) (_ T, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	defer func() { w.observe(string(c.kind), "update", err) }()

	var zero T
	if w.closed {
		return zero, ErrUnauthenticated
	}
	i := c.index(id)
	if i < 0 {
		return zero, fmt.Errorf("%w: %s %s", ErrNotFound, c.kind, id)
	}

	next := c.list()
	apply(&next[i])
	if err := persist(ctx, w, c.kind, next); err != nil {
		return zero, err
	}
	c.items = next
	w.log.LogUserAction(w.uid, "update", "kind", c.kind, "id", id)
	return next[i], nil
}

func drop[T model.Record](ctx context.Context, w *Workspace, c *collection[T], id string) (err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	defer func() { w.observe(string(c.kind), "remove", err) }()

	if w.closed {
		return ErrUnauthenticated
	}
	i := c.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, c.kind, id)
	}

	next := slices.Delete(c.list(), i, i+1)
	if err := persist(ctx, w, c.kind, next); err != nil {
		return err
	}
	c.items = next
	w.log.LogUserAction(w.uid, "remove", "kind", c.kind, "id", id)
	return nil
}

func snapshot[T model.Record](w *Workspace, c *collection[T]) []T {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return c.list()
}
