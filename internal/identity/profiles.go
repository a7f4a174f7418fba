package identity

import (
	"context"
	"encoding/json"
	"fmt"

	"skytrack/internal/model"
	"skytrack/internal/slot"
)

// Profiles keeps user documents (name, photo, role) in per-user slots for
// backends that do not store them themselves.
type Profiles struct {
	slots slot.Slots
}

func NewProfiles(s slot.Slots) *Profiles {
	return &Profiles{slots: s}
}

func (p *Profiles) Get(ctx context.Context, uid string) (model.User, bool, error) {
	raw, ok, err := p.slots.Get(ctx, slot.ProfileKey(uid))
	if err != nil || !ok {
		return model.User{}, false, err
	}
	var u model.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return model.User{}, false, fmt.Errorf("profile %s: %w", uid, err)
	}
	return u, true, nil
}

func (p *Profiles) Put(ctx context.Context, u model.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return p.slots.Put(ctx, slot.ProfileKey(u.UID), raw)
}

// Ensure returns the stored profile, creating it from u with role student
// when none exists yet.
func (p *Profiles) Ensure(ctx context.Context, u model.User) (model.User, error) {
	got, ok, err := p.Get(ctx, u.UID)
	if err != nil {
		return model.User{}, err
	}
	if ok {
		return got, nil
	}
	u.Name = DisplayName(u.Name, u.Email)
	u.Role = model.RoleStudent
	if err := p.Put(ctx, u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

func (p *Profiles) Update(ctx context.Context, uid string, patch model.ProfilePatch) (model.User, error) {
	u, ok, err := p.Get(ctx, uid)
	if err != nil {
		return model.User{}, err
	}
	if !ok {
		return model.User{}, ErrNotFound
	}
	patch.Apply(&u)
	if err := p.Put(ctx, u); err != nil {
		return model.User{}, err
	}
	return u, nil
}
