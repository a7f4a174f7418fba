package local

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"skytrack/internal/identity"
	"skytrack/internal/model"
	"skytrack/internal/slot"
)

// Accounts persists local accounts. Missing accounts yield identity.ErrNotFound
// and duplicate emails identity.ErrEmailTaken.
type Accounts interface {
	CreateAccount(ctx context.Context, a *model.Account) error
	AccountByEmail(ctx context.Context, email string) (*model.Account, error)
	AccountByID(ctx context.Context, uid string) (*model.Account, error)
	UpdateAccount(ctx context.Context, a *model.Account) error
}

// SlotAccounts keeps every account in the single accounts slot, the way the
// browser mock kept its user table.
type SlotAccounts struct {
	mu    sync.Mutex
	slots slot.Slots
}

func NewSlotAccounts(s slot.Slots) *SlotAccounts {
	return &SlotAccounts{slots: s}
}

func (s *SlotAccounts) load(ctx context.Context) ([]model.Account, error) {
	raw, ok, err := s.slots.Get(ctx, slot.AccountsKey)
	if err != nil || !ok {
		return nil, err
	}
	var all []model.Account
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("%s: %w", slot.AccountsKey, err)
	}
	return all, nil
}

func (s *SlotAccounts) save(ctx context.Context, all []model.Account) error {
	raw, err := json.Marshal(all)
	if err != nil {
		return err
	}
	return s.slots.Put(ctx, slot.AccountsKey, raw)
}

func (s *SlotAccounts) CreateAccount(ctx context.Context, a *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.load(ctx)
	if err != nil {
		return err
	}
	for _, x := range all {
		if x.Email == a.Email {
			return identity.ErrEmailTaken
		}
	}
	return s.save(ctx, append(all, *a))
}

func (s *SlotAccounts) AccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return s.find(ctx, func(a model.Account) bool { return a.Email == email })
}

func (s *SlotAccounts) AccountByID(ctx context.Context, uid string) (*model.Account, error) {
	return s.find(ctx, func(a model.Account) bool { return a.UID == uid })
}

func (s *SlotAccounts) find(ctx context.Context, match func(model.Account) bool) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range all {
		if match(a) {
			return &a, nil
		}
	}
	return nil, identity.ErrNotFound
}

func (s *SlotAccounts) UpdateAccount(ctx context.Context, a *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i := range all {
		if all[i].UID == a.UID {
			all[i] = *a
			return s.save(ctx, all)
		}
	}
	return identity.ErrNotFound
}
