package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrRefreshReused = errors.New("refresh token reused")

type RefreshToken struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	Revoked    bool
	ReplacedBy *string
	CreatedAt  time.Time
}

// RefreshStore persists hashed refresh tokens. Lookups of unknown hashes
// return ErrBadToken.
type RefreshStore interface {
	CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (string, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID, newID, userID, newHash string, newExpiry time.Time) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

type Pair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Sessions hands out access/refresh pairs and rotates refresh tokens.
type Sessions struct {
	issuer     *Issuer
	store      RefreshStore
	refreshTTL time.Duration
}

func NewSessions(issuer *Issuer, store RefreshStore, refreshTTL time.Duration) *Sessions {
	return &Sessions{issuer: issuer, store: store, refreshTTL: refreshTTL}
}

func (s *Sessions) Issuer() *Issuer { return s.issuer }

func (s *Sessions) Issue(ctx context.Context, uid, provider string) (Pair, error) {
	access, err := s.issuer.MakeToken(uid, provider)
	if err != nil {
		return Pair{}, fmt.Errorf("sign access token: %w", err)
	}
	raw, hash, err := GenerateRefreshToken()
	if err != nil {
		return Pair{}, err
	}
	if _, err := s.store.CreateRefreshToken(ctx, uid, hash, time.Now().Add(s.refreshTTL)); err != nil {
		return Pair{}, fmt.Errorf("store refresh token: %w", err)
	}
	return Pair{AccessToken: access, RefreshToken: raw, ExpiresAt: time.Now().Add(s.issuer.ttl)}, nil
}

// Refresh swaps a refresh token for a new pair. Presenting a token that was
// already rotated revokes every token of that user.
func (s *Sessions) Refresh(ctx context.Context, raw, provider string) (Pair, string, error) {
	rt, err := s.store.GetRefreshTokenByHash(ctx, HashRefreshToken(raw))
	if err != nil {
		return Pair{}, "", ErrBadToken
	}
	if rt.Revoked {
		_ = s.store.RevokeAllRefreshTokens(ctx, rt.UserID)
		return Pair{}, rt.UserID, ErrRefreshReused
	}
	if time.Now().After(rt.ExpiresAt) {
		return Pair{}, rt.UserID, ErrBadToken
	}

	newRaw, newHash, err := GenerateRefreshToken()
	if err != nil {
		return Pair{}, "", err
	}
	newID := uuid.New().String()
	if err := s.store.RotateRefreshToken(ctx, rt.ID, newID, rt.UserID, newHash, time.Now().Add(s.refreshTTL)); err != nil {
		return Pair{}, "", fmt.Errorf("rotate refresh token: %w", err)
	}
	access, err := s.issuer.MakeToken(rt.UserID, provider)
	if err != nil {
		return Pair{}, "", err
	}
	return Pair{AccessToken: access, RefreshToken: newRaw, ExpiresAt: time.Now().Add(s.issuer.ttl)}, rt.UserID, nil
}

func (s *Sessions) Revoke(ctx context.Context, uid string) error {
	return s.store.RevokeAllRefreshTokens(ctx, uid)
}

// MemoryRefreshStore keeps refresh tokens for the life of the process.
type MemoryRefreshStore struct {
	mu     sync.Mutex
	byHash map[string]*RefreshToken
}

func NewMemoryRefreshStore() *MemoryRefreshStore {
	return &MemoryRefreshStore{byHash: map[string]*RefreshToken{}}
}

func (m *MemoryRefreshStore) CreateRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) (string, error) {
	id := uuid.New().String()
	m.mu.Lock()
	m.byHash[tokenHash] = &RefreshToken{ID: id, UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	m.mu.Unlock()
	return id, nil
}

func (m *MemoryRefreshStore) GetRefreshTokenByHash(_ context.Context, tokenHash string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.byHash[tokenHash]
	if !ok {
		return nil, ErrBadToken
	}
	cp := *rt
	return &cp, nil
}

func (m *MemoryRefreshStore) RotateRefreshToken(_ context.Context, oldID, newID, userID, newHash string, newExpiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rt := range m.byHash {
		if rt.ID == oldID {
			rt.Revoked = true
			rt.ReplacedBy = &newID
		}
	}
	m.byHash[newHash] = &RefreshToken{ID: newID, UserID: userID, TokenHash: newHash, ExpiresAt: newExpiry, CreatedAt: time.Now()}
	return nil
}

func (m *MemoryRefreshStore) RevokeAllRefreshTokens(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rt := range m.byHash {
		if rt.UserID == userID {
			rt.Revoked = true
		}
	}
	return nil
}
