package security

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/22maksim/task-manager/internal/model"
	"github.com/22maksim/task-manager/internal/repository"
	"github.com/22maksim/task-manager/internal/utils"
)

// RefreshRepository persists one refresh token hash per email.
// Upsert replaces in place; Swap is a compare-and-swap on the stored hash.
type RefreshRepository interface {
	Upsert(ctx context.Context, email, tokenHash string, exp time.Time) error
	FindByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error)
	Swap(ctx context.Context, email, oldHash, newHash string, exp time.Time) (bool, error)
	DeleteByHash(ctx context.Context, tokenHash string) error
	DeleteByEmail(ctx context.Context, email string) error
}

// RefreshRecord is the client-facing view of a live refresh token.  Token
// is the raw value; it is never persisted.
type RefreshRecord struct {
	Email     string
	Token     string
	ExpiresAt time.Time
}

// RefreshStore owns refresh token issuance and rotation.
type RefreshStore struct {
	repo     RefreshRepository
	ttl      time.Duration
	now      func() time.Time
	newValue func() (string, error)
}

func NewRefreshStore(repo RefreshRepository, ttl time.Duration) *RefreshStore {
	return &RefreshStore{repo: repo, ttl: ttl, now: time.Now, newValue: utils.NewRefreshValue}
}

// IssueOrRotate gives email a new refresh token, replacing any previous one.
func (s *RefreshStore) IssueOrRotate(ctx context.Context, email string) (RefreshRecord, error) {
	email = repository.NormalizeEmail(email)
	if email == "" {
		return RefreshRecord{}, fmt.Errorf("%w: refresh token needs an owner", ErrIssuance)
	}
	raw, err := s.newValue()
	if err != nil {
		return RefreshRecord{}, fmt.Errorf("%w: generate refresh token: %v", ErrIssuance, err)
	}
	exp := s.now().UTC().Add(s.ttl)
	if err := s.repo.Upsert(ctx, email, utils.HashToken(raw), exp); err != nil {
		return RefreshRecord{}, fmt.Errorf("%w: store refresh token: %v", ErrUnavailable, err)
	}
	return RefreshRecord{Email: email, Token: raw, ExpiresAt: exp}, nil
}

// Redeem exchanges token for a rotated one.  The token must belong to
// expectedEmail and be unexpired; an expired token is deleted.  Rotation
// is conditional on the stored hash, so of two concurrent redeems of the
// same token only one succeeds and the other sees ErrRefreshNotFound.
func (s *RefreshStore) Redeem(ctx context.Context, token, expectedEmail string) (RefreshRecord, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return RefreshRecord{}, ErrRefreshNotFound
	}
	hash := utils.HashToken(token)
	rec, err := s.repo.FindByHash(ctx, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return RefreshRecord{}, ErrRefreshNotFound
	}
	if err != nil {
		return RefreshRecord{}, fmt.Errorf("%w: load refresh token: %v", ErrUnavailable, err)
	}
	if rec.Email != repository.NormalizeEmail(expectedEmail) {
		return RefreshRecord{}, ErrRefreshMismatch
	}
	if !s.now().Before(rec.ExpiresAt) {
		if derr := s.repo.DeleteByHash(ctx, hash); derr != nil {
			return RefreshRecord{}, fmt.Errorf("%w (cleanup failed: %v)", ErrRefreshExpired, derr)
		}
		return RefreshRecord{}, ErrRefreshExpired
	}

	raw, err := s.newValue()
	if err != nil {
		return RefreshRecord{}, fmt.Errorf("%w: generate refresh token: %v", ErrIssuance, err)
	}
	exp := s.now().UTC().Add(s.ttl)
	swapped, err := s.repo.Swap(ctx, rec.Email, hash, utils.HashToken(raw), exp)
	if err != nil {
		return RefreshRecord{}, fmt.Errorf("%w: rotate refresh token: %v", ErrUnavailable, err)
	}
	if !swapped {
		return RefreshRecord{}, ErrRefreshNotFound
	}
	return RefreshRecord{Email: rec.Email, Token: raw, ExpiresAt: exp}, nil
}

// Revoke deletes the refresh token of email, if any.
func (s *RefreshStore) Revoke(ctx context.Context, email string) error {
	if err := s.repo.DeleteByEmail(ctx, repository.NormalizeEmail(email)); err != nil {
		return fmt.Errorf("%w: delete refresh token: %v", ErrUnavailable, err)
	}
	return nil
}
