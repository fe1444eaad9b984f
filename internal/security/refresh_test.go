package security

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRefreshStore(t *testing.T) (*RefreshStore, *fakeRefreshRepo, *testClock) {
	t.Helper()
	clock := newTestClock()
	repo := newFakeRefreshRepo()
	s := NewRefreshStore(repo, time.Hour)
	s.now = clock.Now
	return s, repo, clock
}

func TestIssueOrRotateKeepsOneRecord(t *testing.T) {
	s, repo, clock := newTestRefreshStore(t)
	ctx := context.Background()

	first, err := s.IssueOrRotate(ctx, "A@x.com")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", first.Email)
	assert.Equal(t, clock.Now().Add(time.Hour), first.ExpiresAt)

	second, err := s.IssueOrRotate(ctx, "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)
	assert.Equal(t, 1, repo.count("a@x.com"))
	assert.Len(t, repo.byEmail, 1)

	_, err = s.Redeem(ctx, first.Token, "a@x.com")
	assert.ErrorIs(t, err, ErrRefreshNotFound)
	_, err = s.Redeem(ctx, second.Token, "a@x.com")
	assert.NoError(t, err)
}

func TestIssueOrRotateNeedsEmail(t *testing.T) {
	s, _, _ := newTestRefreshStore(t)
	_, err := s.IssueOrRotate(context.Background(), " ")
	assert.ErrorIs(t, err, ErrIssuance)
}

func TestRedeemRotates(t *testing.T) {
	s, repo, _ := newTestRefreshStore(t)
	ctx := context.Background()
	r1, err := s.IssueOrRotate(ctx, "a@x.com")
	require.NoError(t, err)

	r2, err := s.Redeem(ctx, r1.Token, "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, r1.Token, r2.Token)
	assert.Equal(t, "a@x.com", r2.Email)
	assert.Equal(t, 1, repo.count("a@x.com"))

	_, err = s.Redeem(ctx, r1.Token, "a@x.com")
	assert.ErrorIs(t, err, ErrRefreshNotFound)
}

func TestRedeemMismatch(t *testing.T) {
	s, _, clock := newTestRefreshStore(t)
	ctx := context.Background()
	r, err := s.IssueOrRotate(ctx, "a@x.com")
	require.NoError(t, err)

	_, err = s.Redeem(ctx, r.Token, "b@x.com")
	assert.ErrorIs(t, err, ErrRefreshMismatch)

	clock.Advance(2 * time.Hour)
	_, err = s.Redeem(ctx, r.Token, "b@x.com")
	assert.ErrorIs(t, err, ErrRefreshMismatch, "mismatch wins over expiry")

	_, err = s.Redeem(ctx, r.Token, "A@X.COM ")
	assert.ErrorIs(t, err, ErrRefreshExpired)
}

func TestRedeemExpiredDeletesRecord(t *testing.T) {
	s, repo, clock := newTestRefreshStore(t)
	ctx := context.Background()
	r, err := s.IssueOrRotate(ctx, "a@x.com")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	_, err = s.Redeem(ctx, r.Token, "a@x.com")
	assert.ErrorIs(t, err, ErrRefreshExpired)
	assert.Equal(t, 0, repo.count("a@x.com"))

	_, err = s.Redeem(ctx, r.Token, "a@x.com")
	assert.ErrorIs(t, err, ErrRefreshNotFound)
}

func TestRedeemUnknownToken(t *testing.T) {
	s, _, _ := newTestRefreshStore(t)
	_, err := s.Redeem(context.Background(), "nope", "a@x.com")
	assert.ErrorIs(t, err, ErrRefreshNotFound)
	_, err = s.Redeem(context.Background(), "", "a@x.com")
	assert.ErrorIs(t, err, ErrRefreshNotFound)
}

func TestRedeemStoreFailure(t *testing.T) {
	s, repo, _ := newTestRefreshStore(t)
	r, err := s.IssueOrRotate(context.Background(), "a@x.com")
	require.NoError(t, err)

	repo.err = errors.New("connection refused")
	_, err = s.Redeem(context.Background(), r.Token, "a@x.com")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, IsRefreshRejected(err))
	assert.ErrorIs(t, s.Revoke(context.Background(), "a@x.com"), ErrUnavailable)
}

func TestConcurrentRedeemSingleWinner(t *testing.T) {
	s, _, _ := newTestRefreshStore(t)
	ctx := context.Background()
	r, err := s.IssueOrRotate(ctx, "a@x.com")
	require.NoError(t, err)

	const workers = 16
	start := make(chan struct{})
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.Redeem(ctx, r.Token, "a@x.com")
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrRefreshNotFound)
	}
	assert.Equal(t, 1, wins)
}

func TestRevokeDeletesRecord(t *testing.T) {
	s, repo, _ := newTestRefreshStore(t)
	ctx := context.Background()
	r, err := s.IssueOrRotate(ctx, "a@x.com")
	require.NoError(t, err)

	require.NoError(t, s.Revoke(ctx, "a@x.com"))
	assert.Equal(t, 0, repo.count("a@x.com"))
	_, err = s.Redeem(ctx, r.Token, "a@x.com")
	assert.ErrorIs(t, err, ErrRefreshNotFound)
	require.NoError(t, s.Revoke(ctx, "a@x.com"))
}
