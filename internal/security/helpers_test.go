package security

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/22maksim/task-manager/internal/model"
	"github.com/22maksim/task-manager/internal/repository"
)

func secretOfLen(n int) string {
	return base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{'k'}, n))
}

var testSecret = secretOfLen(32)

func base64Of(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeUsers struct {
	mu      sync.Mutex
	byEmail map[string]model.User
	nextID  uint64
	err     error
	creates int
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byEmail: map[string]model.User{}} }

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.User{}, f.err
	}
	u, ok := f.byEmail[repository.NormalizeEmail(email)]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) Create(_ context.Context, u model.User) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.err != nil {
		return model.User{}, f.err
	}
	if _, ok := f.byEmail[u.Email]; ok {
		return model.User{}, repository.ErrEmailExists
	}
	f.nextID++
	u.ID = f.nextID
	f.byEmail[u.Email] = u
	return u, nil
}

func (f *fakeUsers) put(u model.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byEmail[u.Email] = u
}

// fakeRefreshRepo mimics the unique-by-email table with atomic single-row operations.
type fakeRefreshRepo struct {
	mu      sync.Mutex
	byEmail map[string]model.RefreshToken
	err     error
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{byEmail: map[string]model.RefreshToken{}}
}

func (f *fakeRefreshRepo) Upsert(_ context.Context, email, hash string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.byEmail[email] = model.RefreshToken{Email: email, TokenHash: hash, ExpiresAt: exp}
	return nil
}

func (f *fakeRefreshRepo) FindByHash(_ context.Context, hash string) (model.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.RefreshToken{}, f.err
	}
	for _, t := range f.byEmail {
		if t.TokenHash == hash {
			return t, nil
		}
	}
	return model.RefreshToken{}, repository.ErrNotFound
}

func (f *fakeRefreshRepo) Swap(_ context.Context, email, oldHash, newHash string, exp time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	t, ok := f.byEmail[email]
	if !ok || t.TokenHash != oldHash {
		return false, nil
	}
	f.byEmail[email] = model.RefreshToken{Email: email, TokenHash: newHash, ExpiresAt: exp}
	return true, nil
}

func (f *fakeRefreshRepo) DeleteByHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for email, t := range f.byEmail {
		if t.TokenHash == hash {
			delete(f.byEmail, email)
		}
	}
	return nil
}

func (f *fakeRefreshRepo) DeleteByEmail(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.byEmail, email)
	return nil
}

func (f *fakeRefreshRepo) count(email string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[email]; ok {
		return 1
	}
	return 0
}

// plainPasswords keeps hashes readable in tests.
type plainPasswords struct{}

func (plainPasswords) Hash(plain string) (string, error) {
	if plain == "boom" {
		return "", errors.New("hash failed")
	}
	return "h:" + plain, nil
}

func (plainPasswords) Verify(hash, plain string) bool { return hash == "h:"+plain }

type fixture struct {
	clock   *testClock
	codec   *Codec
	ledger  *Ledger
	refresh *RefreshStore
	repo    *fakeRefreshRepo
	users   *fakeUsers
	mr      *miniredis.Miniredis
	gate    *Gate
}

func newTestCodec(t *testing.T, clock *testClock) *Codec {
	t.Helper()
	codec, err := NewCodec(testSecret, 15*time.Minute)
	require.NoError(t, err)
	codec.now = clock.Now
	return codec
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := newTestClock()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := newFakeRefreshRepo()
	refresh := NewRefreshStore(repo, 24*time.Hour)
	refresh.now = clock.Now

	f := &fixture{
		clock:   clock,
		codec:   newTestCodec(t, clock),
		ledger:  NewLedger(repository.NewRedisTTLStore(rdb), "", discardLogger()),
		refresh: refresh,
		repo:    repo,
		users:   newFakeUsers(),
		mr:      mr,
	}
	f.gate = NewGate(f.codec, f.ledger, f.refresh, f.users, plainPasswords{}, discardLogger())
	return f
}

func (f *fixture) addUser(email string, role model.Role, status model.Status) model.User {
	u := model.User{ID: uint64(len(email)), Email: email, PasswordHash: "h:pw", Role: role, Status: status}
	f.users.put(u)
	return u
}
