package security

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/22maksim/task-manager/internal/repository"
	"github.com/22maksim/task-manager/internal/utils"
)

func newTestLedger(t *testing.T) (*Ledger, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewLedger(repository.NewRedisTTLStore(rdb), "bl", discardLogger()), mr
}

func TestLedgerRevokeLivesExactlyTTL(t *testing.T) {
	ledger, mr := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Revoke(ctx, "tok-1", 90*time.Second))
	revoked, err := ledger.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, 90*time.Second, mr.TTL("bl:"+utils.HashToken("tok-1")))

	other, err := ledger.IsRevoked(ctx, "tok-2")
	require.NoError(t, err)
	assert.False(t, other)

	mr.FastForward(89 * time.Second)
	revoked, _ = ledger.IsRevoked(ctx, "tok-1")
	assert.True(t, revoked)
	mr.FastForward(time.Second)
	revoked, _ = ledger.IsRevoked(ctx, "tok-1")
	assert.False(t, revoked, "entry must vanish with the token")
}

func TestLedgerRevokeIsIdempotent(t *testing.T) {
	ledger, mr := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Revoke(ctx, "tok", time.Minute))
	mr.FastForward(10 * time.Second)
	require.NoError(t, ledger.Revoke(ctx, "tok", time.Minute))
	assert.Equal(t, 50*time.Second, mr.TTL("bl:"+utils.HashToken("tok")), "second revoke must not extend the entry")
}

func TestLedgerSkipsDeadTokens(t *testing.T) {
	ledger, mr := newTestLedger(t)
	require.NoError(t, ledger.Revoke(context.Background(), "tok", 0))
	require.NoError(t, ledger.Revoke(context.Background(), "tok", -time.Second))
	assert.Empty(t, mr.Keys())
	assert.ErrorIs(t, ledger.Revoke(context.Background(), "", time.Minute), ErrInvalidToken)
}

func TestLedgerStoresHashedKeys(t *testing.T) {
	ledger, mr := newTestLedger(t)
	require.NoError(t, ledger.Revoke(context.Background(), "raw.jwt.value", time.Minute))
	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.NotContains(t, keys[0], "raw.jwt.value")
	assert.Equal(t, "bl:"+utils.HashToken("raw.jwt.value"), keys[0])
}

func TestLedgerStoreFailure(t *testing.T) {
	ledger, mr := newTestLedger(t)
	mr.SetError("ERR simulated outage")

	assert.ErrorIs(t, ledger.Revoke(context.Background(), "tok", time.Minute), ErrUnavailable)
	_, err := ledger.IsRevoked(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLedgerDefaultPrefix(t *testing.T) {
	l := NewLedger(nil, "", nil)
	assert.Equal(t, "blacklist:"+utils.HashToken("x"), l.key("x"))
}
