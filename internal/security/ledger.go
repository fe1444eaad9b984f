package security

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/22maksim/task-manager/internal/utils"
)

// TTLStore is the external key-value capability behind the ledger.  Both
// operations must be atomic single-key commands.
type TTLStore interface {
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// DefaultLedgerPrefix namespaces ledger keys in a shared store.
const DefaultLedgerPrefix = "blacklist"

const revokedMarker = "revoked"

// Ledger is the set of access tokens revoked before their natural expiry.
// Entries expire together with the token they shadow, so the set needs
// no cleanup.
type Ledger struct {
	store  TTLStore
	prefix string
	log    *slog.Logger
}

func NewLedger(store TTLStore, prefix string, log *slog.Logger) *Ledger {
	if prefix == "" {
		prefix = DefaultLedgerPrefix
	}
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{store: store, prefix: prefix, log: log}
}

// Revoke records token for ttl, which must be the token's remaining
// lifetime.  A non-positive ttl means the token is already dead and
// nothing is written.  Revoking twice is a no-op.
func (l *Ledger) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" {
		return fmt.Errorf("%w: cannot revoke empty token", ErrInvalidToken)
	}
	if ttl <= 0 {
		l.log.Debug("revocation skipped, token already expired")
		return nil
	}
	written, err := l.store.SetIfAbsent(ctx, l.key(token), revokedMarker, ttl)
	if err != nil {
		return fmt.Errorf("%w: revoke: %v", ErrUnavailable, err)
	}
	if !written {
		l.log.Debug("token already revoked")
	}
	return nil
}

// IsRevoked reports whether token is in the ledger.
func (l *Ledger) IsRevoked(ctx context.Context, token string) (bool, error) {
	ok, err := l.store.Exists(ctx, l.key(token))
	if err != nil {
		return false, fmt.Errorf("%w: revocation lookup: %v", ErrUnavailable, err)
	}
	return ok, nil
}

func (l *Ledger) key(token string) string {
	return l.prefix + ":" + utils.HashToken(token)
}
