package security

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/22maksim/task-manager/internal/model"
)

// minKeyBytes is the smallest HMAC key accepted (256 bits).
const minKeyBytes = 32

// Claims is the verified payload of an access token.  Role carries the
// "ROLE_" prefix; Permissions is the set granted to that role at issue time.
type Claims struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// AccessToken is a signed JWT along with its expiry.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// Codec issues and verifies HMAC-signed access tokens.  It is safe for
// concurrent use.
type Codec struct {
	key    []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec builds a codec from a base64 encoded secret.  The secret must
// decode to at least 32 bytes; the HMAC variant follows the key length.
// Every failure wraps ErrConfig.
func NewCodec(secret string, accessTTL time.Duration) (*Codec, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("%w: signing secret is empty", ErrConfig)
	}
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: signing secret is not valid base64: %v", ErrConfig, err)
	}
	if len(key) < minKeyBytes {
		return nil, fmt.Errorf("%w: signing secret decodes to %d bytes, need at least %d", ErrConfig, len(key), minKeyBytes)
	}
	if accessTTL <= 0 {
		return nil, fmt.Errorf("%w: access token TTL must be positive", ErrConfig)
	}
	return &Codec{key: key, method: methodForKey(key), ttl: accessTTL, now: time.Now}, nil
}

func methodForKey(key []byte) *jwt.SigningMethodHMAC {
	switch {
	case len(key) >= 64:
		return jwt.SigningMethodHS512
	case len(key) >= 48:
		return jwt.SigningMethodHS384
	default:
		return jwt.SigningMethodHS256
	}
}

// TTL is the lifetime of tokens minted by Issue.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue mints an access token for u.  It refuses principals with a blank
// email or an undefined role.
func (c *Codec) Issue(u model.User) (AccessToken, error) {
	email := strings.TrimSpace(u.Email)
	if email == "" {
		return AccessToken{}, fmt.Errorf("%w: principal has no email", ErrIssuance)
	}
	if _, ok := rolePermissions[u.Role]; !ok {
		return AccessToken{}, fmt.Errorf("%w: principal %s has undefined role %q", ErrIssuance, email, u.Role)
	}

	now := c.now()
	claims := Claims{
		Role:        RoleAuthority(u.Role),
		Permissions: PermissionStrings(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.key)
	if err != nil {
		return AccessToken{}, fmt.Errorf("%w: sign: %v", ErrIssuance, err)
	}
	return AccessToken{Token: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Verify checks signature, algorithm and expiry before looking at any
// claim, then requires a non-blank subject and role.  Failures wrap
// ErrExpiredToken or ErrInvalidToken.
func (c *Codec) Verify(token string) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	claims := &Claims{}
	tok, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpiredToken, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, fmt.Errorf("%w: token not valid", ErrInvalidToken)
	}
	if !c.now().Before(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("%w: expired at %s", ErrExpiredToken, claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
	}
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.Role) == "" {
		return nil, fmt.Errorf("%w: missing subject or role", ErrInvalidToken)
	}
	return claims, nil
}

// IsExpired reports whether token fails verification only because it has
// expired.  Tampered or malformed tokens report false.
func (c *Codec) IsExpired(token string) bool {
	_, err := c.Verify(token)
	return errors.Is(err, ErrExpiredToken)
}

// Remaining is how long the token behind claims stays valid, never negative.
func (c *Codec) Remaining(claims *Claims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	d := claims.ExpiresAt.Time.Sub(c.now())
	if d < 0 {
		return 0
	}
	return d
}
