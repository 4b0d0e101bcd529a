package auth

import (
	"errors"
	"time"

	"sdp-backend/internal/timeutil"

	"github.com/golang-jwt/jwt/v5"
)

// Token kinds keep customer and operator sessions apart even though both
// share one signing secret and one cookie name.
const (
	KindCustomer = "customer"
	KindAdmin    = "admin"
)

var ErrMissingSecret = errors.New("jwt secret is not configured")

// Claims is the payload carried by every session token
type Claims struct {
	Kind        string   `json:"kind"`
	Email       string   `json:"email,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// AccountID returns the subject the token was issued for
func (c *Claims) AccountID() string {
	return c.Subject
}

// TokenSigner issues and verifies HS256 session tokens. It is the only token
// codec in the service: the route-level session checks and the perimeter
// gate both go through Verify.
type TokenSigner struct {
	secret []byte
	issuer string
	now    timeutil.Clock
}

func NewTokenSigner(secret, issuer string) (*TokenSigner, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &TokenSigner{
		secret: []byte(secret),
		issuer: issuer,
		now:    timeutil.Now,
	}, nil
}

// WithClock returns a copy of the signer that reads time from clock
func (s *TokenSigner) WithClock(clock timeutil.Clock) *TokenSigner {
	cp := *s
	cp.now = timeutil.OrNow(clock)
	return &cp
}

// Issue signs claims with a lifetime of ttl. IssuedAt, ExpiresAt and Issuer
// are always set by the signer.
func (s *TokenSigner) Issue(claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}
	now := s.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	claims.Issuer = s.issuer

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	return token.SignedString(s.secret)
}

// Verify returns the token's claims when it is well formed, correctly signed
// and unexpired. It never returns an error; every failure is just false.
func (s *TokenSigner) Verify(tokenString string) (*Claims, bool) {
	if tokenString == "" {
		return nil, false
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, false
	}
	if claims.Subject == "" {
		return nil, false
	}

	return claims, true
}
