package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTTL applies when neither the caller nor configuration set one.
const DefaultAccessTTL = 24 * time.Hour

// ErrInvalidToken covers every reason a token is rejected.
var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 bearer tokens. Validation is
// stateless: there is no revocation list.
type TokenService struct {
	secret     []byte
	defaultTTL time.Duration
	now        func() time.Time
}

func NewTokenService(secret string, defaultTTL time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token secret not set")
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultAccessTTL
	}
	return &TokenService{secret: []byte(secret), defaultTTL: defaultTTL, now: time.Now}, nil
}

// Issue signs a token for subject. A non-positive ttl uses the default.
// expiresIn is the lifetime in whole seconds.
func (s *TokenService) Issue(subject string, ttl time.Duration) (token string, expiresIn int64, err error) {
	if subject == "" {
		return "", 0, errors.New("token subject is required")
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	now := s.now()
	exp := now.Add(ttl)

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", 0, err
	}
	return token, int64(ttl / time.Second), nil
}

// Validate returns the subject of a well-formed, correctly signed, unexpired
// token, or ErrInvalidToken.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
