package service

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/seedvault/internal/errs"
	"github.com/and161185/seedvault/internal/model"
)

// RoleAdmin grants access to seed administration.
const RoleAdmin = "admin"

// DefaultTokenTTL is the lifetime of issued caller tokens.
const DefaultTokenTTL = 24 * time.Hour

// Claims identify a caller: the subject is its uid.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// UID parses the subject as a uid.
func (c Claims) UID() (int, error) {
	uid, err := strconv.Atoi(c.Subject)
	if err != nil || uid <= model.InvalidUID {
		return 0, errs.ErrUnauthorized
	}
	return uid, nil
}

// AuthService issues and verifies caller tokens.
type AuthService interface {
	// IssueToken signs an HS256 JWT for uid.
	IssueToken(uid int, admin bool) (token string, expiresAt time.Time, err error)
	// ParseToken verifies a token and returns its claims.
	ParseToken(token string) (Claims, error)
}

type AuthServiceImpl struct {
	signKey   []byte
	accessTTL time.Duration
}

var _ AuthService = (*AuthServiceImpl)(nil)

// NewAuthService constructs AuthService; accessTTL <= 0 selects DefaultTokenTTL.
func NewAuthService(signKey []byte, accessTTL time.Duration) *AuthServiceImpl {
	if accessTTL <= 0 {
		accessTTL = DefaultTokenTTL
	}
	return &AuthServiceImpl{signKey: signKey, accessTTL: accessTTL}
}

// IssueToken creates a signed HS256 JWT for the given uid.
func (s *AuthServiceImpl) IssueToken(uid int, admin bool) (string, time.Time, error) {
	if uid <= model.InvalidUID {
		return "", time.Time{}, errors.New("validation: uid")
	}
	if len(s.signKey) == 0 {
		return "", time.Time{}, errors.New("validation: empty signing key")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now()
	exp := now.Add(s.accessTTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.String(),
			Subject:   strconv.Itoa(uid),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if admin {
		claims.Role = RoleAdmin
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	return signed, exp, err
}

// ParseToken verifies signature, algorithm and expiry.
func (s *AuthServiceImpl) ParseToken(token string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.signKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Claims{}, errs.ErrUnauthorized
	}
	if _, err := claims.UID(); err != nil {
		return Claims{}, err
	}
	return claims, nil
}
