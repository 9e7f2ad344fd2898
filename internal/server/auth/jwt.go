package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/common"
	"github.com/dmitrijs2005/learnhub/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the identity of an access token holder on top of the
// registered claims (sub, iss, aud, exp, iat).
type Claims struct {
	jwt.RegisteredClaims
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  models.Role `json:"role"`
}

// Identity is what gets embedded into an access token.
type Identity struct {
	UserID   string
	Email    string
	FullName string
	Role     models.Role
	// MinIssuedAt raises iat when it is later than the current time.
	MinIssuedAt time.Time
}

// Issuer signs and validates HS256 access tokens for one deployment.
type Issuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewIssuer builds an Issuer. now may be nil, in which case time.Now is used.
func NewIssuer(secret []byte, issuer, audience string, ttl time.Duration, now func() time.Time) *Issuer {
	if now == nil {
		now = time.Now
	}
	return &Issuer{secret: secret, issuer: issuer, audience: audience, ttl: ttl, now: now}
}

// IssueAccess mints an access token for id and returns it with its expiry.
func (i *Issuer) IssueAccess(id Identity) (string, time.Time, error) {
	now := i.now()
	expires := now.Add(i.ttl)
	issuedAt := now
	if id.MinIssuedAt.After(issuedAt) {
		issuedAt = id.MinIssuedAt
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Email: id.Email,
		Name:  id.FullName,
		Role:  id.Role,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Parse validates signature, issuer, audience and expiry of tokenString.
// Expired tokens yield common.ErrTokenExpired, every other failure
// common.ErrInvalidToken.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" || !claims.Role.Valid() {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
