package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kartikbazzad/bunbase/marketplace/internal/models"
	apperrors "github.com/kartikbazzad/bunbase/marketplace/pkg/errors"
)

// DefaultTokenTTL is how long an issued session token stays valid.
const DefaultTokenTTL = 24 * time.Hour

const issuerName = "marketplace"

// Claims holds JWT claims. Subject is the actor id.
type Claims struct {
	jwt.RegisteredClaims
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

// Issuer issues and verifies stateless HS256 session tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer. A non-positive ttl means DefaultTokenTTL.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("no secret configured")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue creates a signed token for the given actor.
func (i *Issuer) Issue(subjectID, email string, role models.Role) (string, error) {
	now := i.now().UTC()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    issuerName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Email: email,
		Role:  role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", apperrors.Internal(err)
	}
	return signed, nil
}

// Verify parses and validates a token. Any failure is an authentication error.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithIssuer(issuerName), jwt.WithExpirationRequired())
	if err != nil {
		return nil, invalidToken(err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, invalidToken(nil)
	}
	if _, err := models.ParseRole(string(claims.Role)); err != nil {
		return nil, invalidToken(err)
	}
	return claims, nil
}

func invalidToken(cause error) error {
	return apperrors.New(apperrors.KindAuthentication, http.StatusUnauthorized, "Invalid or expired token", cause)
}
