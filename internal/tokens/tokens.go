package tokens

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/snsphoto/gallery-api/pkg/middleware"
)

// Issuer generates and verifies the admin access tokens used by the CMS
// surface. HS256 with a shared secret; single-operator, no refresh flow.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// CheckCredentials compares the supplied credentials against the configured
// admin pair in constant time.
func CheckCredentials(wantUser, wantPass, user, pass string) bool {
	if wantUser == "" || wantPass == "" {
		return false
	}
	u := subtle.ConstantTimeCompare([]byte(wantUser), []byte(user))
	p := subtle.ConstantTimeCompare([]byte(wantPass), []byte(pass))
	return u == 1 && p == 1
}

// GenerateAccessToken creates a signed JWT for the admin subject.
func (i *Issuer) GenerateAccessToken(subject string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": "admin",
		"iat":  i.now().Unix(),
		"exp":  i.now().Add(i.ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString(i.secret)
}

// claimsToken adapts parsed claims to the middleware Token interface.
type claimsToken struct {
	claims jwt.MapClaims
}

func (t *claimsToken) Claims(v interface{}) error {
	b, err := json.Marshal(t.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Verify parses and validates a raw token, satisfying the middleware
// Verifier interface so JWT and OIDC verification are interchangeable.
func (i *Issuer) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return &claimsToken{claims: claims}, nil
}
