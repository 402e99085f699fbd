package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleStaff   Role = "staff"
	RoleManager Role = "manager"
)

// Claims is the payload of a staff session token (JWT, HS256).
type Claims struct {
	jwt.RegisteredClaims

	Facility string `json:"facility"`
	Role     Role   `json:"role,omitempty"`
}

// Staff is a verified session.
type Staff struct {
	Facility  string
	Name      string
	Role      Role
	ExpiresAt time.Time
}

// CanOverride reports whether the staff member may cancel, mark no-show or reopen.
func (s Staff) CanOverride() bool {
	return s.Role == RoleManager
}

type Issuer struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

func (i Issuer) Issue(s Staff, now time.Time) (string, error) {
	if i.Secret == "" {
		return "", fmt.Errorf("missing session secret")
	}
	if s.Facility == "" || s.Name == "" {
		return "", fmt.Errorf("facility and staff name required")
	}
	ttl := i.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.Issuer,
			Subject:   s.Name,
			Audience:  jwt.ClaimStrings{i.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Facility: s.Facility,
		Role:     s.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.Secret))
}

// Verify checks signature, time bounds and audience, and returns the staff identity.
func Verify(tokenString, audience, secret string, now time.Time) (*Staff, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("missing token")
	}
	if secret == "" {
		return nil, fmt.Errorf("missing session secret")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	claims := &Claims{}
	tok, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}

	if audience != "" && !audContains(claims.Audience, audience) {
		return nil, fmt.Errorf("audience mismatch")
	}
	if claims.Facility == "" {
		return nil, fmt.Errorf("missing facility in token")
	}

	role := claims.Role
	if role == "" {
		role = RoleStaff
	}
	return &Staff{
		Facility:  claims.Facility,
		Name:      claims.Subject,
		Role:      role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func audContains(aud []string, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
