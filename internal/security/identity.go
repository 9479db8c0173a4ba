// Package security validates bearer tokens and derives a typed identity
// from them. The identity is passed explicitly through call parameters;
// there is no ambient principal.
package security

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shashank-materialplus/order-api/internal/usecase"
)

const (
	claimUserID   = "user_id"
	claimUserType = "user_type"

	RoleAdmin = "ADMIN"
)

// Identity is the authenticated caller: subject id plus role names derived
// from the user-type claim.
type Identity struct {
	UserID string
	Roles  []string
}

func (id Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (id Identity) IsAdmin() bool { return id.HasRole(RoleAdmin) }

// Verifier checks token signatures and extracts identities. Key material
// comes from configuration; loading it is the caller's concern.
type Verifier struct {
	secret []byte
	leeway time.Duration
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), leeway: 30 * time.Second}
}

func (v *Verifier) parse(raw string) (jwt.MapClaims, error) {
	if raw == "" {
		return nil, usecase.ErrUnauthenticated("token cannot be empty", nil)
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	}, jwt.WithLeeway(v.leeway))
	if err != nil || !token.Valid {
		return nil, usecase.ErrUnauthenticated("invalid or expired token", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, usecase.ErrUnauthenticated("malformed token claims", nil)
	}
	return claims, nil
}

// Validate checks structure, signature and expiry.
func (v *Verifier) Validate(raw string) error {
	_, err := v.parse(raw)
	return err
}

// ExtractIdentity validates the token and returns the typed identity. The
// user-id claim is mandatory; the user-type claim may be a single string
// or a list of strings, and its absence yields an identity with no roles.
func (v *Verifier) ExtractIdentity(raw string) (Identity, error) {
	claims, err := v.parse(raw)
	if err != nil {
		return Identity{}, err
	}

	userID, _ := claims[claimUserID].(string)
	if strings.TrimSpace(userID) == "" {
		return Identity{}, usecase.ErrUnauthenticated("user_id claim is missing or blank", nil)
	}

	id := Identity{UserID: userID}
	switch ut := claims[claimUserType].(type) {
	case string:
		if ut != "" {
			id.Roles = []string{strings.ToUpper(ut)}
		}
	case []any:
		for _, r := range ut {
			if s, ok := r.(string); ok && s != "" {
				id.Roles = append(id.Roles, strings.ToUpper(s))
			}
		}
	}
	return id, nil
}
