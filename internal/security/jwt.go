package security

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidIssuer   = errors.New("invalid token issuer")
	ErrInvalidAudience = errors.New("invalid token audience")
	ErrTokenExpired    = errors.New("token expired")
	ErrInvalidSubject  = errors.New("invalid token subject")
)

// Identity — результат проверки credential-а на handshake.
type Identity struct {
	UserID string
	Name   string
	Role   string
}

type AccessClaims struct {
	jwt.StandardClaims
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// TokenVerifier проверяет RS256-токены, которые выпускает auth-service.
// Здесь только валидация: выпуск токенов — не наша зона.
type TokenVerifier struct {
	public    *rsa.PublicKey
	issuer    string
	audience  string
	clockSkew time.Duration
}

func NewTokenVerifier(public *rsa.PublicKey, issuer, audience string, clockSkew time.Duration) *TokenVerifier {
	return &TokenVerifier{
		public:    public,
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
	}
}

func (v *TokenVerifier) Verify(tokenStr string) (Identity, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok || t.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, ErrInvalidToken
		}
		return v.public, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	if !claims.VerifyIssuer(v.issuer, v.issuer != "") {
		return Identity{}, ErrInvalidIssuer
	}
	if !claims.VerifyAudience(v.audience, v.audience != "") {
		return Identity{}, ErrInvalidAudience
	}

	// временные клеймы с допуском clockSkew
	now := time.Now()
	if claims.ExpiresAt != 0 && now.After(time.Unix(claims.ExpiresAt, 0).Add(v.clockSkew)) {
		return Identity{}, ErrTokenExpired
	}
	if claims.NotBefore != 0 && now.Before(time.Unix(claims.NotBefore, 0).Add(-v.clockSkew)) {
		return Identity{}, ErrTokenExpired
	}

	if claims.Subject == "" {
		return Identity{}, ErrInvalidSubject
	}

	ident := Identity{
		UserID: claims.Subject,
		Name:   claims.Name,
		Role:   claims.Role,
	}
	if ident.Name == "" {
		ident.Name = ident.UserID
	}
	if ident.Role == "" {
		ident.Role = "user"
	}

	return ident, nil
}
