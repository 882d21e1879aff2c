package progress

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("progress: missing authentication token")
	ErrInvalidToken = errors.New("progress: invalid authentication token")
	ErrExpiredToken = errors.New("progress: token has expired")
)

// Authenticator extracts and validates a caller identity from an
// inbound request, for both the WebSocket upgrade and the REST
// endpoints it shares a secret with.
type Authenticator interface {
	Authenticate(r *http.Request) (subject string, err error)
}

// JWTAuth validates bearer tokens issued out-of-band for this service.
type JWTAuth struct {
	secretKey string
}

func NewJWTAuth(secretKey string) *JWTAuth {
	return &JWTAuth{secretKey: secretKey}
}

type claims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// Authenticate tries, in order, the Authorization header, the "token"
// query parameter (for browser WebSocket clients that can't set
// custom headers), then Sec-WebSocket-Protocol.
func (a *JWTAuth) Authenticate(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return a.validate(strings.TrimPrefix(header, "Bearer "))
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return a.validate(token)
	}
	if protocols := r.Header.Get("Sec-WebSocket-Protocol"); protocols != "" {
		for _, p := range strings.Split(protocols, ",") {
			p = strings.TrimSpace(p)
			if strings.HasPrefix(p, "auth-") {
				return a.validate(strings.TrimPrefix(p, "auth-"))
			}
		}
	}
	return "", ErrMissingToken
}

func (a *JWTAuth) validate(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(a.secretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid || c.Subject == "" {
		return "", ErrInvalidToken
	}
	return c.Subject, nil
}

// GenerateToken issues a token for tooling/testing; production issuance
// is an external collaborator's responsibility.
func (a *JWTAuth) GenerateToken(subject string, expiresAt time.Time) (string, error) {
	c := claims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(a.secretKey))
}

// NoAuth accepts every connection; used when auth is disabled for local development.
type NoAuth struct{}

func (NoAuth) Authenticate(r *http.Request) (string, error) {
	if subject := r.URL.Query().Get("subject"); subject != "" {
		return subject, nil
	}
	return "anonymous", nil
}
