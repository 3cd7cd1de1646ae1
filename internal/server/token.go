package server

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 72 * time.Hour

var errInvalidToken = errors.New("invalid or expired token")

// TokenService issues and verifies the two token kinds the devstack uses:
// session tokens for the REST API and broker-scoped channel tokens handed
// out by /chat/subscribe.
type TokenService struct {
	secret []byte
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// IssueSession returns a bearer token for the REST API.
func (t *TokenService) IssueSession(accountID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": accountID,
		"exp": time.Now().Add(tokenTTL).Unix(),
		"iss": "hopalong-devstack",
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// VerifySession returns the account id a session token grants.
func (t *TokenService) VerifySession(token string) (string, error) {
	claims, err := t.parse(token)
	if err != nil {
		return "", err
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", errInvalidToken
	}
	return sub, nil
}

// IssueChannel returns a broker token scoped to one channel.
func (t *TokenService) IssueChannel(accountID, channel string) (string, error) {
	claims := jwt.MapClaims{
		"sub":     accountID,
		"channel": channel,
		"exp":     time.Now().Add(tokenTTL).Unix(),
		"iss":     "hopalong-devstack",
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// VerifyChannel returns the account id a channel token grants. The hub
// uses it as the broker-side connect check.
func (t *TokenService) VerifyChannel(token string) (string, error) {
	return t.VerifySession(token)
}

func (t *TokenService) parse(token string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, errInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidToken
	}
	return claims, nil
}
