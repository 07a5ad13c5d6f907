package auth

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/MikeRez0/webstore/internal/core/domain"
	"github.com/MikeRez0/webstore/internal/core/port"
)

const tokenTTL = 24 * time.Hour

type PasetoToken struct {
	parser *paseto.Parser
	key    *paseto.V4SymmetricKey
}

// New returns a token service for the hex encoded key. An empty key makes
// a random one, so tokens do not survive a restart.
func New(hexKey string) (port.TokenService, error) {
	key := paseto.NewV4SymmetricKey()
	if hexKey != "" {
		var err error
		key, err = paseto.V4SymmetricKeyFromHex(hexKey)
		if err != nil {
			return nil, fmt.Errorf("invalid token key: %w", err)
		}
	}

	parser := paseto.NewParser()
	parser.AddRule(paseto.NotExpired())

	s := PasetoToken{
		parser: &parser,
		key:    &key,
	}

	return &s, nil
}

func (p *PasetoToken) CreateToken(user *domain.User) (string, error) {
	token := paseto.NewToken()
	token.SetIssuedAt(time.Now())
	token.SetExpiration(time.Now().Add(tokenTTL))

	payload := port.TokenPayload{UserID: user.ID, Role: user.Role}
	err := token.Set("payload", payload)
	if err != nil {
		return "", domain.ErrTokenCreation
	}

	return token.V4Encrypt(*p.key, nil), nil
}

func (p *PasetoToken) VerifyToken(token string) (*port.TokenPayload, error) {
	parsedToken, err := p.parser.ParseV4Local(*p.key, token, nil)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	payload := port.TokenPayload{}
	err = parsedToken.Get("payload", &payload)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	if payload.Role == "" {
		payload.Role = domain.RoleUser
	}
	return &payload, nil
}
