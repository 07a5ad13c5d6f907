package port

import "github.com/MikeRez0/webstore/internal/core/domain"

type TokenPayload struct {
	UserID uint64
	Role   domain.Role
}

func (p *TokenPayload) Principal() *domain.Principal {
	return &domain.Principal{
		UserID:        p.UserID,
		Role:          p.Role,
		Authenticated: true,
	}
}

//go:generate mockgen -source=auth.go -destination=mock/auth.go -package=mock
type TokenService interface {
	CreateToken(user *domain.User) (string, error)
	VerifyToken(token string) (*TokenPayload, error)
}
