package main

import (
	"context"
	"fmt"

	"github.com/MikeRez0/webstore/internal/adapter/storage/memory"
	"github.com/MikeRez0/webstore/internal/core/domain"
	"github.com/MikeRez0/webstore/internal/core/port"
	"github.com/govalues/decimal"
	"go.uber.org/zap"
)

// seedDemo fills the in-memory store and logs a token per demo user.
func seedDemo(ctx context.Context, repo *memory.Repository, ts port.TokenService, log *zap.Logger) error {
	users := []*domain.User{
		{ID: 1, Email: "admin@webstore.local", Role: domain.RoleAdmin},
		{ID: 10, Email: "alice@webstore.local", Role: domain.RoleUser},
		{ID: 11, Email: "bob@webstore.local", Role: domain.RoleUser},
	}
	products := []*domain.Product{
		{ID: 1, Name: "Chair", Price: decimal.MustParse("100.00"), Stock: 20, Active: true},
		{ID: 2, Name: "Desk", Price: decimal.MustParse("250.00"), Stock: 5, Active: true},
		{ID: 3, Name: "Lamp", Price: decimal.MustParse("39.90"), Stock: 50, Active: true},
		{ID: 4, Name: "Bookshelf", Price: decimal.MustParse("180.00"), Stock: 0, Active: false},
	}

	for _, u := range users {
		_, err := repo.CreateUser(ctx, u)
		if err != nil {
			return fmt.Errorf("seed user %d: %w", u.ID, err)
		}
		token, err := ts.CreateToken(u)
		if err != nil {
			return fmt.Errorf("token for user %d: %w", u.ID, err)
		}
		log.Info("demo user",
			zap.Uint64("id", u.ID),
			zap.String("email", u.Email),
			zap.String("role", string(u.Role)),
			zap.String("token", token))
	}
	for _, p := range products {
		_, err := repo.CreateProduct(ctx, p)
		if err != nil {
			return fmt.Errorf("seed product %d: %w", p.ID, err)
		}
	}
	return nil
}
