package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joshua-takyi/homeswift/internal/models"
	"github.com/joshua-takyi/homeswift/internal/query"
)

type WaitlistInput struct {
	Email  string `json:"email" validate:"required,email"`
	Name   string `json:"name" validate:"max=200"`
	Source string `json:"source" validate:"max=100"`
}

type WaitlistService struct {
	repo   models.WaitlistRepo
	logger *slog.Logger
}

func NewWaitlistService(repo models.WaitlistRepo, logger *slog.Logger) *WaitlistService {
	return &WaitlistService{repo: repo, logger: logger}
}

func (ws *WaitlistService) Join(ctx context.Context, in WaitlistInput) (*models.WaitlistEntry, error) {
	in.Email = models.NormalizeEmail(in.Email)
	if err := models.Validate.Struct(in); err != nil {
		return nil, err
	}
	entry, err := ws.repo.AddToWaitlist(ctx, &models.WaitlistEntry{
		Email:  in.Email,
		Name:   strings.TrimSpace(in.Name),
		Source: strings.TrimSpace(in.Source),
	})
	if err != nil {
		return nil, fmt.Errorf("join waitlist: %w", err)
	}
	return entry, nil
}

func (ws *WaitlistService) Count(ctx context.Context) (int, error) {
	return ws.repo.CountWaitlist(ctx)
}

func (ws *WaitlistService) List(ctx context.Context, page query.Page) ([]*models.WaitlistEntry, int, error) {
	return ws.repo.ListWaitlist(ctx, page)
}
