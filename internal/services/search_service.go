package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joshua-takyi/homeswift/internal/auth"
	"github.com/joshua-takyi/homeswift/internal/metrics"
	"github.com/joshua-takyi/homeswift/internal/models"
	"github.com/joshua-takyi/homeswift/internal/query"
)

const MaxSuggestions = 10

type SearchService struct {
	properties models.PropertyRepo
	users      models.UserRepo
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewSearchService(properties models.PropertyRepo, users models.UserRepo, m *metrics.Metrics, logger *slog.Logger) *SearchService {
	return &SearchService{properties: properties, users: users, metrics: m, logger: logger}
}

// Search runs d over visible listings. When the caller is signed in and
// searched for text, the term is recorded in their history; failures there
// never fail the search.
func (ss *SearchService) Search(ctx context.Context, caller *auth.Principal, d query.Descriptor, filters string) ([]*models.Property, int, error) {
	props, total, err := ss.properties.ListProperties(ctx, visibleOnly(d))
	if err != nil {
		return nil, 0, err
	}
	ss.metrics.RecordSearch()

	if caller != nil && d.Search != nil && d.Search.Term != "" {
		ss.recordHistory(ctx, caller, models.SearchEntry{
			Query:      d.Search.Term,
			Filters:    filters,
			SearchedAt: time.Now().UTC(),
		})
	}
	return props, total, nil
}

func (ss *SearchService) recordHistory(ctx context.Context, caller *auth.Principal, e models.SearchEntry) {
	u, err := ss.users.GetUserByID(ctx, caller.UserID)
	if err != nil {
		ss.logger.Warn("search history lookup failed", "user_id", caller.UserID, "error", err)
		return
	}
	history := u.SearchHistory.Record(e)
	if _, err := ss.users.UpdateUser(ctx, u.ID, map[string]any{"search_history": history}); err != nil {
		ss.logger.Warn("search history update failed", "user_id", caller.UserID, "error", err)
	}
}

// Suggestions returns distinct cities of visible listings starting with prefix.
func (ss *SearchService) Suggestions(ctx context.Context, prefix string) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []string{}, nil
	}
	cities, err := ss.properties.CitySuggestions(ctx, prefix, MaxSuggestions)
	if err != nil {
		return nil, err
	}
	if len(cities) > MaxSuggestions {
		cities = cities[:MaxSuggestions]
	}
	return cities, nil
}
