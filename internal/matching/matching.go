// Package matching lists collaboration suggestions and the creator leaderboard.
package matching

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hyperbuds/hyperbuds-client/internal/apiclient"
	"github.com/hyperbuds/hyperbuds-client/internal/serviceerr"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Suggestion is a creator proposed for collaboration.
type Suggestion struct {
	UserID      string   `json:"userId"`
	Username    string   `json:"username,omitempty"`
	DisplayName string   `json:"displayName,omitempty"`
	AvatarURL   string   `json:"avatar,omitempty"`
	Niches      []string `json:"niches,omitempty"`
	Score       float64  `json:"compatibilityScore"`
}

type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"userId"`
	DisplayName string  `json:"displayName,omitempty"`
	Score       float64 `json:"score"`
}

type Service struct {
	api apiclient.Caller
}

func NewService(api apiclient.Caller) *Service {
	return &Service{api: api}
}

// Suggestions returns up to limit suggestions, best match first. A limit of zero
// uses DefaultLimit.
func (s *Service) Suggestions(ctx context.Context, limit int) ([]Suggestion, error) {
	switch {
	case limit == 0:
		limit = DefaultLimit
	case limit < 0 || limit > MaxLimit:
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", serviceerr.ErrInvalidInput, MaxLimit)
	}

	resp, err := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/matching/suggestions",
		Query:  url.Values{"limit": []string{strconv.Itoa(limit)}},
	})
	if err != nil {
		return nil, fmt.Errorf("fetching suggestions: %w", err)
	}

	suggestions, err := apiclient.DecodeItems[Suggestion](resp, "suggestions", "matches", "data")
	if err != nil {
		return nil, fmt.Errorf("fetching suggestions: %w", err)
	}

	return suggestions, nil
}

func (s *Service) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	resp, err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: "/matching/leaderboard"})
	if err != nil {
		return nil, fmt.Errorf("fetching leaderboard: %w", err)
	}

	entries, err := apiclient.DecodeItems[LeaderboardEntry](resp, "leaderboard", "data")
	if err != nil {
		return nil, fmt.Errorf("fetching leaderboard: %w", err)
	}

	return entries, nil
}
