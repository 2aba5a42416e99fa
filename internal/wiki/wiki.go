// Package wiki resolves OSRS wiki pages and summaries.
package wiki

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mheard/bobbot/internal/markup"
	"github.com/mheard/bobbot/internal/osrs"
)

const wikiBase = "https://oldschool.runescape.wiki/w/"

// Service answers wiki questions, preferring the game data service and
// falling back to a best-guess URL when it is unavailable.
type Service struct {
	api    *osrs.APIClient
	logger *slog.Logger
}

func New(api *osrs.APIClient, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, logger: logger.With("component", "wiki")}
}

// PageURL returns the wiki URL for a search term. When the game data
// service cannot resolve it, the term is turned into a direct wiki link
// the way the wiki itself names pages.
func (s *Service) PageURL(ctx context.Context, term string) string {
	if s.api != nil && s.api.Configured() {
		page, err := s.api.WikiSummary(ctx, term)
		if err == nil && page.URL != "" {
			return page.URL
		}
		if err != nil {
			s.logger.Debug("wiki lookup failed, using fallback URL", "term", term, "error", err)
		}
	}
	return FallbackURL(term)
}

// Summary returns a plain-text summary of a wiki page. The game data
// service returns summaries as HTML fragments, so tags are stripped
// before the text is handed to the model.
func (s *Service) Summary(ctx context.Context, term string) (string, error) {
	if s.api == nil || !s.api.Configured() {
		return "", fmt.Errorf("wiki lookups need the game data service, which is not configured")
	}

	page, err := s.api.WikiSummary(ctx, term)
	if err != nil {
		return "", err
	}

	summary := markup.StripHTML(page.Summary)
	if summary == "" {
		return fmt.Sprintf("I found the page but it has no summary: %s", page.URL), nil
	}
	if page.URL != "" {
		summary += "\n\nRead more: " + page.URL
	}
	return summary, nil
}

// FallbackURL builds a direct wiki link from a search term using the
// wiki's Name_With_Underscores convention.
func FallbackURL(term string) string {
	term = strings.TrimSpace(term)
	words := strings.Fields(term)
	for i, w := range words {
		if i == 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return wikiBase + strings.Join(words, "_")
}
