package services

import (
	"context"
	"strings"

	model "github.com/callendorph/mturkemu/internal/models"
	repository "github.com/callendorph/mturkemu/internal/repositories"
)

// parseKeywords splits a comma-separated keyword string into normalized,
// deduplicated tag values.
func parseKeywords(raw string) []string {
	seen := map[string]bool{}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		value := strings.ToLower(strings.TrimSpace(part))
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		out = append(out, value)
	}
	return out
}

// resolveKeywords maps keyword values onto tag rows, creating tags for
// values not seen before.
func resolveKeywords(ctx context.Context, repo *repository.TaskRepository, raw string) ([]model.KeywordTag, error) {
	values := parseKeywords(raw)
	tags := make([]model.KeywordTag, 0, len(values))
	for _, value := range values {
		tag, _, err := repo.FindOrCreateKeyword(ctx, value)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}
