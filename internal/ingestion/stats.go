package ingestion

import (
	"slices"

	"github.com/spacesedan/newsmood/internal/models"
)

const topSourcesLimit = 5

// Statistics summarises a batch of cleaned articles: how many, from how many
// sources, the five biggest sources and the published date range. Sources
// with equal counts keep the order they were first seen in.
func Statistics(articles []models.Article) models.IngestionStats {
	if len(articles) == 0 {
		return models.IngestionStats{}
	}

	counts := map[string]int{}
	var order []string
	var earliest, latest string
	for _, a := range articles {
		source := a.String("source", UnknownSource)
		if _, ok := counts[source]; !ok {
			order = append(order, source)
		}
		counts[source]++

		published := a.Text("published_at")
		if published == "" {
			continue
		}
		if earliest == "" || published < earliest {
			earliest = published
		}
		if published > latest {
			latest = published
		}
	}

	slices.SortStableFunc(order, func(a, b string) int {
		return counts[b] - counts[a]
	})
	top := make([]models.SourceCount, 0, min(len(order), topSourcesLimit))
	for _, source := range order[:min(len(order), topSourcesLimit)] {
		top = append(top, models.SourceCount{Source: source, Count: counts[source]})
	}

	stats := models.IngestionStats{
		Total:      len(articles),
		Sources:    len(counts),
		TopSources: top,
	}
	if earliest != "" {
		stats.DateRange = &models.DateRange{Earliest: earliest, Latest: latest}
	}
	return stats
}
