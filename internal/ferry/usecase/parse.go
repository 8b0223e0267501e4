package usecase

import (
	"strings"

	"github.com/shandysiswandi/goferry/internal/ferry/entity"
	"github.com/shandysiswandi/goferry/internal/ferry/source"
)

// classifyLinks turns raw user input into link entries. Unrecognized URLs
// stay ProviderUnknown and fail during processing, so one bad link never
// rejects the whole batch.
func classifyLinks(links []LinkInput) []entity.LinkEntry {
	entries := make([]entity.LinkEntry, 0, len(links))
	for _, link := range links {
		raw := strings.TrimSpace(link.URL)
		entries = append(entries, entity.LinkEntry{
			Raw:      raw,
			Provider: classifyURL(raw),
			Name:     strings.TrimSpace(link.Name),
		})
	}

	return entries
}

func classifyURL(rawURL string) entity.Provider {
	switch {
	case source.MatchPixeldrain(rawURL):
		return entity.ProviderPixeldrain
	case source.MatchMegaFolder(rawURL):
		return entity.ProviderMegaFolder
	case source.MatchMegaFile(rawURL):
		return entity.ProviderMegaFile
	default:
		return entity.ProviderUnknown
	}
}
