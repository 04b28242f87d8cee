package catalog

import (
	"sort"

	"github.com/UkralStul/fanfic-archive-service/internal/domain"
)

// Flatten сворачивает строки join-ов в массивы имен для каждой работы.
// Порядок работ сохраняется; отсутствующая связь дает пустой массив, не nil.
func Flatten(works []*domain.Work, rows []domain.MetadataRow) []*domain.FlattenedWork {
	grouped := make(map[int64]map[domain.MetadataKind][]string, len(works))
	for _, r := range rows {
		byKind, ok := grouped[r.WorkID]
		if !ok {
			byKind = make(map[domain.MetadataKind][]string)
			grouped[r.WorkID] = byKind
		}
		byKind[r.Kind] = append(byKind[r.Kind], r.Name)
	}

	result := make([]*domain.FlattenedWork, 0, len(works))
	for _, w := range works {
		byKind := grouped[w.ID]
		result = append(result, &domain.FlattenedWork{
			Work:          *w,
			Tags:          names(byKind[domain.KindTag]),
			Characters:    names(byKind[domain.KindCharacter]),
			Fandoms:       names(byKind[domain.KindFandom]),
			Relationships: names(byKind[domain.KindRelationship]),
			Warnings:      names(byKind[domain.KindWarning]),
			Categories:    names(byKind[domain.KindCategory]),
		})
	}
	return result
}

// names возвращает отсортированную копию без повторов.
func names(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, n := range in {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
