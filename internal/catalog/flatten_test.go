package catalog

import (
	"testing"

	"github.com/UkralStul/fanfic-archive-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten_GroupsJoinRowsByWorkAndKind(t *testing.T) {
	works := []*domain.Work{{ID: 2, Title: "second"}, {ID: 1, Title: "first"}}
	rows := []domain.MetadataRow{
		{WorkID: 1, Kind: domain.KindWarning, Name: "Major Character Death"},
		{WorkID: 1, Kind: domain.KindTag, Name: "Fluff"},
		{WorkID: 2, Kind: domain.KindWarning, Name: "No Archive Warnings Apply"},
		{WorkID: 1, Kind: domain.KindTag, Name: "Angst"},
		{WorkID: 1, Kind: domain.KindTag, Name: "Angst"},
		{WorkID: 99, Kind: domain.KindTag, Name: "orphan"},
	}

	flat := Flatten(works, rows)
	require.Len(t, flat, 2)

	// порядок работ сохраняется
	assert.Equal(t, int64(2), flat[0].ID)
	assert.Equal(t, []string{"No Archive Warnings Apply"}, flat[0].Warnings)
	assert.Empty(t, flat[0].Tags)

	assert.Equal(t, int64(1), flat[1].ID)
	assert.Equal(t, []string{"Angst", "Fluff"}, flat[1].Tags)
	assert.Equal(t, []string{"Major Character Death"}, flat[1].Warnings)
}

func TestFlatten_MissingRelationsAreEmptyNotNil(t *testing.T) {
	flat := Flatten([]*domain.Work{{ID: 7}}, nil)
	require.Len(t, flat, 1)

	w := flat[0]
	for _, arr := range [][]string{w.Tags, w.Characters, w.Fandoms, w.Relationships, w.Warnings, w.Categories} {
		assert.NotNil(t, arr)
		assert.Len(t, arr, 0)
	}
}
