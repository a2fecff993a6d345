package notify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvelasco/fasegate/pkg/models"
	"github.com/nvelasco/fasegate/pkg/notify"
)

func TestMatchStatus_ExactNameCaseInsensitive(t *testing.T) {
	statuses := []models.ProductStatus{
		{ID: 9, Name: "En Diseño"},
		{ID: 10, Name: "En Producción"},
	}

	matched, ok := notify.MatchStatus(models.Phase{ID: 2, Name: "en producción"}, statuses)
	require.True(t, ok)
	assert.Equal(t, 10, matched.ID)
}

func TestMatchStatus_TrimsWhitespace(t *testing.T) {
	statuses := []models.ProductStatus{{ID: 10, Name: "  En Producción "}}

	matched, ok := notify.MatchStatus(models.Phase{Name: "En Producción"}, statuses)
	require.True(t, ok)
	assert.Equal(t, 10, matched.ID)
}

func TestMatchStatus_ByCode(t *testing.T) {
	statuses := []models.ProductStatus{
		{ID: 9, Code: "DIS", Name: "Fase de diseño"},
		{ID: 10, Code: "PROD", Name: "Fase de producción"},
	}

	matched, ok := notify.MatchStatus(models.Phase{Code: "prod", Name: "Sin parecido"}, statuses)
	require.True(t, ok)
	assert.Equal(t, 10, matched.ID)
}

func TestMatchStatus_SubstringEitherDirection(t *testing.T) {
	statuses := []models.ProductStatus{{ID: 10, Name: "En Producción"}}

	// Phase name contained in status name.
	matched, ok := notify.MatchStatus(models.Phase{Name: "Producción"}, statuses)
	require.True(t, ok)
	assert.Equal(t, 10, matched.ID)

	// Status name contained in phase name.
	statuses = []models.ProductStatus{{ID: 11, Name: "Entrega"}}
	matched, ok = notify.MatchStatus(models.Phase{Name: "Entrega final"}, statuses)
	require.True(t, ok)
	assert.Equal(t, 11, matched.ID)
}

func TestMatchStatus_FirstMatchWins(t *testing.T) {
	statuses := []models.ProductStatus{
		{ID: 10, Name: "Producción interna"},
		{ID: 11, Name: "Producción externa"},
	}

	matched, ok := notify.MatchStatus(models.Phase{Name: "Producción"}, statuses)
	require.True(t, ok)
	assert.Equal(t, 10, matched.ID)
}

func TestMatchStatus_NoMatch(t *testing.T) {
	statuses := []models.ProductStatus{{ID: 10, Name: "En Producción"}}

	_, ok := notify.MatchStatus(models.Phase{Name: "Embalaje"}, statuses)
	assert.False(t, ok)
}

func TestParseRecipients(t *testing.T) {
	assert.Equal(t,
		[]string{"a@x.es", "b@x.es", "c@x.es"},
		notify.ParseRecipients("a@x.es; b@x.es,c@x.es"))
	assert.Equal(t, []string{"a@x.es"}, notify.ParseRecipients("  a@x.es  "))
	assert.Empty(t, notify.ParseRecipients(" ; , "))
	assert.Empty(t, notify.ParseRecipients(""))
}
