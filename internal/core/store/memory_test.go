package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-compat/internal/infrastructure/config"
	"recipe-compat/internal/pkg/common"
)

const fixtureJSON = `{
  "recipes": [
    {"id": "r1", "title": "Garlic Shrimp", "components": [
      {"name": "Main", "ingredients": [{"name": "shrimp", "quantity": 500, "unit": "g"}]}
    ]}
  ],
  "persons": [
    {"id": "p1", "name": "Alice", "allergens": ["shellfish"], "restrictions": []}
  ],
  "circles": [
    {"id": "c1", "name": "Family", "members": [
      {"id": "p1", "name": "Alice", "allergens": ["shellfish"]},
      {"name": "Guest", "restrictions": ["vegan"]}
    ]}
  ]
}`

func TestParseFixtures(t *testing.T) {
	s, err := ParseFixtures([]byte(fixtureJSON))
	require.NoError(t, err)
	ctx := context.Background()

	r, err := s.GetRecipe(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Garlic Shrimp", r.Title)
	require.Len(t, r.Components, 1)
	assert.Equal(t, 500.0, *r.Components[0].Ingredients[0].Quantity)

	c, err := s.GetCircle(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, c.Members, 2)
	guestID := c.Members[1].ID
	assert.NotEmpty(t, guestID)

	guest, err := s.GetPerson(ctx, guestID)
	require.NoError(t, err)
	assert.Equal(t, []string{"vegan"}, guest.Restrictions)
}

func TestParseFixturesRejectsMissingIDs(t *testing.T) {
	_, err := ParseFixtures([]byte(`{"recipes": [{"title": "no id"}]}`))
	require.Error(t, err)
	assert.True(t, common.IsValidationError(err))

	_, err = ParseFixtures([]byte(`{"recipes": [`))
	assert.Error(t, err)
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetRecipe(ctx, "missing")
	assert.True(t, errors.Is(err, common.ErrRecipeNotFound))

	_, err = s.GetCircle(ctx, "missing")
	assert.True(t, errors.Is(err, common.ErrCircleNotFound))

	_, err = s.GetPerson(ctx, "missing")
	assert.True(t, errors.Is(err, common.ErrPersonNotFound))

	err = s.RecordLanguage(ctx, "missing", "en")
	assert.True(t, errors.Is(err, common.ErrRecipeNotFound))
}

func TestMemoryStoreRecordLanguage(t *testing.T) {
	s := NewMemoryStore()
	s.PutRecipe(common.Recipe{ID: "r1", Title: "Soup"})
	ctx := context.Background()

	before, err := s.GetRecipe(ctx, "r1")
	require.NoError(t, err)

	require.NoError(t, s.RecordLanguage(ctx, "r1", "fr"))

	after, err := s.GetRecipe(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "fr", after.StoredLanguage())
	assert.Empty(t, before.LanguageDetected, "earlier snapshots are not mutated")
}

func TestNewLoadsFixtureFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(fixtureJSON), 0o644))

	cfg := &config.Config{Store: config.StoreConfig{Driver: config.DriverMemory, FixturesPath: path}}
	s, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))

	_, err = s.GetRecipe(context.Background(), "r1")
	assert.NoError(t, err)

	cfg.Store.FixturesPath = filepath.Join(t.TempDir(), "missing.json")
	_, err = New(cfg)
	assert.ErrorContains(t, err, "failed to read fixtures")

	cfg.Store.Driver = "sqlite"
	_, err = New(cfg)
	assert.ErrorContains(t, err, "unknown store driver")
}
