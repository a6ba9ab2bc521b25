package keywords

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/keyword-estimator/internal/common"
)

var sampleRows = []Row{
	{Keyword: "apple", Value: "10"},
	{Keyword: "banana, split", Value: "-5"},
	{Keyword: "value", Value: "abc"},
}

func TestFileStoresRoundTripAndMissingFile(t *testing.T) {
	ctx := context.Background()
	for _, name := range []string{"keywords.csv", "keywords.yaml", "keywords.json", "keywords.db"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			store, err := OpenStore(ctx, path, nil)
			require.NoError(t, err)
			defer store.Close()
			assert.Equal(t, path, store.Location())

			rows, warnings, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, rows)
			assert.Empty(t, warnings)

			require.NoError(t, store.Save(ctx, sampleRows))
			rows, warnings, err = store.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, warnings)
			assert.Equal(t, sampleRows, rows)

			require.NoError(t, store.Save(ctx, sampleRows[:1]))
			rows, _, err = store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, sampleRows[:1], rows)
		})
	}
}

func TestLoadSpecDropsInvalidValues(t *testing.T) {
	ctx := context.Background()
	store := NewCSVStore(filepath.Join(t.TempDir(), "k.csv"), nil)
	require.NoError(t, store.Save(ctx, []Row{{Keyword: "value", Value: "abc"}, {Keyword: "cost", Value: "3"}}))

	spec, warnings, err := LoadSpec(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, Spec{{Keyword: "cost", Value: 3}}, spec)
	require.Len(t, warnings, 1)
	assert.ErrorIs(t, warnings[0], ErrInvalidValue)
}

func TestLoadTableRoundTripKeepsInvalidRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "k.csv")
	require.NoError(t, os.WriteFile(path, []byte("value,abc\ncost,3\n"), 0o644))
	store := NewCSVStore(path, nil)

	table, spec, warnings, err := LoadTable(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, Spec{{Keyword: "cost", Value: 3}}, spec)
	assert.Len(t, warnings, 1)

	require.NoError(t, store.Save(ctx, table.Set(Entry{Keyword: "apple", Value: 2})))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "value,abc\ncost,3\napple,2\n", string(b))
}

func TestSaveSpecRows(t *testing.T) {
	ctx := context.Background()
	store := NewYAMLStore(filepath.Join(t.TempDir(), "k.yml"), nil)
	spec := Spec{{Keyword: "a", Value: 1}, {Keyword: "b", Value: -2}}
	require.NoError(t, store.Save(ctx, spec.Rows()))

	got, warnings, err := LoadSpec(ctx, store)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, spec, got)
}

func TestCSVStoreMalformedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k.csv")
	require.NoError(t, os.WriteFile(path, []byte("apple,1\nlonely\nbanana,2,extra\ncherry,3\n"), 0o644))

	rows, warnings, err := NewCSVStore(path, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Row{{Keyword: "apple", Value: "1"}, {Keyword: "cherry", Value: "3"}}, rows)
	require.Len(t, warnings, 2)
	assert.Equal(t, 2, warnings[0].Row)
	assert.Equal(t, 3, warnings[1].Row)
	assert.ErrorIs(t, warnings[0], ErrMalformedRow)
}

func TestYAMLStoreMalformed(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	notList := filepath.Join(dir, "map.yaml")
	require.NoError(t, os.WriteFile(notList, []byte("apple: 1\n"), 0o644))
	rows, warnings, err := NewYAMLStore(notList, nil).Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
	require.Len(t, warnings, 1)
	assert.ErrorIs(t, warnings[0], ErrMalformedRow)

	mixed := filepath.Join(dir, "mixed.yaml")
	require.NoError(t, os.WriteFile(mixed, []byte("- keyword: apple\n  value: 4\n- [1, 2]\n"), 0o644))
	rows, warnings, err = NewYAMLStore(mixed, nil).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Row{{Keyword: "apple", Value: "4"}}, rows)
	require.Len(t, warnings, 1)
	assert.Equal(t, 2, warnings[0].Row)
}

func TestJSONStoreSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k.json")
	doc := `{"keywords": [
		{"keyword": "value", "value": "abc"},
		{"keyword": "cost", "value": 3},
		{"keyword": "", "value": "1"},
		{"keyword": "weight", "value": 2.5},
		{"keyword": "tax", "value": "7", "note": "x"}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	store, err := NewJSONStore(path, nil)
	require.NoError(t, err)

	rows, warnings, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Row{{Keyword: "value", Value: "abc"}, {Keyword: "cost", Value: "3"}}, rows)
	// one for the document, one per rejected row
	assert.Len(t, warnings, 4)

	spec, parseWarnings := ParseRows(rows)
	assert.Equal(t, Spec{{Keyword: "cost", Value: 3}}, spec)
	assert.Len(t, parseWarnings, 1)
}

func TestJSONStoreNotJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))
	store, err := NewJSONStore(path, nil)
	require.NoError(t, err)

	rows, warnings, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Len(t, warnings, 1)
}

func TestOpenStoreRejectsUnknown(t *testing.T) {
	_, err := OpenStore(context.Background(), "keywords.txt", nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	_, err = OpenStore(context.Background(), "", nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("KEYWORDS_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("KEYWORDS_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	store, err := OpenStore(ctx, dsn, nil)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(ctx, sampleRows))
	rows, _, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleRows, rows)

	require.NoError(t, store.Save(ctx, nil))
	rows, _, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
