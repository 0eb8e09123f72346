package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339Nano, s)
	require.NoError(t, err)
	return v
}

func TestVisitedSet_RecordIsIdempotent(t *testing.T) {
	s := NewVisitedSet("https://a/1.pdf")
	assert.True(t, s.Contains("https://a/1.pdf"))
	assert.False(t, s.Record("https://a/1.pdf"))
	assert.True(t, s.Record("https://a/2.pdf"))
	assert.False(t, s.Record(""))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"https://a/1.pdf", "https://a/2.pdf"}, s.Sorted())
}

func TestSortRecords_NewestFirstWithURLTieBreak(t *testing.T) {
	same := ts(t, "2024-05-01T10:00:00Z")
	rs := []Record{
		{URL: "https://b", Timestamp: same},
		{URL: "https://old", Timestamp: ts(t, "2023-01-01T00:00:00Z")},
		{URL: "https://a", Timestamp: same},
		{URL: "https://new", Timestamp: ts(t, "2025-01-01T00:00:00Z")},
	}
	SortRecords(rs)
	var got []string
	for _, r := range rs {
		got = append(got, r.URL)
	}
	assert.Equal(t, []string{"https://new", "https://a", "https://b", "https://old"}, got)
}

func TestMerge_DoesNotModifyPrior(t *testing.T) {
	prior := []Record{{URL: "https://p", Timestamp: ts(t, "2024-01-01T00:00:00Z"), Excerpt: "x"}}
	added := []Record{{URL: "https://n", Timestamp: ts(t, "2024-06-01T00:00:00Z")}}
	out := Merge(prior, added)
	require.Len(t, out, 2)
	assert.Equal(t, "https://n", out[0].URL)
	assert.Equal(t, "https://p", prior[0].URL)
	assert.Equal(t, "x", out[1].Excerpt)
}

func TestRecord_UnmarshalLegacyFields(t *testing.T) {
	var r Record
	err := r.UnmarshalJSON([]byte(`{"link":"https://x/a.pdf","data":"2024-03-05T08:09:10.123456","trecho":"abc...","keyword":"maria"}`))
	require.NoError(t, err)
	assert.Equal(t, "https://x/a.pdf", r.URL)
	assert.Equal(t, "abc...", r.Excerpt)
	assert.Equal(t, []string{"maria"}, r.Keywords)
	assert.Equal(t, 2024, r.Timestamp.Year())
	assert.Equal(t, 123456000, r.Timestamp.Nanosecond())
}

func TestRecord_UnmarshalRejectsBadTimestamp(t *testing.T) {
	var r Record
	assert.Error(t, r.UnmarshalJSON([]byte(`{"url":"u","timestamp":"yesterday"}`)))
}

func TestJSONFiles_MissingAndBlankLoadEmpty(t *testing.T) {
	dir := t.TempDir()
	blank := filepath.Join(dir, "blank.json")
	require.NoError(t, os.WriteFile(blank, []byte("  \n"), 0o644))
	j := &JSONFiles{VisitedPath: filepath.Join(dir, "missing.json"), ResultsPath: blank}

	v, err := j.LoadVisited(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, v.Len())

	rs, err := j.LoadResults(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rs)
}

func TestJSONFiles_CorruptLoadsEmptyWithLoadError(t *testing.T) {
	dir := t.TempDir()
	vp := filepath.Join(dir, "visited.json")
	rp := filepath.Join(dir, "results.json")
	require.NoError(t, os.WriteFile(vp, []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(rp, []byte(`{"url": 1}`), 0o644))
	j := &JSONFiles{VisitedPath: vp, ResultsPath: rp}

	v, err := j.LoadVisited(context.Background())
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, vp, le.Path)
	assert.Equal(t, 0, v.Len())

	rs, err := j.LoadResults(context.Background())
	require.True(t, errors.As(err, &le))
	assert.Empty(t, rs)
}

func TestJSONFiles_SaveFormat(t *testing.T) {
	dir := t.TempDir()
	j := &JSONFiles{VisitedPath: filepath.Join(dir, "v.json"), ResultsPath: filepath.Join(dir, "r.json")}
	ctx := context.Background()

	require.NoError(t, j.SaveVisited(ctx, NewVisitedSet("https://b/2.pdf", "https://a/1.pdf")))
	b, err := os.ReadFile(j.VisitedPath)
	require.NoError(t, err)
	assert.Equal(t, "[\n  \"https://a/1.pdf\",\n  \"https://b/2.pdf\"\n]\n", string(b))

	rs := []Record{{URL: "https://x/a?b=1&c=2", Timestamp: ts(t, "2024-01-02T03:04:05.5Z"), Keywords: []string{"José"}, Excerpt: "<José>"}}
	require.NoError(t, j.SaveResults(ctx, rs))
	b, err = os.ReadFile(j.ResultsPath)
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, `"url": "https://x/a?b=1&c=2"`)
	assert.Contains(t, out, `"excerpt": "<José>"`)
	assert.Contains(t, out, `"timestamp": "2024-01-02T03:04:05.5Z"`)
	assert.True(t, strings.HasPrefix(out, "[\n  {\n    \"url\""))
}

func TestJSONFiles_RoundTripKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	j := &JSONFiles{VisitedPath: filepath.Join(dir, "v.json"), ResultsPath: filepath.Join(dir, "r.json")}
	ctx := context.Background()
	first := []Record{{URL: "https://s/doc.pdf", Timestamp: ts(t, "2024-01-01T00:00:00Z"), Keywords: []string{"k"}}}
	require.NoError(t, j.SaveResults(ctx, first))

	loaded, err := j.LoadResults(ctx)
	require.NoError(t, err)
	second := []Record{{URL: "https://s/doc.pdf", Timestamp: ts(t, "2024-02-01T00:00:00Z"), Keywords: []string{"k"}}}
	require.NoError(t, j.SaveResults(ctx, Merge(loaded, second)))

	loaded, err = j.LoadResults(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.True(t, loaded[0].Timestamp.After(loaded[1].Timestamp))
}

func TestJSONFiles_BackupKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	vp := filepath.Join(dir, "v.json")
	require.NoError(t, os.WriteFile(vp, []byte(`["https://old"]`), 0o644))
	fixed := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	j := &JSONFiles{VisitedPath: vp, Backup: true, now: func() time.Time { return fixed }}

	require.NoError(t, j.SaveVisited(context.Background(), NewVisitedSet("https://new")))
	matches, err := filepath.Glob(vp + ".*.bak")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	b, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, `["https://old"]`, string(b))
}

func TestJSONFiles_CorruptFileIsKeptAsideOnSave(t *testing.T) {
	dir := t.TempDir()
	rp := filepath.Join(dir, "r.json")
	require.NoError(t, os.WriteFile(rp, []byte("[{oops"), 0o644))
	j := &JSONFiles{ResultsPath: rp}

	_, err := j.LoadResults(context.Background())
	require.Error(t, err)
	require.NoError(t, j.SaveResults(context.Background(), []Record{{URL: "https://n", Timestamp: ts(t, "2024-01-01T00:00:00Z")}}))

	matches, err := filepath.Glob(rp + ".*.bak")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	b, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, "[{oops", string(b))
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(Options{Backend: "redis"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestOpen_UnreadableDatabaseIsMovedAside(t *testing.T) {
	for _, backend := range []string{"sqlite", "leveldb"} {
		t.Run(backend, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "state")
			garbage := strings.Repeat("not a database\n", 300)
			require.NoError(t, os.WriteFile(p, []byte(garbage), 0o644))

			b, err := Open(Options{Backend: backend, Path: p})
			require.NotNil(t, b)
			var le *LoadError
			require.ErrorAs(t, err, &le)
			assert.ErrorIs(t, err, ErrCorrupt)
			assert.Equal(t, p, le.Path)

			baks, globErr := filepath.Glob(p + ".*.bak")
			require.NoError(t, globErr)
			require.Len(t, baks, 1)
			kept, err := os.ReadFile(baks[0])
			require.NoError(t, err)
			assert.Equal(t, garbage, string(kept))

			ctx := context.Background()
			v, err := b.LoadVisited(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, v.Len())
			v.Record("https://a/1.pdf")
			require.NoError(t, b.SaveVisited(ctx, v))
			require.NoError(t, b.Close())

			b, err = Open(Options{Backend: backend, Path: p})
			require.NoError(t, err)
			defer b.Close()
			v, err = b.LoadVisited(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"https://a/1.pdf"}, v.Sorted())
		})
	}
}

func TestOpen_MissingDirectoryIsNotMovedAside(t *testing.T) {
	p := filepath.Join(t.TempDir(), "missing", "state.db")
	b, err := Open(Options{Backend: "sqlite", Path: p})
	require.Error(t, err)
	assert.Nil(t, b)
	assert.False(t, errors.Is(err, ErrCorrupt))
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	dir := t.TempDir()
	sq, err := OpenSQLite(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	ldb, err := OpenLevelDB(filepath.Join(dir, "state.ldb"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sq.Close()
		_ = ldb.Close()
	})
	return map[string]Backend{
		"json":    &JSONFiles{VisitedPath: filepath.Join(dir, "v.json"), ResultsPath: filepath.Join(dir, "r.json")},
		"sqlite":  sq,
		"leveldb": ldb,
	}
}

func TestBackends_AppendAcrossSaves(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			v, err := b.LoadVisited(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, v.Len())

			v.Record("https://a/1.pdf")
			require.NoError(t, b.SaveVisited(ctx, v))
			v.Record("https://a/2.pdf")
			require.NoError(t, b.SaveVisited(ctx, v))

			v, err = b.LoadVisited(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"https://a/1.pdf", "https://a/2.pdf"}, v.Sorted())

			r1 := Record{URL: "https://a/1.pdf", Timestamp: ts(t, "2024-01-01T00:00:00Z"), Keywords: []string{"ana"}, Excerpt: "ana ..."}
			require.NoError(t, b.SaveResults(ctx, []Record{r1}))
			rs, err := b.LoadResults(ctx)
			require.NoError(t, err)
			r2 := Record{URL: "https://a/1.pdf", Timestamp: ts(t, "2024-03-01T00:00:00Z"), Keywords: []string{"ana"}}
			require.NoError(t, b.SaveResults(ctx, Merge(rs, []Record{r2})))

			rs, err = b.LoadResults(ctx)
			require.NoError(t, err)
			require.Len(t, rs, 2)
			assert.True(t, rs[0].Timestamp.Equal(r2.Timestamp))
			assert.Equal(t, []string{"ana"}, rs[1].Keywords)
			assert.Equal(t, "ana ...", rs[1].Excerpt)
		})
	}
}

func TestLock_SecondHolderFails(t *testing.T) {
	p := filepath.Join(t.TempDir(), "run.lock")
	first, err := Lock(p)
	require.NoError(t, err)

	_, err = Lock(p)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, first.Unlock())
	again, err := Lock(p)
	require.NoError(t, err)
	require.NoError(t, again.Unlock())
}
