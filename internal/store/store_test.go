package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "reports.db"), Options{
		MaxConnections: 2,
		BusyTimeoutMs:  1000,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleReport(id, filename, level string, created time.Time) *Report {
	return &Report{
		ID:        id,
		Filename:  filename,
		Format:    "pdf",
		SHA256:    "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		RiskScore: 3,
		RiskLevel: level,
		FlagCount: 1,
		CreatedAt: created,
		Result:    json.RawMessage(`{"name":"` + filename + `"}`),
	}
}

// Both backends must behave identically through the Store interface.
func backends(t *testing.T) map[string]Store {
	return map[string]Store{
		"sqlite": openSQLite(t),
		"memory": NewMemory(),
	}
}

func TestInsertAndGet(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			in := sampleReport("id-1", "contract.pdf", "CAUTION", created)
			require.NoError(t, s.Insert(ctx, in))

			got, err := s.Get(ctx, "id-1")
			require.NoError(t, err)
			assert.Equal(t, in.Filename, got.Filename)
			assert.Equal(t, in.RiskScore, got.RiskScore)
			assert.Equal(t, in.RiskLevel, got.RiskLevel)
			assert.Equal(t, in.SHA256, got.SHA256)
			assert.True(t, got.CreatedAt.Equal(created), "created_at round trip: %s", got.CreatedAt)
			assert.JSONEq(t, string(in.Result), string(got.Result))
		})
	}
}

func TestGetNotFound(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestListOrderingAndFilters(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Insert(ctx, sampleReport("a", "old.pdf", "CLEAN", base)))
			require.NoError(t, s.Insert(ctx, sampleReport("b", "mid.pdf", "SUSPICIOUS", base.Add(time.Hour))))
			newest := sampleReport("c", "new.docx", "SUSPICIOUS", base.Add(2*time.Hour))
			newest.Format = "docx"
			require.NoError(t, s.Insert(ctx, newest))

			all, err := s.List(ctx, ListOptions{})
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "c", all[0].ID, "newest first")
			assert.Equal(t, "a", all[2].ID)

			suspicious, err := s.List(ctx, ListOptions{Level: "SUSPICIOUS"})
			require.NoError(t, err)
			require.Len(t, suspicious, 2)

			docx, err := s.List(ctx, ListOptions{Format: "docx"})
			require.NoError(t, err)
			require.Len(t, docx, 1)
			assert.Equal(t, "c", docx[0].ID)

			both, err := s.List(ctx, ListOptions{Level: "SUSPICIOUS", Format: "pdf"})
			require.NoError(t, err)
			require.Len(t, both, 1)
			assert.Equal(t, "b", both[0].ID)
		})
	}
}

func TestListPaging(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				r := sampleReport(string(rune('a'+i)), "f.pdf", "CLEAN", base.Add(time.Duration(i)*time.Minute))
				require.NoError(t, s.Insert(ctx, r))
			}

			page, err := s.List(ctx, ListOptions{Limit: 2})
			require.NoError(t, err)
			require.Len(t, page, 2)
			assert.Equal(t, "e", page[0].ID)

			page, err = s.List(ctx, ListOptions{Limit: 2, Offset: 2})
			require.NoError(t, err)
			require.Len(t, page, 2)
			assert.Equal(t, "c", page[0].ID)

			page, err = s.List(ctx, ListOptions{Offset: 99})
			require.NoError(t, err)
			assert.Empty(t, page)
		})
	}
}

func TestCount(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)

			require.NoError(t, s.Insert(ctx, sampleReport("a", "f.pdf", "CLEAN", time.Now().UTC())))
			n, err = s.Count(ctx)
			require.NoError(t, err)
			assert.EqualValues(t, 1, n)
		})
	}
}

func TestFailedFlagRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			r := sampleReport("broken", "broken.pdf", "", time.Now().UTC())
			r.Failed = true
			require.NoError(t, s.Insert(ctx, r))

			got, err := s.Get(ctx, "broken")
			require.NoError(t, err)
			assert.True(t, got.Failed)
		})
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reports.db")

	s, err := Open(path, Options{})
	require.NoError(t, err)
	require.NoError(t, s.Insert(ctx, sampleReport("keep", "kept.pdf", "CLEAN", time.Now().UTC())))
	require.NoError(t, s.Close())

	s, err = Open(path, Options{})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "keep")
	require.NoError(t, err)
	assert.Equal(t, "kept.pdf", got.Filename)
}
