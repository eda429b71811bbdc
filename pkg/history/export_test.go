package history

import (
	"bufio"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cloudhabil/phi-engine/pkg/blob"
	"github.com/Cloudhabil/phi-engine/pkg/errors"
)

func TestExportKey(t *testing.T) {
	from := base
	to := base.Add(24 * time.Hour)
	assert.Equal(t, "exports/20260301T120000Z_20260302T120000Z.jsonl", ExportKey("exports", from, to))
	assert.Equal(t, "begin_now.jsonl", ExportKey("", time.Time{}, time.Time{}))
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for i, op := range []string{"transform", "analyze", "validate"} {
		_, err := s.Record(ctx, Entry{ID: op, Operation: op, Success: true, Timestamp: base.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
	}

	sink, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)

	res, err := Export(ctx, s, sink, "exports", base, base.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Entries)
	assert.Equal(t, "exports/20260301T120000Z_20260301T120200Z.jsonl", res.Key)
	assert.Positive(t, res.Bytes)

	rc, err := sink.Get(ctx, res.Key)
	require.NoError(t, err)
	defer rc.Close()

	var got []string
	sc := bufio.NewScanner(rc)
	for sc.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		got = append(got, e.Operation)
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, []string{"transform", "analyze"}, got)
}

func TestExportRejectsInvertedRange(t *testing.T) {
	sink, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)
	_, err = Export(context.Background(), NewMemoryStore(), sink, "", base, base)
	assert.Equal(t, "from", errors.FieldOf(err))
}
