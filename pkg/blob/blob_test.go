package blob

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cloudhabil/phi-engine/pkg/errors"
)

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestFSStore(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewFSStore(root)
	require.NoError(t, err)

	info, err := s.Put(ctx, "exports/a.jsonl", strings.NewReader("{}\n"), "application/x-ndjson")
	require.NoError(t, err)
	assert.Equal(t, "exports/a.jsonl", info.Key)
	assert.Equal(t, int64(3), info.Size)

	_, err = s.Put(ctx, "exports/b.jsonl", strings.NewReader("x"), "")
	require.NoError(t, err)
	_, err = s.Put(ctx, "other.txt", strings.NewReader("y"), "")
	require.NoError(t, err)

	rc, err := s.Get(ctx, "exports/a.jsonl")
	require.NoError(t, err)
	assert.Equal(t, "{}\n", readAll(t, rc))

	list, err := s.List(ctx, "exports/")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "exports/a.jsonl", list[0].Key)
	assert.Equal(t, "exports/b.jsonl", list[1].Key)

	assert.Contains(t, s.Location("exports/a.jsonl"), root)
}

func TestFSStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(ctx, "k", strings.NewReader("one"), "")
	require.NoError(t, err)
	_, err = s.Put(ctx, "k", strings.NewReader("two"), "")
	require.NoError(t, err)

	rc, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", readAll(t, rc))
}

func TestFSStoreErrors(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(ctx, "missing")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))

	_, err = s.Put(ctx, "../escape", strings.NewReader("x"), "")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = NewFSStore("")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FSStore{}, s)

	_, err = Open(ctx, Config{Driver: "ftp"})
	assert.Equal(t, "export.driver", errors.FieldOf(err))

	_, err = Open(ctx, Config{Driver: DriverS3})
	assert.Equal(t, "export.bucket", errors.FieldOf(err))
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	s := newMockS3(t)

	info, err := s.Put(ctx, "exports/h.jsonl", bytes.NewReader([]byte("line\n")), "application/x-ndjson")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)

	rc, err := s.Get(ctx, "exports/h.jsonl")
	require.NoError(t, err)
	assert.Equal(t, "line\n", readAll(t, rc))

	list, err := s.List(ctx, "exports/")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "exports/h.jsonl", list[0].Key)
	assert.Equal(t, int64(5), list[0].Size)

	assert.Equal(t, "s3://mock-bucket/exports/h.jsonl", s.Location("exports/h.jsonl"))

	_, err = s.Get(ctx, "exports/missing")
	assert.Error(t, err)
}
