package history

import (
	"context"
	"encoding/json"
	"io"
	"path"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Cloudhabil/phi-engine/pkg/blob"
	"github.com/Cloudhabil/phi-engine/pkg/errors"
)

// exportTimeFormat is used in export object keys.
const exportTimeFormat = "20060102T150405Z"

// ExportResult describes a completed export.
type ExportResult struct {
	Key      string `json:"key"`
	Location string `json:"location"`
	Entries  int    `json:"entries"`
	Bytes    int64  `json:"bytes"`
}

// ExportKey returns "<prefix>/<from>_<to>.jsonl". Zero bounds render as
// "begin" and "now".
func ExportKey(prefix string, from, to time.Time) string {
	f, t := "begin", "now"
	if !from.IsZero() {
		f = from.UTC().Format(exportTimeFormat)
	}
	if !to.IsZero() {
		t = to.UTC().Format(exportTimeFormat)
	}
	name := f + "_" + t + ".jsonl"
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// Export writes the entries in [from, to) from s to sink as JSON lines,
// oldest first. The listing is streamed into the sink through a pipe.
func Export(ctx context.Context, s Store, sink blob.Store, prefix string, from, to time.Time) (ExportResult, error) {
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return ExportResult{}, errors.InvalidInput("from", "must be before to")
	}
	key := ExportKey(prefix, from, to)
	if err := errors.ValidateKey(key); err != nil {
		return ExportResult{}, err
	}

	entries, err := s.List(ctx, Query{From: from, To: to, Ascending: true})
	if err != nil {
		return ExportResult{}, err
	}

	pr, pw := io.Pipe()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		enc := json.NewEncoder(pw)
		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				pw.CloseWithError(err)
				return err
			}
		}
		return pw.Close()
	})

	var info blob.Info
	g.Go(func() error {
		var err error
		info, err = sink.Put(gctx, key, pr, "application/x-ndjson")
		pr.CloseWithError(err)
		return err
	})
	if err := g.Wait(); err != nil {
		return ExportResult{}, err
	}
	return ExportResult{Key: key, Location: sink.Location(key), Entries: len(entries), Bytes: info.Size}, nil
}
