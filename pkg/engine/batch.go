package engine

import (
	"context"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Cloudhabil/phi-engine/pkg/adapter"
	"github.com/Cloudhabil/phi-engine/pkg/errors"
)

// Job is one entry of a batch.
type Job struct {
	ID      string          `json:"id,omitempty"`
	Adapter string          `json:"adapter"`
	Request adapter.Request `json:"request"`
}

// JobError is the serialized failure of a job.
type JobError struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
	Field   string      `json:"field,omitempty"`
}

// JobResult pairs a job with its outcome. Exactly one of Result and Error
// is set; jobs skipped after cancellation carry the context error.
type JobResult struct {
	ID      string          `json:"id"`
	Adapter string          `json:"adapter"`
	Result  *adapter.Result `json:"result,omitempty"`
	Error   *JobError       `json:"error,omitempty"`
}

// Concurrency bounds the number of jobs RunBatch executes at once.
var Concurrency = runtime.GOMAXPROCS(0)

// RunBatch runs jobs concurrently and returns their outcomes in input order.
// A failing job does not stop the others. Jobs without an ID get a UUID.
// The returned error is non-nil only when ctx is cancelled.
func (e *Engine) RunBatch(ctx context.Context, jobs []Job) ([]JobResult, error) {
	out := make([]JobResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(Concurrency, 1))

	for i, job := range jobs {
		id := job.ID
		if id == "" {
			id = uuid.NewString()
		}
		out[i] = JobResult{ID: id, Adapter: job.Adapter}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				out[i].Error = jobError(err)
				return err
			}
			res, err := e.Run(gctx, job.Adapter, job.Request)
			if err != nil {
				out[i].Error = jobError(err)
				return nil
			}
			out[i].Result = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, ctx.Err()
}

func jobError(err error) *JobError {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	return &JobError{Code: code, Message: errors.UserMessage(err), Field: errors.FieldOf(err)}
}
