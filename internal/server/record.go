package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Cloudhabil/phi-engine/pkg/errors"
	"github.com/Cloudhabil/phi-engine/pkg/history"
)

// call tracks one recorded request from decoding to response.
type call struct {
	s       *Server
	ctx     context.Context
	start   time.Time
	op      string
	adapter string
	mode    string
	body    []byte
	readErr error
}

func (s *Server) begin(r *http.Request, op string) *call {
	c := &call{s: s, ctx: r.Context(), start: time.Now(), op: op}
	c.body, c.readErr = readBody(r)
	return c
}

func (c *call) decode(v any) error {
	if c.readErr != nil {
		return c.readErr
	}
	return decode(c.body, v)
}

func (c *call) fail(w http.ResponseWriter, err error) {
	c.finish(w, nil, err)
}

// finish records the call and writes the response. Recording failures
// are logged and never change the response.
func (c *call) finish(w http.ResponseWriter, out any, err error) {
	var data []byte
	if err == nil {
		var merr error
		if data, merr = json.Marshal(out); merr != nil {
			err = errors.Wrap(errors.ErrCodeInternal, merr, "encode response")
		}
	}

	e := history.Entry{
		Operation:  c.op,
		Adapter:    c.adapter,
		Mode:       c.mode,
		Success:    err == nil,
		Output:     data,
		DurationMS: float64(time.Since(c.start).Microseconds()) / 1000,
	}
	if json.Valid(c.body) {
		e.Input = c.body
	}
	if err != nil {
		e.Error = err.Error()
	}
	if _, rerr := c.s.history.Record(context.WithoutCancel(c.ctx), e); rerr != nil {
		c.s.logger.Warn("history record failed", "operation", c.op, "error", rerr)
	}

	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(data, '\n'))
}
