package queue

import (
	"github.com/hibiken/asynq"
)

// HandlersRegistry collects task handlers for the worker binary. It is
// a thin wrapper so workers register against a task type constant
// rather than a raw mux.
type HandlersRegistry struct {
	mux *asynq.ServeMux
}

func NewHandlersRegistry() *HandlersRegistry {
	return &HandlersRegistry{
		mux: asynq.NewServeMux(),
	}
}

func (r *HandlersRegistry) Register(taskType string, handler asynq.Handler) {
	r.mux.Handle(taskType, handler)
}

func (r *HandlersRegistry) Mux() *asynq.ServeMux {
	return r.mux
}
