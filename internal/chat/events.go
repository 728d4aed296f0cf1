package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cloudquill/cloudquill/pkg/models"
)

// emitter delivers the ordered event stream of one run. Events are
// handed to the consumer as they are produced; order on the channel is
// exactly production order. Once the run's context is cancelled no
// further events are emitted.
type emitter struct {
	ctx context.Context
	ch  chan models.Event
}

func newEmitter(ctx context.Context) *emitter {
	return &emitter{ctx: ctx, ch: make(chan models.Event)}
}

func (e *emitter) events() <-chan models.Event {
	return e.ch
}

// emit sends one event. It reports false when the consumer is gone
// (context cancelled), in which case the run should stop producing.
func (e *emitter) emit(status models.EventStatus, message string) bool {
	return e.send(models.Event{
		Message:   message,
		Status:    status,
		Timestamp: time.Now().UTC(),
	})
}

// emitResult sends a tool-success event carrying the connector payload.
func (e *emitter) emitResult(message string, result json.RawMessage) bool {
	return e.send(models.Event{
		Message:    message,
		Status:     models.StatusSuccess,
		Timestamp:  time.Now().UTC(),
		ToolResult: result,
	})
}

func (e *emitter) send(ev models.Event) bool {
	select {
	case e.ch <- ev:
		return true
	case <-e.ctx.Done():
		return false
	}
}

func (e *emitter) close() {
	close(e.ch)
}
