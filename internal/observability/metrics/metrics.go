// Package metrics emits the jumpseat queue-sync and presence metrics through a statsd.Sink.
package metrics

import (
	"strconv"
	"time"

	"github.com/jumpseat/jumpseat-api/internal/domain/model"
	obserrors "github.com/jumpseat/jumpseat-api/internal/observability/errors"
	"github.com/jumpseat/jumpseat-api/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// SyncMetric captures the outcome of one client's queue sync.
type SyncMetric struct {
	Result    string
	Added     int
	Skipped   int
	Errors    int
	QueueSize int
	Duration  time.Duration
	Err       error
}

// EmitQueueSync emits the per-client queue sync counters, queue size gauge and duration.
func EmitQueueSync(sink statsd.Sink, in SyncMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{"result": in.Result}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("queue_sync.result", 1, tags)
	if in.Result == ResultError {
		return
	}

	sink.Count("queue_sync.added", int64(in.Added), nil)
	sink.Count("queue_sync.skipped", int64(in.Skipped), nil)
	if in.Errors > 0 {
		sink.Count("queue_sync.errors", int64(in.Errors), nil)
	}
	sink.Gauge("queue_sync.queue_size", float64(in.QueueSize), nil)
	if in.Duration > 0 {
		sink.Timing("queue_sync.duration", in.Duration, CloneTags(tags))
	}
}

// SyncResultMetric derives a SyncMetric from a service result.
func SyncResultMetric(res model.SyncResult, d time.Duration) SyncMetric {
	m := SyncMetric{
		Result:    ResultSuccess,
		Added:     res.Added,
		Skipped:   res.Skipped,
		Errors:    len(res.Errors),
		QueueSize: res.QueueSize,
		Duration:  d,
	}
	switch {
	case res.Error != "":
		m.Result = ResultError
	case res.Added == 0 && res.Skipped == 0 && len(res.Errors) == 0:
		m.Result = ResultNoop
	}
	return m
}

// EmitPresenceTransition counts a persisted applier status transition.
func EmitPresenceTransition(sink statsd.Sink, status model.ApplierStatus, err error) {
	if sink == nil {
		return
	}
	tags := map[string]string{
		"status": string(status),
		"result": ResultSuccess,
	}
	if err != nil {
		tags["result"] = ResultError
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}
	sink.Count("presence.transition", 1, tags)
}

// EmitPresenceConnections records the number of locally registered sockets.
func EmitPresenceConnections(sink statsd.Sink, n int) {
	if sink == nil {
		return
	}
	sink.Gauge("presence.connections", float64(n), nil)
}

// EmitPresenceClose counts a socket close by WebSocket close code.
func EmitPresenceClose(sink statsd.Sink, code int) {
	if sink == nil {
		return
	}
	sink.Count("presence.closed", 1, map[string]string{"code": strconv.Itoa(code)})
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
