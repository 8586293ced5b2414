package audit

import "context"

// Recorder accepts resolution events. The SQLite store implements it;
// callers that do not keep an audit trail use the no-op recorder.
type Recorder interface {
	Record(ctx context.Context, event *Event) error
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, *Event) error { return nil }

// NopRecorder discards every event.
func NopRecorder() Recorder { return nopRecorder{} }
