// Package ui renders vet progress: the event vocabulary the driver emits
// and a Bubble Tea model consuming it. Ничего из ui не нужно для самой
// проверки; без --ui драйвер работает с NopSink.
package ui

import "time"

// Stage describes a high-level vet phase.
type Stage string

const (
	// StageLoad is snapshot discovery and file reading.
	StageLoad Stage = "load"
	// StageDecode is snapshot decoding into signature modules.
	StageDecode Stage = "decode"
	// StageCheck is the per-declaration variance check.
	StageCheck Stage = "check"
	// StageRender is diagnostic rendering.
	StageRender Stage = "render"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the task is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the task is currently working.
	StatusWorking Status = "working"
	// StatusDone indicates the task is done.
	StatusDone Status = "done"
	// StatusError indicates the task produced errors.
	StatusError Status = "error"
)

// Event reports progress for one unit (a snapshot path while loading, a
// declaration name while checking) or for the whole stage when Name is
// empty.
type Event struct {
	Name    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) OnEvent(Event) {}

// ChannelSink forwards events into a channel. A full channel drops the
// event instead of blocking: прогресс не должен тормозить проверку.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	select {
	case s.Ch <- evt:
	default:
	}
}
