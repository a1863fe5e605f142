package pipeline

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProgressReporter is notified as a run moves between stages.
// Implementations must be safe to call from the goroutine running the pipeline.
type ProgressReporter interface {
	OnStageStart(stage Stage)
	OnStageSuccess(stage Stage, message string)
	OnStageFailure(stage Stage, err error)
}

// Progress event statuses
const (
	StatusStarted   = "started"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Stage       Stage  `json:"stage"`
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
	Fatal       bool   `json:"fatal,omitempty"`
	CandidateID string `json:"candidate_id,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// NopReporter discards progress
type NopReporter struct{}

func (NopReporter) OnStageStart(Stage)           {}
func (NopReporter) OnStageSuccess(Stage, string) {}
func (NopReporter) OnStageFailure(Stage, error)  {}

// CallbackReporter converts progress into ProgressEvents
type CallbackReporter struct {
	CandidateID uuid.UUID
	Callback    ProgressCallback
}

// NewCallbackReporter creates a reporter that forwards events to fn
func NewCallbackReporter(candidateID uuid.UUID, fn ProgressCallback) *CallbackReporter {
	return &CallbackReporter{CandidateID: candidateID, Callback: fn}
}

func (r *CallbackReporter) emit(event ProgressEvent) {
	if r.Callback == nil {
		return
	}
	if r.CandidateID != uuid.Nil {
		event.CandidateID = r.CandidateID.String()
	}
	r.Callback(event)
}

func (r *CallbackReporter) OnStageStart(stage Stage) {
	r.emit(ProgressEvent{Stage: stage, Status: StatusStarted})
}

func (r *CallbackReporter) OnStageSuccess(stage Stage, message string) {
	r.emit(ProgressEvent{Stage: stage, Status: StatusSucceeded, Message: message})
}

func (r *CallbackReporter) OnStageFailure(stage Stage, err error) {
	r.emit(ProgressEvent{Stage: stage, Status: StatusFailed, Message: err.Error(), Fatal: stage.IsFatal()})
}

// LogReporter writes progress to a zap logger
type LogReporter struct {
	logger *zap.Logger
}

// NewLogReporter creates a LogReporter. logger may be nil.
func NewLogReporter(logger *zap.Logger) *LogReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) OnStageStart(stage Stage) {
	r.logger.Debug("stage started", zap.String("stage", string(stage)))
}

func (r *LogReporter) OnStageSuccess(stage Stage, message string) {
	r.logger.Info("stage succeeded", zap.String("stage", string(stage)), zap.String("detail", message))
}

func (r *LogReporter) OnStageFailure(stage Stage, err error) {
	if stage.IsFatal() {
		r.logger.Error("stage failed", zap.String("stage", string(stage)), zap.Error(err))
		return
	}
	r.logger.Warn("non-fatal stage failed", zap.String("stage", string(stage)), zap.Error(err))
}

// MultiReporter fans progress out to several reporters in order
type MultiReporter []ProgressReporter

func (m MultiReporter) OnStageStart(stage Stage) {
	for _, r := range m {
		r.OnStageStart(stage)
	}
}

func (m MultiReporter) OnStageSuccess(stage Stage, message string) {
	for _, r := range m {
		r.OnStageSuccess(stage, message)
	}
}

func (m MultiReporter) OnStageFailure(stage Stage, err error) {
	for _, r := range m {
		r.OnStageFailure(stage, err)
	}
}
