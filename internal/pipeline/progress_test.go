package pipeline

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCallbackReporter(t *testing.T) {
	id := uuid.New()
	var events []ProgressEvent
	r := NewCallbackReporter(id, func(e ProgressEvent) { events = append(events, e) })

	r.OnStageStart(StageStructuring)
	r.OnStageSuccess(StageStructuring, "ok")
	r.OnStageFailure(StageEmbeddingGeneration, errors.New("503"))

	assert.Equal(t, []ProgressEvent{
		{Stage: StageStructuring, Status: StatusStarted, CandidateID: id.String()},
		{Stage: StageStructuring, Status: StatusSucceeded, Message: "ok", CandidateID: id.String()},
		{Stage: StageEmbeddingGeneration, Status: StatusFailed, Message: "503", Fatal: false, CandidateID: id.String()},
	}, events)
}

func TestCallbackReporter_NilCallback(t *testing.T) {
	r := &CallbackReporter{}
	assert.NotPanics(t, func() {
		r.OnStageStart(StageDownloading)
	})
}

func TestLogReporter_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewLogReporter(zap.New(core))

	r.OnStageStart(StageDownloading)
	r.OnStageSuccess(StageDownloading, "downloaded 10 bytes")
	r.OnStageFailure(StageEmbeddingGeneration, errors.New("timeout"))
	r.OnStageFailure(StageExtracting, errors.New("not a PDF"))

	entries := logs.All()
	assert.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}

func TestMultiReporter(t *testing.T) {
	var a, b []ProgressEvent
	m := MultiReporter{
		NewCallbackReporter(uuid.Nil, func(e ProgressEvent) { a = append(a, e) }),
		NopReporter{},
		NewCallbackReporter(uuid.Nil, func(e ProgressEvent) { b = append(b, e) }),
	}

	m.OnStageStart(StagePersisting)
	m.OnStageSuccess(StagePersisting, "")
	m.OnStageFailure(StagePersisting, errors.New("x"))

	assert.Len(t, a, 3)
	assert.Equal(t, a, b)
}
