package pipeline

import (
	"fmt"
	"strings"
)

// Stage is a state of a pipeline run
type Stage string

// Stage constants, in execution order
const (
	StageDownloading         Stage = "downloading"
	StageExtracting          Stage = "extracting"
	StageStructuring         Stage = "structuring"
	StagePersisting          Stage = "persisting"
	StageUpdatingCandidate   Stage = "updating_candidate"
	StageEnqueueingFollowups Stage = "enqueueing_followups"
	StageEmbeddingGeneration Stage = "embedding_generation"
	StageDone                Stage = "done"
	StageFailed              Stage = "failed"
)

// StageDefinition describes one executable stage
type StageDefinition struct {
	Stage Stage
	// Fatal stages abort the run when they fail
	Fatal        bool
	Dependencies []Stage
}

// StageOrder lists the executable stages in the order a run visits them
var StageOrder = []Stage{
	StageDownloading,
	StageExtracting,
	StageStructuring,
	StagePersisting,
	StageUpdatingCandidate,
	StageEnqueueingFollowups,
	StageEmbeddingGeneration,
}

// StageRegistry holds all stage definitions
var StageRegistry = map[Stage]StageDefinition{
	StageDownloading: {
		Stage: StageDownloading,
		Fatal: true,
	},
	StageExtracting: {
		Stage:        StageExtracting,
		Fatal:        true,
		Dependencies: []Stage{StageDownloading},
	},
	StageStructuring: {
		Stage:        StageStructuring,
		Fatal:        true,
		Dependencies: []Stage{StageExtracting},
	},
	StagePersisting: {
		Stage:        StagePersisting,
		Fatal:        true,
		Dependencies: []Stage{StageStructuring},
	},
	StageUpdatingCandidate: {
		Stage:        StageUpdatingCandidate,
		Fatal:        true,
		Dependencies: []Stage{StagePersisting},
	},
	StageEnqueueingFollowups: {
		Stage:        StageEnqueueingFollowups,
		Dependencies: []Stage{StageUpdatingCandidate},
	},
	// Embedding reads the persisted result, never the in-memory profile
	StageEmbeddingGeneration: {
		Stage:        StageEmbeddingGeneration,
		Dependencies: []Stage{StagePersisting},
	},
}

// IsFatal reports whether a failure in s aborts the run
func (s Stage) IsFatal() bool {
	if s == StageFailed {
		return true
	}
	return StageRegistry[s].Fatal
}

// DependencyError represents a stage started before its prerequisites completed
type DependencyError struct {
	Stage   Stage
	Missing []Stage
}

func (e *DependencyError) Error() string {
	missing := make([]string, len(e.Missing))
	for i, s := range e.Missing {
		missing[i] = string(s)
	}
	return fmt.Sprintf("stage %s is blocked: missing dependencies: %s", e.Stage, strings.Join(missing, ", "))
}

// ValidateDependencies checks that every prerequisite of stage is in completed
func ValidateDependencies(stage Stage, completed map[Stage]bool) error {
	def, ok := StageRegistry[stage]
	if !ok {
		return fmt.Errorf("unknown stage: %s", stage)
	}

	var missing []Stage
	for _, dep := range def.Dependencies {
		if !completed[dep] {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return &DependencyError{Stage: stage, Missing: missing}
	}
	return nil
}

// StageError wraps the failure of a single stage
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
