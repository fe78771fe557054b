package engine

import "fmt"

// Stage names a step of the per-email pipeline.
type Stage string

// Pipeline stages in execution order.
const (
	StageCategorize Stage = "categorize"
	StageActions    Stage = "extract_actions"
	StageReply      Stage = "draft_reply"
)

var stageLabels = map[Stage]string{
	StageCategorize: "Categorization",
	StageActions:    "Action extraction",
	StageReply:      "Draft generation",
}

// StageOutcome is the result of one pipeline stage: a value, an error, or a skip.
type StageOutcome[T any] struct {
	Value   T
	Err     error
	Skipped bool
}

// OK reports whether the stage ran and succeeded.
func (o StageOutcome[T]) OK() bool {
	return !o.Skipped && o.Err == nil
}

func runStage[T any](fn func() (T, error)) StageOutcome[T] {
	value, err := fn()
	return StageOutcome[T]{Value: value, Err: err}
}

func skipped[T any]() StageOutcome[T] {
	return StageOutcome[T]{Skipped: true}
}

// stageError renders a stage failure for a result's error list.
func stageError(stage Stage, err error) string {
	return fmt.Sprintf("%s failed: %v", stageLabels[stage], err)
}
