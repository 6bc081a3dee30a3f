package usecase

import "fmt"

// Stage names the pipeline step that failed.
type Stage string

const (
	StageFetch    Stage = "fetch feed"
	StageParse    Stage = "parse feed"
	StageLoadSeen Stage = "load seen posts"
	StageRecord   Stage = "record result"
	StagePublish  Stage = "publish digest"
)

// FatalError halts the run. Nothing after the failing stage is executed.
type FatalError struct {
	Stage Stage
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func fatal(stage Stage, err error) error {
	return &FatalError{Stage: stage, Err: err}
}
