package pipeline

import "fmt"

// Stage names the pipeline step a failure came from.
type Stage string

const (
	StageInput     Stage = "input"
	StageExtract   Stage = "extract"
	StagePrompt    Stage = "prompt"
	StageModel     Stage = "model"
	StageNormalize Stage = "normalize"
)

// StageError annotates a failure with the stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }
