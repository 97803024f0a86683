// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import "fmt"

// Stage is a step of a single paper run.
type Stage int

const (
	StageValidating Stage = iota
	StageFetching
	StageExtracting
	StageDeduplicating
	StageResolving
	StageAssembling
	StageDone
)

var stageNames = [...]string{
	StageValidating:    "validating",
	StageFetching:      "fetching",
	StageExtracting:    "extracting",
	StageDeduplicating: "deduplicating",
	StageResolving:     "resolving",
	StageAssembling:    "assembling",
	StageDone:          "done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// StageError reports the stage a run failed in. errors.Is reaches the
// cause, so callers can still test for types.ErrFetch and friends.
type StageError struct {
	Stage   Stage
	ArxivID string
	Err     error
}

func (e *StageError) Error() string {
	if e.ArxivID == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.ArxivID, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
