package ingestion_engine

import "fmt"

// StageStatus classifies the outcome of one pipeline stage.
type StageStatus int

const (
	// StageOK: the stage did its work.
	StageOK StageStatus = iota
	// StageDegraded: the stage failed but the pipeline continues without its
	// output (no graph enrichment, no vision text, ...). Logged, not fatal.
	StageDegraded
	// StageFatal: the pipeline aborts and the document is marked failed.
	StageFatal
)

// StageResult is the uniform outcome type every stage reports, so the
// degrade-vs-abort policy lives in one place instead of per-call handling.
type StageResult struct {
	Stage  string
	Status StageStatus
	Err    error
}

func OK(stage string) StageResult {
	return StageResult{Stage: stage, Status: StageOK}
}

func Degraded(stage string, err error) StageResult {
	return StageResult{Stage: stage, Status: StageDegraded, Err: err}
}

func Fatal(stage string, err error) StageResult {
	return StageResult{Stage: stage, Status: StageFatal, Err: err}
}

func (r StageResult) Error() string {
	if r.Err == nil {
		return fmt.Sprintf("stage %s: status %d", r.Stage, r.Status)
	}
	return fmt.Sprintf("stage %s: %v", r.Stage, r.Err)
}
