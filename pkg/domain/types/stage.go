package types

// Stage is a phase of the ingestion pipeline. Stages advance strictly in
// order within one pipeline run; Failed is terminal and reachable from any
// non-terminal stage.
type Stage string

const (
	StageReceived    Stage = "received"
	StageDownloaded  Stage = "downloaded"
	StageTranscribed Stage = "transcribed"
	StageReflected   Stage = "reflected"
	StagePersisted   Stage = "persisted"
	StageDelivered   Stage = "delivered"
	StageFailed      Stage = "failed"
)

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}
