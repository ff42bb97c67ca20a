package review

// Phase is where the review workflow currently stands
type Phase string

const (
	PhaseIdle       Phase = "IDLE"
	PhaseExtracting Phase = "EXTRACTING"
	PhaseReviewing  Phase = "REVIEWING"
)

var validPhases = map[Phase]bool{
	PhaseIdle:       true,
	PhaseExtracting: true,
	PhaseReviewing:  true,
}

// String returns the string representation of the phase
func (p Phase) String() string {
	return string(p)
}

// IsValid returns true if the phase is a known workflow phase
func (p Phase) IsValid() bool {
	return validPhases[p]
}

// Trigger names the user or system event that drives a transition
type Trigger string

const (
	TriggerSelectFile          Trigger = "SELECT_FILE"
	TriggerExtractionSucceeded Trigger = "EXTRACTION_SUCCEEDED"
	TriggerExtractionFailed    Trigger = "EXTRACTION_FAILED"
	TriggerStartManual         Trigger = "START_MANUAL"
	TriggerEdit                Trigger = "EDIT"
	TriggerSave                Trigger = "SAVE"
	TriggerCancel              Trigger = "CANCEL"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
