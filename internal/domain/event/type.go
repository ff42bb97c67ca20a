package event

// Type identifies the type of domain event
type Type string

const (
	TypeInvoiceCommitted Type = "invoice.committed"
	TypeExtractionFailed Type = "extraction.failed"
	TypeExtractionStale  Type = "extraction.stale"
	TypeDraftDiscarded   Type = "draft.discarded"
	TypeAssistantFailed  Type = "assistant.failed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeInvoiceCommitted,
		TypeExtractionFailed,
		TypeExtractionStale,
		TypeDraftDiscarded,
		TypeAssistantFailed:
		return true
	default:
		return false
	}
}
