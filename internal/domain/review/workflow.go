package review

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/finnexus/internal/domain/entity"
	"github.com/garyjia/finnexus/pkg/utils"
)

// ExtractionFailedNotice is shown to the user when extraction fails
const ExtractionFailedNotice = "Failed to process invoice. Please try again."

// State is the whole review workflow: phase, draft and field errors.
// Values are treated as immutable; Transition returns a new State.
type State struct {
	Phase  Phase                `json:"phase"`
	Ticket uint64               `json:"ticket"`
	Draft  *entity.InvoiceDraft `json:"draft,omitempty"`
	Errors FieldErrors          `json:"errors,omitempty"`
}

// Initial returns the idle state
func Initial() State {
	return State{Phase: PhaseIdle}
}

// Event is an input to the workflow
type Event interface {
	Trigger() Trigger
}

// FileSelected starts an extraction for a newly chosen document
type FileSelected struct{}

// ExtractionSucceeded delivers extracted fields for the extraction with Ticket
type ExtractionSucceeded struct {
	Ticket uint64
	Fields entity.ExtractedFields
	Today  entity.Date
}

// ExtractionFailed reports that the extraction with Ticket failed
type ExtractionFailed struct {
	Ticket uint64
	Err    error
}

// ManualStarted opens the review form with an empty draft
type ManualStarted struct {
	Today entity.Date
}

// DraftEdited changes draft fields
type DraftEdited struct {
	Patch DraftPatch
}

// SaveRequested asks to validate and commit the draft. NewID is used when
// the draft has no identifier yet.
type SaveRequested struct {
	NewID string
}

// Cancelled discards the draft or abandons the running extraction
type Cancelled struct{}

func (FileSelected) Trigger() Trigger        { return TriggerSelectFile }
func (ExtractionSucceeded) Trigger() Trigger { return TriggerExtractionSucceeded }
func (ExtractionFailed) Trigger() Trigger    { return TriggerExtractionFailed }
func (ManualStarted) Trigger() Trigger       { return TriggerStartManual }
func (DraftEdited) Trigger() Trigger         { return TriggerEdit }
func (SaveRequested) Trigger() Trigger       { return TriggerSave }
func (Cancelled) Trigger() Trigger           { return TriggerCancel }

// Effect is work the caller must perform after a transition
type Effect interface {
	effect()
}

// StartExtraction asks the caller to run extraction and report back with Ticket
type StartExtraction struct {
	Ticket uint64
}

// CommitInvoice asks the caller to prepend Invoice to the store
type CommitInvoice struct {
	Invoice entity.Invoice
}

// NotifyFailure asks the caller to show Message to the user
type NotifyFailure struct {
	Message string
	Err     error
}

func (StartExtraction) effect() {}
func (CommitInvoice) effect()   {}
func (NotifyFailure) effect()   {}

// Workflow holds the fixed policy of the review process
type Workflow struct {
	tenantName string
	graph      Graph
}

// NewWorkflow creates a workflow. tenantName becomes the default buyer of
// extracted drafts.
func NewWorkflow(tenantName string) *Workflow {
	return &Workflow{
		tenantName: tenantName,
		graph:      buildGraph(),
	}
}

// buildGraph declares the phase transitions
func buildGraph() Graph {
	b := NewGraphBuilder()

	b.Configure(PhaseIdle).
		Permit(TriggerSelectFile, PhaseExtracting).
		Permit(TriggerStartManual, PhaseReviewing)

	b.Configure(PhaseExtracting).
		Permit(TriggerExtractionSucceeded, PhaseReviewing).
		Permit(TriggerExtractionFailed, PhaseIdle).
		Permit(TriggerCancel, PhaseIdle)

	b.Configure(PhaseReviewing).
		Permit(TriggerEdit, PhaseReviewing).
		Permit(TriggerCancel, PhaseIdle).
		PermitIf(TriggerSave, PhaseIdle, draftIsValid).
		PermitIf(TriggerSave, PhaseReviewing, func(st State) bool { return !draftIsValid(st) })

	return b.Build()
}

func draftIsValid(st State) bool {
	return len(Validate(st.Draft)) == 0
}

// Graph exposes the phase graph, for callers that need PermittedTriggers
func (w *Workflow) Graph() Graph {
	return w.graph
}

// Transition applies ev to st. It never mutates st; the returned effects
// must be carried out by the caller. On error the returned state equals st,
// except for a rejected save, which returns st with its error set filled.
func (w *Workflow) Transition(st State, ev Event) (State, []Effect, error) {
	// results of a superseded extraction are dropped before phase checks
	switch e := ev.(type) {
	case ExtractionSucceeded:
		if st.Phase != PhaseExtracting || e.Ticket != st.Ticket {
			return st, nil, fmt.Errorf("%w: ticket %d", ErrStaleResult, e.Ticket)
		}
	case ExtractionFailed:
		if st.Phase != PhaseExtracting || e.Ticket != st.Ticket {
			return st, nil, fmt.Errorf("%w: ticket %d", ErrStaleResult, e.Ticket)
		}
	}

	next, err := w.graph.Resolve(st, ev.Trigger())
	if err != nil {
		return st, nil, err
	}

	switch e := ev.(type) {
	case FileSelected:
		ticket := st.Ticket + 1
		return State{Phase: next, Ticket: ticket}, []Effect{StartExtraction{Ticket: ticket}}, nil

	case ExtractionSucceeded:
		return State{Phase: next, Ticket: st.Ticket, Draft: w.draftFromExtraction(e.Fields, e.Today)}, nil, nil

	case ExtractionFailed:
		return State{Phase: next, Ticket: st.Ticket}, []Effect{NotifyFailure{Message: ExtractionFailedNotice, Err: e.Err}}, nil

	case ManualStarted:
		return State{Phase: next, Ticket: st.Ticket, Draft: w.emptyDraft(e.Today)}, nil, nil

	case DraftEdited:
		if err := e.Patch.Check(); err != nil {
			return st, nil, err
		}
		draft := st.Draft.Clone()
		if draft == nil {
			draft = &entity.InvoiceDraft{}
		}
		e.Patch.ApplyTo(draft)

		errs := st.Errors.Clone()
		for _, f := range e.Patch.Fields() {
			delete(errs, f)
		}
		return State{Phase: next, Ticket: st.Ticket, Draft: draft, Errors: errs}, nil, nil

	case SaveRequested:
		if next == PhaseReviewing {
			errs := Validate(st.Draft)
			return State{Phase: next, Ticket: st.Ticket, Draft: st.Draft, Errors: errs}, nil, &ValidationError{Errors: errs.Clone()}
		}
		inv := st.Draft.ToInvoice(e.NewID)
		return State{Phase: next, Ticket: st.Ticket}, []Effect{CommitInvoice{Invoice: inv}}, nil

	case Cancelled:
		return State{Phase: next, Ticket: st.Ticket}, nil, nil
	}

	return st, nil, fmt.Errorf("%w: unhandled event %T", ErrInvalidTransition, ev)
}

// draftFromExtraction fills absent extracted fields with their defaults
func (w *Workflow) draftFromExtraction(f entity.ExtractedFields, today entity.Date) *entity.InvoiceDraft {
	d := w.emptyDraft(today)
	d.BuyerName = w.tenantName

	if f.InvoiceNo != nil {
		d.InvoiceNo = utils.SanitizeString(*f.InvoiceNo)
	}
	if f.ClientName != nil {
		d.ClientName = utils.SanitizeString(*f.ClientName)
	}
	if f.Amount != nil {
		d.Amount = *f.Amount
	}
	if f.TaxAmount != nil {
		d.TaxAmount = *f.TaxAmount
	}
	if f.Date != nil && !f.Date.IsZero() {
		d.Date = f.Date.Ptr()
	}
	if f.DueDate != nil && !f.DueDate.IsZero() {
		d.DueDate = f.DueDate.Ptr()
	}
	return d
}

func (w *Workflow) emptyDraft(today entity.Date) *entity.InvoiceDraft {
	return &entity.InvoiceDraft{
		Amount:    decimal.Zero,
		TaxAmount: decimal.Zero,
		Date:      today.Ptr(),
		DueDate:   today.Ptr(),
		Status:    entity.StatusDraft,
		Type:      entity.TypeGeneral,
		Items:     []entity.LineItem{},
	}
}
