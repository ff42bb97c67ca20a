package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/garyjia/finnexus/internal/application/dispatcher"
	"github.com/garyjia/finnexus/internal/application/port"
	"github.com/garyjia/finnexus/internal/domain/entity"
	"github.com/garyjia/finnexus/internal/domain/event"
	"github.com/garyjia/finnexus/internal/domain/review"
)

// ReviewView is the review workflow as shown to a client
type ReviewView struct {
	review.State
	Allowed []review.Trigger `json:"allowed"`
	Notice  string           `json:"notice,omitempty"`
}

// ReviewService drives the single review workflow of the process
type ReviewService interface {
	// View returns the current workflow state
	View(ctx context.Context) ReviewView

	// Upload runs extraction on a document and opens the review form
	Upload(ctx context.Context, upload port.Document) (ReviewView, error)

	// StartManual opens the review form with an empty draft
	StartManual(ctx context.Context) (ReviewView, error)

	// Edit applies a patch to the draft
	Edit(ctx context.Context, patch review.DraftPatch) (ReviewView, error)

	// Save validates the draft and commits it to the store
	Save(ctx context.Context) (ReviewView, *entity.Invoice, error)

	// Cancel discards the draft or abandons a running extraction
	Cancel(ctx context.Context) (ReviewView, error)
}

// ReviewOption configures the review service
type ReviewOption func(*reviewServiceImpl)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) ReviewOption {
	return func(s *reviewServiceImpl) { s.now = now }
}

// WithIDGenerator replaces entity.NewInvoiceID
func WithIDGenerator(gen func() string) ReviewOption {
	return func(s *reviewServiceImpl) { s.newID = gen }
}

type reviewServiceImpl struct {
	mu     sync.Mutex
	state  review.State
	notice string

	workflow   *review.Workflow
	preparer   port.DocumentPreparer
	extractor  port.Extractor
	store      port.InvoiceStore
	dispatcher dispatcher.Dispatcher
	logger     Logger

	now   func() time.Time
	newID func() string
}

// NewReviewService creates a review service starting in the idle phase
func NewReviewService(
	workflow *review.Workflow,
	preparer port.DocumentPreparer,
	extractor port.Extractor,
	store port.InvoiceStore,
	disp dispatcher.Dispatcher,
	logger Logger,
	opts ...ReviewOption,
) ReviewService {
	s := &reviewServiceImpl{
		state:      review.Initial(),
		workflow:   workflow,
		preparer:   preparer,
		extractor:  extractor,
		store:      store,
		dispatcher: disp,
		logger:     orNop(logger),
		now:        time.Now,
		newID:      entity.NewInvoiceID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *reviewServiceImpl) View(ctx context.Context) ReviewView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *reviewServiceImpl) Upload(ctx context.Context, upload port.Document) (ReviewView, error) {
	ticket, err := s.beginExtraction(ctx)
	if err != nil {
		return s.View(ctx), err
	}

	s.logger.Info("Extraction started", "ticket", ticket, "filename", upload.Filename, "size", len(upload.Data))

	// the lock is not held during the remote call; a cancel may land meanwhile
	fields, extractErr := s.extract(ctx, upload)

	s.mu.Lock()
	defer s.mu.Unlock()

	var ev review.Event
	if extractErr != nil {
		ev = review.ExtractionFailed{Ticket: ticket, Err: extractErr}
	} else {
		ev = review.ExtractionSucceeded{Ticket: ticket, Fields: fields, Today: s.today()}
	}

	if err := s.applyLocked(ctx, ev); err != nil {
		if errors.Is(err, review.ErrStaleResult) {
			s.logger.Info("Extraction result discarded", "ticket", ticket)
			s.publish(ctx, event.New(event.TypeExtractionStale, strconv.FormatUint(ticket, 10), nil))
		}
		return s.viewLocked(), err
	}
	if extractErr != nil {
		return s.viewLocked(), extractErr
	}
	return s.viewLocked(), nil
}

// beginExtraction moves to Extracting and returns the new ticket
func (s *reviewServiceImpl) beginExtraction(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, effects, err := s.workflow.Transition(s.state, review.FileSelected{})
	if err != nil {
		return 0, err
	}
	s.state = next
	s.notice = ""

	for _, eff := range effects {
		if start, ok := eff.(review.StartExtraction); ok {
			return start.Ticket, nil
		}
	}
	return next.Ticket, nil
}

// extract prepares the upload and calls the extractor. Every failure comes
// back as a *port.ExtractionError.
func (s *reviewServiceImpl) extract(ctx context.Context, upload port.Document) (entity.ExtractedFields, error) {
	doc, err := s.preparer.Prepare(ctx, upload)
	if err != nil {
		return entity.ExtractedFields{}, &port.ExtractionError{Reason: "unusable document", Err: err}
	}

	fields, err := s.extractor.ExtractDraftFields(ctx, doc.Data, doc.MimeType)
	if err != nil {
		var extErr *port.ExtractionError
		if errors.As(err, &extErr) {
			return entity.ExtractedFields{}, err
		}
		return entity.ExtractedFields{}, &port.ExtractionError{Reason: "extractor failed", Err: err}
	}
	return fields, nil
}

func (s *reviewServiceImpl) StartManual(ctx context.Context) (ReviewView, error) {
	return s.fire(ctx, review.ManualStarted{Today: s.today()})
}

func (s *reviewServiceImpl) Edit(ctx context.Context, patch review.DraftPatch) (ReviewView, error) {
	return s.fire(ctx, review.DraftEdited{Patch: patch})
}

func (s *reviewServiceImpl) Save(ctx context.Context) (ReviewView, *entity.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, effects, err := s.workflow.Transition(s.state, review.SaveRequested{NewID: s.newID()})
	if err != nil {
		var verr *review.ValidationError
		if errors.As(err, &verr) {
			s.state = next
			s.logger.Info("Draft rejected", "errors", len(verr.Errors))
		}
		return s.viewLocked(), nil, err
	}

	if err := s.runEffects(ctx, effects); err != nil {
		return s.viewLocked(), nil, err
	}
	s.state = next

	for _, eff := range effects {
		if commit, ok := eff.(review.CommitInvoice); ok {
			inv := commit.Invoice
			return s.viewLocked(), &inv, nil
		}
	}
	return s.viewLocked(), nil, nil
}

func (s *reviewServiceImpl) Cancel(ctx context.Context) (ReviewView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	if err := s.applyLocked(ctx, review.Cancelled{}); err != nil {
		return s.viewLocked(), err
	}

	s.logger.Info("Review cancelled", "phase", prev.Phase, "ticket", prev.Ticket)
	s.publish(ctx, event.New(event.TypeDraftDiscarded, strconv.FormatUint(prev.Ticket, 10), map[string]interface{}{
		"phase": prev.Phase.String(),
	}))
	return s.viewLocked(), nil
}

func (s *reviewServiceImpl) fire(ctx context.Context, ev review.Event) (ReviewView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.applyLocked(ctx, ev)
	return s.viewLocked(), err
}

// applyLocked transitions and runs effects; the new state is kept only when
// every effect succeeded
func (s *reviewServiceImpl) applyLocked(ctx context.Context, ev review.Event) error {
	next, effects, err := s.workflow.Transition(s.state, ev)
	if err != nil {
		return err
	}
	if err := s.runEffects(ctx, effects); err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *reviewServiceImpl) runEffects(ctx context.Context, effects []review.Effect) error {
	s.notice = ""

	for _, eff := range effects {
		switch e := eff.(type) {
		case review.CommitInvoice:
			if err := s.store.Append(ctx, e.Invoice); err != nil {
				s.logger.Error("Failed to commit invoice", "invoice_id", e.Invoice.ID, "error", err)
				return fmt.Errorf("commit invoice: %w", err)
			}
			s.logger.Info("Invoice committed", "invoice_id", e.Invoice.ID, "invoice_no", e.Invoice.InvoiceNo)
			s.publish(ctx, event.New(event.TypeInvoiceCommitted, e.Invoice.ID, map[string]interface{}{
				"invoice": e.Invoice,
			}))

		case review.NotifyFailure:
			s.notice = e.Message
			s.logger.Error("Extraction failed", "error", e.Err)
			payload := map[string]interface{}{"message": e.Message}
			if e.Err != nil {
				payload["error"] = e.Err.Error()
			}
			s.publish(ctx, event.New(event.TypeExtractionFailed, strconv.FormatUint(s.state.Ticket, 10), payload))

		case review.StartExtraction:
			// handled by Upload
		}
	}
	return nil
}

func (s *reviewServiceImpl) publish(ctx context.Context, evt *event.Event) {
	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, evt)
	}
}

func (s *reviewServiceImpl) viewLocked() ReviewView {
	allowed := s.workflow.Graph().PermittedTriggers(s.state.Phase)
	sort.Slice(allowed, func(i, j int) bool { return allowed[i] < allowed[j] })
	return ReviewView{State: s.state, Allowed: allowed, Notice: s.notice}
}

func (s *reviewServiceImpl) today() entity.Date {
	return entity.NewDate(s.now())
}
