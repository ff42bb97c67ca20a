package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/garyjia/finnexus/internal/application/dispatcher"
	"github.com/garyjia/finnexus/internal/application/port"
	"github.com/garyjia/finnexus/internal/domain/entity"
	"github.com/garyjia/finnexus/internal/domain/event"
)

var fixedNow = time.Date(2023, 10, 20, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fakePreparer struct {
	err error
}

func (p *fakePreparer) Prepare(_ context.Context, upload port.Document) (*port.Document, error) {
	if p.err != nil {
		return nil, p.err
	}
	doc := upload
	return &doc, nil
}

// fakeExtractor returns fields or err. When gate is set it signals started
// and waits for gate before answering.
type fakeExtractor struct {
	fields  entity.ExtractedFields
	err     error
	started chan struct{}
	gate    chan struct{}
	calls   int
	mu      sync.Mutex
}

func (e *fakeExtractor) ExtractDraftFields(ctx context.Context, data []byte, mimeType string) (entity.ExtractedFields, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.gate != nil {
		e.started <- struct{}{}
		<-e.gate
	}
	return e.fields, e.err
}

type fakeAssistant struct {
	reply    string
	err      error
	question string
	snapshot entity.Snapshot
	gate     chan struct{}
	started  chan struct{}
}

func (a *fakeAssistant) AnswerQuestion(ctx context.Context, question string, snap entity.Snapshot) (string, error) {
	a.question = question
	a.snapshot = snap
	if a.gate != nil {
		a.started <- struct{}{}
		<-a.gate
	}
	return a.reply, a.err
}

type failingStore struct {
	port.InvoiceStore
	err error
}

func (s *failingStore) Append(context.Context, entity.Invoice) error { return s.err }

func (s *failingStore) List(context.Context) ([]entity.Invoice, error) { return nil, s.err }

type fakeDataset struct{}

func (fakeDataset) Metrics() []entity.FinancialMetric {
	return []entity.FinancialMetric{{Name: "Total Revenue", Trend: entity.TrendUp}}
}

func (fakeDataset) Charts() []entity.ChartDataPoint {
	return []entity.ChartDataPoint{{Name: "Jan"}}
}

// recorder captures dispatched events
type recorder struct {
	mu     sync.Mutex
	events []*event.Event
}

func (r *recorder) handle(_ context.Context, evt *event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recorder) types() []event.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Type, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newRecordingDispatcher() (dispatcher.Dispatcher, *recorder) {
	d := dispatcher.NewDispatcher()
	r := &recorder{}
	for _, t := range []event.Type{
		event.TypeInvoiceCommitted,
		event.TypeExtractionFailed,
		event.TypeExtractionStale,
		event.TypeDraftDiscarded,
		event.TypeAssistantFailed,
	} {
		d.Subscribe(t, "recorder", r.handle)
	}
	return d, r
}

var errBoom = errors.New("boom")
