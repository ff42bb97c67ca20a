package port

import (
	"context"
	"fmt"

	"github.com/garyjia/finnexus/internal/domain/entity"
)

// Extractor turns a document image into best-effort invoice fields
type Extractor interface {
	ExtractDraftFields(ctx context.Context, data []byte, mimeType string) (entity.ExtractedFields, error)
}

// Assistant answers free-form questions about the financial dataset
type Assistant interface {
	AnswerQuestion(ctx context.Context, question string, snapshot entity.Snapshot) (string, error)
}

// Document is a file as uploaded, or as prepared for an Extractor
type Document struct {
	Data     []byte
	MimeType string
	Filename string
}

// DocumentPreparer normalises an upload (PDF rendering, downscaling)
type DocumentPreparer interface {
	Prepare(ctx context.Context, upload Document) (*Document, error)
}

// Notifier announces committed invoices to an outside channel
type Notifier interface {
	InvoiceCommitted(ctx context.Context, inv entity.Invoice) error
}

// ExtractionError reports that the extraction service could not produce fields
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
	}
	return "extraction failed: " + e.Reason
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// CommunicationError reports that the assistant could not be reached
type CommunicationError struct {
	Err error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("assistant unreachable: %v", e.Err)
}

func (e *CommunicationError) Unwrap() error { return e.Err }
