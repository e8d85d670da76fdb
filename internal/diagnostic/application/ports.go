package application

import (
	"context"
	"io"
	"time"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
)

// AreaRepository exposes persistence for areas.
type AreaRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Area, error)
	FindByFormID(ctx context.Context, formID string) (*domain.Area, error)
	ListByCompany(ctx context.Context, companyID string) ([]domain.Area, error)
	ListByStatus(ctx context.Context, status domain.Status) ([]domain.Area, error)
	CreateMany(ctx context.Context, areas []*domain.Area) error
	// SaveSnapshot writes the whole form data and status in one atomic update, only when the
	// stored status is one of snapshot.AllowedFrom. It returns the document as it was before the write.
	SaveSnapshot(ctx context.Context, snapshot AreaSnapshot) (*domain.Area, error)
	// CompleteReport stores the draft and moves the area to report_ready when its status is in from.
	CompleteReport(ctx context.Context, id, draft string, from []domain.Status) error
	// MarkGenerationFailed moves a completed area to error and records reason.
	MarkGenerationFailed(ctx context.Context, id, reason string) error
	MarkNotificationSent(ctx context.Context, id string) error
	AppendAttachment(ctx context.Context, id string, attachment domain.Attachment) error
}

// AreaSnapshot is the field group written by a draft save or a finalize.
type AreaSnapshot struct {
	AreaID      string
	FormData    domain.FormData
	Status      domain.Status
	AllowedFrom []domain.Status
	CompletedAt *time.Time
}

// CompanyRepository exposes persistence for companies.
type CompanyRepository interface {
	Create(ctx context.Context, company *domain.Company) error
	FindByID(ctx context.Context, id string) (*domain.Company, error)
	ListByAdmin(ctx context.Context, adminID string) ([]domain.Company, error)
	List(ctx context.Context) ([]domain.Company, error)
	// SetOverallReportDraft overwrites the consolidated draft and resets finalReportReady.
	// An approved report is only replaced when replaceApproved is set; written reports
	// whether the draft was stored.
	SetOverallReportDraft(ctx context.Context, id, draft string, replaceApproved bool) (written bool, err error)
	// UpdateOverallReportDraft stores a consultant edit without touching the ready flag.
	UpdateOverallReportDraft(ctx context.Context, id, draft string) error
	ApproveOverallReport(ctx context.Context, id, finalText string) error
}

// CatalogRepository reads templates, modules and prompts seeded at bootstrap.
type CatalogRepository interface {
	FindTemplate(ctx context.Context, id string) (*domain.Template, error)
	FindModule(ctx context.Context, id string) (*domain.Module, error)
	FindPrompt(ctx context.Context, templateID string) (*domain.Prompt, error)
	ListTemplates(ctx context.Context) ([]domain.Template, error)
	ListModules(ctx context.Context) ([]domain.Module, error)
}

// ClaimLedger records pipeline keys already handled so redelivered events are dropped.
// A claim is running until Complete is called.
type ClaimLedger interface {
	// Claim returns true when key was not claimed before, or when its running claim is
	// older than staleAfter and has been taken over.
	Claim(ctx context.Context, key string, staleAfter time.Duration) (bool, error)
	// Complete marks key as handled for good.
	Complete(ctx context.Context, key string) error
	// Release deletes key so the event can be processed again.
	Release(ctx context.Context, key string) error
}

// TextGenerator produces a report from a single prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// MailMessage is a transactional email.
type MailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, message MailMessage) error
}

// NotificationFailure is stored when an email could not be delivered.
type NotificationFailure struct {
	Target   string
	Payload  map[string]string
	Err      error
	Attempts int
}

// NotificationFailureRecorder keeps undelivered notifications for later inspection.
type NotificationFailureRecorder interface {
	Record(ctx context.Context, failure NotificationFailure) error
}

// StoredBlob describes a file written to blob storage.
type StoredBlob struct {
	ID   string
	URL  string
	Size int64
}

// BlobFile is an opened blob.
type BlobFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// BlobStore stores bytes under a key and returns a retrievable URL.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (StoredBlob, error)
	Open(ctx context.Context, id string) (*BlobFile, error)
}

// AreaChange is an observed update of an area document.
type AreaChange struct {
	Before domain.Area
	After  domain.Area
}

// ChangePublisher hands area changes to the report pipeline.
type ChangePublisher interface {
	Publish(ctx context.Context, change AreaChange) error
}
