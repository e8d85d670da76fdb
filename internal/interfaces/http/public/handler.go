package public

import (
	"context"
	"log"

	"github.com/go-chi/chi/v5"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/application"
	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
)

// FormService opens collaborator form sessions.
type FormService interface {
	LoadArea(ctx context.Context, formID string, readOnly bool) (*application.Session, error)
}

// AttachmentService stores and serves area attachments.
type AttachmentService interface {
	Upload(ctx context.Context, cmd application.UploadCommand) (*domain.Attachment, error)
	Open(ctx context.Context, id string) (*application.BlobFile, error)
}

// Handler wires collaborator HTTP endpoints to application services.
// Forms are addressed by their formId, which is the only credential a collaborator holds.
type Handler struct {
	logger             *log.Logger
	forms              FormService
	attachments        AttachmentService
	maxAttachmentBytes int64
}

// Config defines dependencies required by Handler.
type Config struct {
	Logger             *log.Logger
	Forms              FormService
	Attachments        AttachmentService
	MaxAttachmentBytes int64
}

// NewHandler constructs a public HTTP handler set.
func NewHandler(cfg Config) *Handler {
	maxBytes := cfg.MaxAttachmentBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Handler{
		logger:             cfg.Logger,
		forms:              cfg.Forms,
		attachments:        cfg.Attachments,
		maxAttachmentBytes: maxBytes,
	}
}

// Register mounts all public routes onto the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/forms/{formId}", h.formDetailHandler())
	r.Put("/forms/{formId}/modules/{moduleId}/questions/{questionId}", h.answerRecordHandler())
	r.Patch("/forms/{formId}/modules/{moduleId}/questions/{questionId}", h.answerEditHandler())
	r.Put("/forms/{formId}/draft", h.draftSaveHandler())
	r.Post("/forms/{formId}/finalize", h.finalizeHandler())
	r.Post("/forms/{formId}/attachments", h.attachmentUploadHandler())
	r.Get("/attachments/{fileId}", h.attachmentDownloadHandler())
}
