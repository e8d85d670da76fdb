package admin

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/application"
	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
)

// AdminService is the application surface used by the back office.
type AdminService interface {
	RegisterCompany(ctx context.Context, principal application.Principal, cmd application.RegisterCompanyCommand) (*domain.Company, error)
	ListCompanies(ctx context.Context, principal application.Principal) ([]domain.Company, error)
	Company(ctx context.Context, principal application.Principal, companyID string) (*domain.Company, error)
	CreateAreas(ctx context.Context, principal application.Principal, companyID string, cmds []application.CreateAreaCommand) ([]domain.Area, error)
	CompanyAreas(ctx context.Context, principal application.Principal, companyID string) (*application.CompanyAreas, error)
	UpdateOverallReport(ctx context.Context, principal application.Principal, companyID, draft string) (*domain.Company, error)
	ApproveOverallReport(ctx context.Context, principal application.Principal, companyID, finalText string) (*domain.Company, error)
	RebuildOverallReport(ctx context.Context, principal application.Principal, companyID string) (bool, error)
	RetryReport(ctx context.Context, principal application.Principal, areaID string) (*domain.Area, error)
	AreaReport(ctx context.Context, principal application.Principal, areaID string) (*application.AreaReport, error)
	Templates(ctx context.Context) ([]domain.Template, error)
	Modules(ctx context.Context) ([]domain.Module, error)
}

// Inviter sends the collaborator invitation of newly created areas.
type Inviter interface {
	InviteAll(ctx context.Context, areas []domain.Area)
	FormLink(formID string) string
}

// Handler wires admin HTTP endpoints to application services.
type Handler struct {
	logger            *log.Logger
	service           AdminService
	inviter           Inviter
	invitationTimeout time.Duration
	// reportTimeout bounds retry and rebuild, which may call the text generator.
	reportTimeout time.Duration
	invitations   sync.WaitGroup
}

// Config provides dependencies for Handler.
type Config struct {
	Logger            *log.Logger
	Service           AdminService
	Inviter           Inviter
	InvitationTimeout time.Duration
	ReportTimeout     time.Duration
}

// NewHandler constructs an admin HTTP handler set.
func NewHandler(cfg Config) *Handler {
	invitationTimeout := cfg.InvitationTimeout
	if invitationTimeout <= 0 {
		invitationTimeout = time.Minute
	}
	reportTimeout := cfg.ReportTimeout
	if reportTimeout <= 0 {
		reportTimeout = 90 * time.Second
	}
	return &Handler{
		logger:            cfg.Logger,
		service:           cfg.Service,
		inviter:           cfg.Inviter,
		invitationTimeout: invitationTimeout,
		reportTimeout:     reportTimeout,
	}
}

// Register mounts admin routes onto router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/auth/verify", h.authVerifyHandler())
	r.Get("/companies", h.companyListHandler())
	r.Post("/companies", h.companyCreateHandler())
	r.Get("/companies/{id}", h.companyDetailHandler())
	r.Get("/companies/{id}/areas", h.areaListHandler())
	r.Post("/companies/{id}/areas", h.areaCreateHandler())
	r.Get("/companies/{id}/report", h.overallReportHandler())
	r.Put("/companies/{id}/report", h.overallReportUpdateHandler())
	r.Post("/companies/{id}/report/send", h.overallReportSendHandler())
	r.Post("/companies/{id}/report/rebuild", h.overallReportRebuildHandler())
	r.Get("/areas/{id}/report", h.areaReportHandler())
	r.Post("/areas/{id}/report/retry", h.areaReportRetryHandler())
	r.Get("/templates", h.templateListHandler())
	r.Get("/modules", h.moduleListHandler())
}

// Drain waits until background invitations finish or ctx is done.
func (h *Handler) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.invitations.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
