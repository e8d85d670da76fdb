package application

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
	"github.com/google/uuid"
)

// Role is one of the two roles known to the service.
type Role string

const (
	RoleClient     Role = "client"
	RoleConsultant Role = "consultant"
)

// ParseRole accepts the stored role names, including the legacy consultant alias.
func ParseRole(value string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "client":
		return RoleClient, true
	case "consultant", "futurlogix":
		return RoleConsultant, true
	}
	return "", false
}

// Principal is the authenticated caller of an admin operation.
type Principal struct {
	ID   string
	Role Role
}

func (p Principal) IsConsultant() bool { return p.Role == RoleConsultant }

// RegisterCompanyCommand contains inputs for creating a company.
type RegisterCompanyCommand struct {
	Name    string
	AdminID string
}

// CreateAreaCommand contains inputs for one area of a batch.
type CreateAreaCommand struct {
	Name        string
	TemplateID  string
	Responsible domain.Responsible
}

// CompanyAreas is the dashboard view of a company.
type CompanyAreas struct {
	Company         domain.Company
	Areas           []domain.Area
	AllReportsReady bool
}

// AreaReport is a finished area report together with the modules used to label its answers.
type AreaReport struct {
	Area    domain.Area
	Modules []domain.Module
}

// AdminService は企業・領域の管理ユースケースをまとめる。
type AdminService struct {
	companies CompanyRepository
	areas     AreaRepository
	catalog   CatalogRepository
	pipeline  *ReportPipeline
	logger    *log.Logger
	now       func() time.Time
	newFormID func() string
}

// AdminConfig provides dependencies for AdminService.
type AdminConfig struct {
	Companies CompanyRepository
	Areas     AreaRepository
	Catalog   CatalogRepository
	Pipeline  *ReportPipeline
	Logger    *log.Logger
}

func NewAdminService(cfg AdminConfig) *AdminService {
	return &AdminService{
		companies: cfg.Companies,
		areas:     cfg.Areas,
		catalog:   cfg.Catalog,
		pipeline:  cfg.Pipeline,
		logger:    cfg.Logger,
		now:       func() time.Time { return time.Now().UTC() },
		newFormID: NewFormID,
	}
}

// NewFormID returns an opaque 12 character link token.
func NewFormID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func newEntityID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// RegisterCompany creates a company owned by the caller. Consultants may register on behalf of a client.
func (s *AdminService) RegisterCompany(ctx context.Context, principal Principal, cmd RegisterCompanyCommand) (*domain.Company, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return nil, domain.NewInvalidError("企業名を入力してください")
	}
	adminID := principal.ID
	if principal.IsConsultant() && strings.TrimSpace(cmd.AdminID) != "" {
		adminID = strings.TrimSpace(cmd.AdminID)
	}
	now := s.now()
	company := &domain.Company{
		ID:        newEntityID(),
		Name:      name,
		AdminID:   adminID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.companies.Create(ctx, company); err != nil {
		return nil, persistenceError("企業の登録に失敗しました", err)
	}
	return company, nil
}

// ListCompanies returns every company for consultants and the caller's own companies for clients.
func (s *AdminService) ListCompanies(ctx context.Context, principal Principal) ([]domain.Company, error) {
	var (
		companies []domain.Company
		err       error
	)
	if principal.IsConsultant() {
		companies, err = s.companies.List(ctx)
	} else {
		companies, err = s.companies.ListByAdmin(ctx, principal.ID)
	}
	if err != nil {
		return nil, persistenceError("企業一覧の取得に失敗しました", err)
	}
	return companies, nil
}

// Company loads a company the principal may access.
func (s *AdminService) Company(ctx context.Context, principal Principal, companyID string) (*domain.Company, error) {
	company, err := s.companies.FindByID(ctx, companyID)
	if err != nil {
		return nil, persistenceError("企業の取得に失敗しました", err)
	}
	if !principal.IsConsultant() && company.AdminID != principal.ID {
		return nil, domain.NewForbiddenError("この企業にはアクセスできません")
	}
	return company, nil
}

// CreateAreas registers a batch of areas for one company in a single write. Every area starts
// pending with a fresh formId.
func (s *AdminService) CreateAreas(ctx context.Context, principal Principal, companyID string, cmds []CreateAreaCommand) ([]domain.Area, error) {
	if len(cmds) == 0 {
		return nil, domain.NewInvalidError("領域を1件以上指定してください")
	}
	if _, err := s.Company(ctx, principal, companyID); err != nil {
		return nil, err
	}

	templates := make(map[string]struct{})
	now := s.now()
	areas := make([]*domain.Area, 0, len(cmds))
	for i, cmd := range cmds {
		name := strings.TrimSpace(cmd.Name)
		if name == "" {
			return nil, domain.NewInvalidError(fmt.Sprintf("%d件目の領域名を入力してください", i+1))
		}
		if strings.TrimSpace(cmd.Responsible.Name) == "" || strings.TrimSpace(cmd.Responsible.Email) == "" {
			return nil, domain.NewInvalidError(fmt.Sprintf("%d件目の担当者の氏名とメールアドレスを入力してください", i+1))
		}
		templateID := strings.TrimSpace(cmd.TemplateID)
		if templateID == "" {
			templateID = domain.DefaultTemplateID
		}
		if _, ok := templates[templateID]; !ok {
			if _, err := s.catalog.FindTemplate(ctx, templateID); err != nil {
				if domain.IsKind(err, domain.ErrorNotFound) {
					return nil, domain.NewInvalidError(fmt.Sprintf("テンプレート %s は存在しません", templateID))
				}
				return nil, persistenceError("テンプレートの取得に失敗しました", err)
			}
			templates[templateID] = struct{}{}
		}

		areas = append(areas, &domain.Area{
			ID:         newEntityID(),
			CompanyID:  companyID,
			Name:       name,
			TemplateID: templateID,
			Responsible: domain.Responsible{
				Name:     strings.TrimSpace(cmd.Responsible.Name),
				Email:    strings.TrimSpace(cmd.Responsible.Email),
				Position: strings.TrimSpace(cmd.Responsible.Position),
			},
			Status:   domain.StatusPending,
			FormID:   s.newFormID(),
			FormData: domain.NewFormData(nil),
			// 同一バッチ内でも作成順が一意に決まるようにずらす。
			CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
			UpdatedAt: now,
		})
	}

	if err := s.areas.CreateMany(ctx, areas); err != nil {
		return nil, persistenceError("領域の登録に失敗しました", err)
	}

	created := make([]domain.Area, 0, len(areas))
	for _, area := range areas {
		created = append(created, *area)
	}
	return created, nil
}

// CompanyAreas lists the areas of a company in creation order.
func (s *AdminService) CompanyAreas(ctx context.Context, principal Principal, companyID string) (*CompanyAreas, error) {
	company, err := s.Company(ctx, principal, companyID)
	if err != nil {
		return nil, err
	}
	areas, err := s.areas.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, persistenceError("領域一覧の取得に失敗しました", err)
	}
	domain.SortAreasByCreation(areas)
	return &CompanyAreas{Company: *company, Areas: areas, AllReportsReady: domain.AllReportsReady(areas)}, nil
}

// UpdateOverallReport stores a consultant edit of the consolidated draft.
func (s *AdminService) UpdateOverallReport(ctx context.Context, principal Principal, companyID, draft string) (*domain.Company, error) {
	if !principal.IsConsultant() {
		return nil, domain.NewForbiddenError("統合レポートを編集できるのはコンサルタントのみです")
	}
	company, err := s.Company(ctx, principal, companyID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(draft) == "" {
		return nil, domain.NewInvalidError("レポート本文を入力してください")
	}
	if err := s.companies.UpdateOverallReportDraft(ctx, companyID, draft); err != nil {
		return nil, persistenceError("統合レポートの保存に失敗しました", err)
	}
	company.OverallReportDraft = draft
	return company, nil
}

// ApproveOverallReport releases the consolidated report to the client. An empty finalText keeps
// the current draft.
func (s *AdminService) ApproveOverallReport(ctx context.Context, principal Principal, companyID, finalText string) (*domain.Company, error) {
	if !principal.IsConsultant() {
		return nil, domain.NewForbiddenError("統合レポートを承認できるのはコンサルタントのみです")
	}
	company, err := s.Company(ctx, principal, companyID)
	if err != nil {
		return nil, err
	}
	text := finalText
	if strings.TrimSpace(text) == "" {
		text = company.OverallReportDraft
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewInvalidError("統合レポートの下書きがまだありません")
	}
	if err := s.companies.ApproveOverallReport(ctx, companyID, text); err != nil {
		return nil, persistenceError("統合レポートの承認に失敗しました", err)
	}
	company.OverallReportDraft = text
	company.FinalReportReady = true
	return company, nil
}

// RebuildOverallReport recomputes the consolidated draft. It reports false while some area is not ready.
func (s *AdminService) RebuildOverallReport(ctx context.Context, principal Principal, companyID string) (bool, error) {
	if !principal.IsConsultant() {
		return false, domain.NewForbiddenError("統合レポートを再作成できるのはコンサルタントのみです")
	}
	if _, err := s.Company(ctx, principal, companyID); err != nil {
		return false, err
	}
	return s.pipeline.RebuildOverallReport(ctx, companyID)
}

// RetryReport re-runs report generation for an area in error, or for a completed area whose
// generation stalled.
func (s *AdminService) RetryReport(ctx context.Context, principal Principal, areaID string) (*domain.Area, error) {
	if !principal.IsConsultant() {
		return nil, domain.NewForbiddenError("レポートの再生成はコンサルタントのみ実行できます")
	}
	if err := s.pipeline.Retry(ctx, areaID); err != nil {
		return nil, err
	}
	area, err := s.areas.FindByID(ctx, areaID)
	if err != nil {
		return nil, persistenceError("領域の取得に失敗しました", err)
	}
	return area, nil
}

// AreaReport returns the report of areaID once it is report_ready. Only the owner of the
// area's company and consultants may read it.
func (s *AdminService) AreaReport(ctx context.Context, principal Principal, areaID string) (*AreaReport, error) {
	area, err := s.areas.FindByID(ctx, areaID)
	if err != nil {
		return nil, persistenceError("領域の取得に失敗しました", err)
	}
	if _, err := s.Company(ctx, principal, area.CompanyID); err != nil {
		return nil, err
	}
	if area.Status != domain.StatusReportReady {
		return nil, domain.NewNotFoundError("この領域のレポートはまだ準備できていません")
	}

	var modules []domain.Module
	if template, err := s.catalog.FindTemplate(ctx, area.TemplateID); err == nil {
		for _, id := range template.ModuleIDs {
			if module, err := s.catalog.FindModule(ctx, id); err == nil {
				modules = append(modules, *module)
			}
		}
	}
	return &AreaReport{Area: *area, Modules: modules}, nil
}

// Templates lists the catalog templates.
func (s *AdminService) Templates(ctx context.Context) ([]domain.Template, error) {
	templates, err := s.catalog.ListTemplates(ctx)
	if err != nil {
		return nil, persistenceError("テンプレート一覧の取得に失敗しました", err)
	}
	return templates, nil
}

// Modules lists the catalog modules.
func (s *AdminService) Modules(ctx context.Context) ([]domain.Module, error) {
	modules, err := s.catalog.ListModules(ctx)
	if err != nil {
		return nil, persistenceError("モジュール一覧の取得に失敗しました", err)
	}
	return modules, nil
}
