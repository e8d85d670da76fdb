package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
)

var (
	consultant = Principal{ID: "consultor", Role: RoleConsultant}
	owner      = Principal{ID: "owner", Role: RoleClient}
	stranger   = Principal{ID: "stranger", Role: RoleClient}
)

func newTestAdminService(areas *memoryAreaRepo, companies *memoryCompanyRepo) *AdminService {
	catalog := twoModuleCatalog()
	catalog.templates[domain.DefaultTemplateID] = domain.Template{ID: domain.DefaultTemplateID, ModuleIDs: []string{"M1"}}
	pipeline := NewReportPipeline(PipelineConfig{
		Areas:     areas,
		Companies: companies,
		Catalog:   catalog,
		Ledger:    newMemoryLedger(),
		Generator: echoGenerator(),
		Timeout:   time.Second,
	})
	svc := NewAdminService(AdminConfig{Companies: companies, Areas: areas, Catalog: catalog, Pipeline: pipeline})
	svc.now = baseTime
	counter := 0
	svc.newFormID = func() string {
		counter++
		return fmt.Sprintf("form%02d", counter)
	}
	return svc
}

func TestParseRole(t *testing.T) {
	cases := map[string]Role{"client": RoleClient, "consultant": RoleConsultant, " FuturLogix ": RoleConsultant}
	for input, want := range cases {
		got, ok := ParseRole(input)
		if !ok || got != want {
			t.Fatalf("ParseRole(%q) = %q, %v", input, got, ok)
		}
	}
	if _, ok := ParseRole("admin"); ok {
		t.Fatalf("unknown role accepted")
	}
}

func TestRegisterCompany(t *testing.T) {
	companies := newMemoryCompanyRepo()
	svc := newTestAdminService(newMemoryAreaRepo(), companies)

	company, err := svc.RegisterCompany(context.Background(), owner, RegisterCompanyCommand{Name: "  Acme ", AdminID: "someone"})
	if err != nil {
		t.Fatalf("RegisterCompany returned error: %v", err)
	}
	if company.Name != "Acme" || company.AdminID != "owner" {
		t.Fatalf("client should own the company it registers: %+v", company)
	}

	onBehalf, err := svc.RegisterCompany(context.Background(), consultant, RegisterCompanyCommand{Name: "Beta", AdminID: "owner"})
	if err != nil {
		t.Fatalf("RegisterCompany returned error: %v", err)
	}
	if onBehalf.AdminID != "owner" {
		t.Fatalf("consultant should register on behalf of the client, got %s", onBehalf.AdminID)
	}

	if _, err := svc.RegisterCompany(context.Background(), owner, RegisterCompanyCommand{Name: " "}); !domain.IsKind(err, domain.ErrorInvalid) {
		t.Fatalf("expected invalid for blank name, got %v", err)
	}

	mine, _ := svc.ListCompanies(context.Background(), owner)
	if len(mine) != 2 {
		t.Fatalf("expected owner to see 2 companies, got %d", len(mine))
	}
	theirs, _ := svc.ListCompanies(context.Background(), stranger)
	if len(theirs) != 0 {
		t.Fatalf("stranger should see no companies, got %d", len(theirs))
	}
}

func TestCreateAreas(t *testing.T) {
	areas := newMemoryAreaRepo()
	companies := newMemoryCompanyRepo(domain.Company{ID: "c1", AdminID: "owner"})
	svc := newTestAdminService(areas, companies)

	created, err := svc.CreateAreas(context.Background(), owner, "c1", []CreateAreaCommand{
		{Name: "Ventas", TemplateID: "T", Responsible: domain.Responsible{Name: "Ana", Email: "ana@example.com"}},
		{Name: "Finanzas", Responsible: domain.Responsible{Name: "Luis", Email: "luis@example.com"}},
	})
	if err != nil {
		t.Fatalf("CreateAreas returned error: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 areas, got %d", len(created))
	}
	for _, area := range created {
		if area.Status != domain.StatusPending || area.FormID == "" {
			t.Fatalf("new area should be pending with a form id: %+v", area)
		}
	}
	if created[1].TemplateID != domain.DefaultTemplateID {
		t.Fatalf("expected default template, got %s", created[1].TemplateID)
	}

	view, err := svc.CompanyAreas(context.Background(), owner, "c1")
	if err != nil {
		t.Fatalf("CompanyAreas returned error: %v", err)
	}
	if view.Areas[0].Name != "Ventas" || view.Areas[1].Name != "Finanzas" || view.AllReportsReady {
		t.Fatalf("unexpected dashboard view: %+v", view)
	}
}

func TestCreateAreasValidation(t *testing.T) {
	areas := newMemoryAreaRepo()
	companies := newMemoryCompanyRepo(domain.Company{ID: "c1", AdminID: "owner"})
	svc := newTestAdminService(areas, companies)

	cases := []struct {
		name string
		cmds []CreateAreaCommand
		kind domain.ErrorKind
	}{
		{name: "empty batch", cmds: nil, kind: domain.ErrorInvalid},
		{name: "missing email", cmds: []CreateAreaCommand{{Name: "Ventas", Responsible: domain.Responsible{Name: "Ana"}}}, kind: domain.ErrorInvalid},
		{name: "unknown template", cmds: []CreateAreaCommand{{Name: "Ventas", TemplateID: "nope", Responsible: domain.Responsible{Name: "Ana", Email: "a@example.com"}}}, kind: domain.ErrorInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateAreas(context.Background(), owner, "c1", tc.cmds)
			if !domain.IsKind(err, tc.kind) {
				t.Fatalf("expected %s, got %v", tc.kind, err)
			}
		})
	}
	if len(areas.areas) != 0 {
		t.Fatalf("failed batches must not write any area")
	}

	_, err := svc.CreateAreas(context.Background(), stranger, "c1", []CreateAreaCommand{{Name: "X", Responsible: domain.Responsible{Name: "a", Email: "a@example.com"}}})
	if !domain.IsKind(err, domain.ErrorForbidden) {
		t.Fatalf("expected forbidden for a foreign company, got %v", err)
	}
}

func TestOverallReportReview(t *testing.T) {
	companies := newMemoryCompanyRepo(domain.Company{ID: "c1", AdminID: "owner", OverallReportDraft: "borrador"})
	svc := newTestAdminService(newMemoryAreaRepo(), companies)

	if _, err := svc.UpdateOverallReport(context.Background(), owner, "c1", "editado"); !domain.IsKind(err, domain.ErrorForbidden) {
		t.Fatalf("clients must not edit the overall report, got %v", err)
	}
	if _, err := svc.UpdateOverallReport(context.Background(), consultant, "c1", "editado"); err != nil {
		t.Fatalf("UpdateOverallReport returned error: %v", err)
	}
	company, err := svc.ApproveOverallReport(context.Background(), consultant, "c1", "")
	if err != nil {
		t.Fatalf("ApproveOverallReport returned error: %v", err)
	}
	if !company.FinalReportReady || companies.get("c1").OverallReportDraft != "editado" {
		t.Fatalf("approval should keep the edited draft: %+v", companies.get("c1"))
	}
}

func TestRetryReportRequiresConsultant(t *testing.T) {
	area := completedArea("a", 0)
	area.Status = domain.StatusError
	areas := newMemoryAreaRepo(area)
	svc := newTestAdminService(areas, newMemoryCompanyRepo(domain.Company{ID: "c1", AdminID: "owner"}))

	if _, err := svc.RetryReport(context.Background(), owner, "a"); !domain.IsKind(err, domain.ErrorForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	updated, err := svc.RetryReport(context.Background(), consultant, "a")
	if err != nil {
		t.Fatalf("RetryReport returned error: %v", err)
	}
	if updated.Status != domain.StatusReportReady {
		t.Fatalf("expected report_ready after retry, got %s", updated.Status)
	}

	ready, err := svc.RebuildOverallReport(context.Background(), consultant, "c1")
	if err != nil || !ready {
		t.Fatalf("expected rebuild to succeed, got %v %v", ready, err)
	}
}

func TestAreaReportOnlyWhenReadyAndOwned(t *testing.T) {
	area := completedArea("a", 0)
	areas := newMemoryAreaRepo(area)
	companies := newMemoryCompanyRepo(domain.Company{ID: "c1", AdminID: "owner"})
	svc := newTestAdminService(areas, companies)

	if _, err := svc.AreaReport(context.Background(), owner, "a"); !domain.IsKind(err, domain.ErrorNotFound) {
		t.Fatalf("expected not found before the report is ready, got %v", err)
	}

	area.Status = domain.StatusReportReady
	area.ReportDraft = "Informe"
	areas.areas["a"] = area
	report, err := svc.AreaReport(context.Background(), owner, "a")
	if err != nil {
		t.Fatalf("AreaReport returned error: %v", err)
	}
	if report.Area.ReportDraft != "Informe" || len(report.Modules) != 2 {
		t.Fatalf("unexpected report view: %+v", report)
	}
	if _, err := svc.AreaReport(context.Background(), consultant, "a"); err != nil {
		t.Fatalf("consultant should read any report, got %v", err)
	}
	if _, err := svc.AreaReport(context.Background(), stranger, "a"); !domain.IsKind(err, domain.ErrorForbidden) {
		t.Fatalf("another client must be refused, got %v", err)
	}
	if _, err := svc.AreaReport(context.Background(), owner, "missing"); !domain.IsKind(err, domain.ErrorNotFound) {
		t.Fatalf("expected not found for unknown area, got %v", err)
	}
}
