package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
)

type memoryAreaRepo struct {
	mu         sync.Mutex
	areas      map[string]domain.Area
	saveErr    error
	saveCalls  int
	completeFn func(id string) error
}

func newMemoryAreaRepo(areas ...domain.Area) *memoryAreaRepo {
	repo := &memoryAreaRepo{areas: make(map[string]domain.Area)}
	for _, area := range areas {
		repo.areas[area.ID] = area
	}
	return repo
}

func cloneArea(a domain.Area) domain.Area {
	a.Attachments = append([]domain.Attachment(nil), a.Attachments...)
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		a.CompletedAt = &t
	}
	return a
}

func statusIn(status domain.Status, allowed []domain.Status) bool {
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}

func (r *memoryAreaRepo) get(id string) domain.Area {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneArea(r.areas[id])
}

func (r *memoryAreaRepo) FindByID(_ context.Context, id string) (*domain.Area, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	area, ok := r.areas[id]
	if !ok {
		return nil, domain.NewNotFoundError("area not found")
	}
	copied := cloneArea(area)
	return &copied, nil
}

func (r *memoryAreaRepo) FindByFormID(_ context.Context, formID string) (*domain.Area, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, area := range r.areas {
		if area.FormID == formID {
			copied := cloneArea(area)
			return &copied, nil
		}
	}
	return nil, domain.NewNotFoundError("area not found")
}

func (r *memoryAreaRepo) ListByCompany(_ context.Context, companyID string) ([]domain.Area, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Area{}
	for _, area := range r.areas {
		if area.CompanyID == companyID {
			out = append(out, cloneArea(area))
		}
	}
	domain.SortAreasByCreation(out)
	return out, nil
}

func (r *memoryAreaRepo) ListByStatus(_ context.Context, status domain.Status) ([]domain.Area, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Area{}
	for _, area := range r.areas {
		if area.Status == status {
			out = append(out, cloneArea(area))
		}
	}
	domain.SortAreasByCreation(out)
	return out, nil
}

func (r *memoryAreaRepo) CreateMany(_ context.Context, areas []*domain.Area) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, area := range areas {
		r.areas[area.ID] = cloneArea(*area)
	}
	return nil
}

func (r *memoryAreaRepo) SaveSnapshot(_ context.Context, snapshot AreaSnapshot) (*domain.Area, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveCalls++
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	area, ok := r.areas[snapshot.AreaID]
	if !ok {
		return nil, domain.NewNotFoundError("area not found")
	}
	if !statusIn(area.Status, snapshot.AllowedFrom) {
		return nil, domain.NewInvalidTransitionError(area.Status, snapshot.Status)
	}
	before := cloneArea(area)
	area.FormData = snapshot.FormData
	area.Status = snapshot.Status
	if snapshot.CompletedAt != nil {
		t := *snapshot.CompletedAt
		area.CompletedAt = &t
	}
	r.areas[area.ID] = area
	return &before, nil
}

func (r *memoryAreaRepo) CompleteReport(_ context.Context, id, draft string, from []domain.Status) error {
	if r.completeFn != nil {
		if err := r.completeFn(id); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	area, ok := r.areas[id]
	if !ok {
		return domain.NewNotFoundError("area not found")
	}
	if !statusIn(area.Status, from) {
		return domain.NewInvalidTransitionError(area.Status, domain.StatusReportReady)
	}
	area.Status = domain.StatusReportReady
	area.ReportDraft = draft
	area.GenerationError = ""
	r.areas[id] = area
	return nil
}

func (r *memoryAreaRepo) MarkGenerationFailed(_ context.Context, id, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	area, ok := r.areas[id]
	if !ok {
		return domain.NewNotFoundError("area not found")
	}
	if !statusIn(area.Status, []domain.Status{domain.StatusCompleted, domain.StatusError}) {
		return domain.NewInvalidTransitionError(area.Status, domain.StatusError)
	}
	area.Status = domain.StatusError
	area.GenerationError = reason
	r.areas[id] = area
	return nil
}

func (r *memoryAreaRepo) MarkNotificationSent(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	area := r.areas[id]
	area.NotificationSent = true
	r.areas[id] = area
	return nil
}

func (r *memoryAreaRepo) AppendAttachment(_ context.Context, id string, attachment domain.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	area, ok := r.areas[id]
	if !ok {
		return domain.NewNotFoundError("area not found")
	}
	area.Attachments = append(area.Attachments, attachment)
	r.areas[id] = area
	return nil
}

type memoryCompanyRepo struct {
	mu        sync.Mutex
	companies map[string]domain.Company
	draftSets int
}

func newMemoryCompanyRepo(companies ...domain.Company) *memoryCompanyRepo {
	repo := &memoryCompanyRepo{companies: make(map[string]domain.Company)}
	for _, c := range companies {
		repo.companies[c.ID] = c
	}
	return repo
}

func (r *memoryCompanyRepo) get(id string) domain.Company {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.companies[id]
}

func (r *memoryCompanyRepo) Create(_ context.Context, company *domain.Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.companies[company.ID] = *company
	return nil
}

func (r *memoryCompanyRepo) FindByID(_ context.Context, id string) (*domain.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.companies[id]
	if !ok {
		return nil, domain.NewNotFoundError("company not found")
	}
	return &c, nil
}

func (r *memoryCompanyRepo) ListByAdmin(_ context.Context, adminID string) ([]domain.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Company{}
	for _, c := range r.companies {
		if c.AdminID == adminID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memoryCompanyRepo) List(_ context.Context) ([]domain.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Company{}
	for _, c := range r.companies {
		out = append(out, c)
	}
	return out, nil
}

func (r *memoryCompanyRepo) SetOverallReportDraft(_ context.Context, id, draft string, replaceApproved bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.companies[id]
	if c.FinalReportReady && !replaceApproved {
		return false, nil
	}
	c.OverallReportDraft = draft
	c.FinalReportReady = false
	r.companies[id] = c
	r.draftSets++
	return true, nil
}

func (r *memoryCompanyRepo) UpdateOverallReportDraft(_ context.Context, id, draft string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.companies[id]
	c.OverallReportDraft = draft
	r.companies[id] = c
	return nil
}

func (r *memoryCompanyRepo) ApproveOverallReport(_ context.Context, id, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.companies[id]
	c.OverallReportDraft = text
	c.FinalReportReady = true
	r.companies[id] = c
	return nil
}

type memoryCatalog struct {
	templates map[string]domain.Template
	modules   map[string]domain.Module
	prompts   map[string]domain.Prompt
	moduleErr error
}

func (c *memoryCatalog) FindTemplate(_ context.Context, id string) (*domain.Template, error) {
	t, ok := c.templates[id]
	if !ok {
		return nil, domain.NewNotFoundError("template not found")
	}
	return &t, nil
}

func (c *memoryCatalog) FindModule(_ context.Context, id string) (*domain.Module, error) {
	if c.moduleErr != nil {
		return nil, c.moduleErr
	}
	m, ok := c.modules[id]
	if !ok {
		return nil, domain.NewNotFoundError("module not found")
	}
	return &m, nil
}

func (c *memoryCatalog) FindPrompt(_ context.Context, templateID string) (*domain.Prompt, error) {
	p, ok := c.prompts[templateID]
	if !ok {
		return nil, domain.NewNotFoundError("prompt not found")
	}
	return &p, nil
}

func (c *memoryCatalog) ListTemplates(_ context.Context) ([]domain.Template, error) {
	out := []domain.Template{}
	for _, t := range c.templates {
		out = append(out, t)
	}
	return out, nil
}

func (c *memoryCatalog) ListModules(_ context.Context) ([]domain.Module, error) {
	out := []domain.Module{}
	for _, m := range c.modules {
		out = append(out, m)
	}
	return out, nil
}

type memoryClaim struct {
	claimedAt time.Time
	done      bool
}

type memoryLedger struct {
	mu        sync.Mutex
	claims    map[string]*memoryClaim
	released  []string
	completed []string
	now       func() time.Time
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{claims: make(map[string]*memoryClaim), now: baseTime}
}

func (l *memoryLedger) Claim(_ context.Context, key string, staleAfter time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	claim, ok := l.claims[key]
	if ok && (claim.done || now.Sub(claim.claimedAt) <= staleAfter) {
		return false, nil
	}
	l.claims[key] = &memoryClaim{claimedAt: now}
	return true, nil
}

func (l *memoryLedger) Complete(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if claim, ok := l.claims[key]; ok {
		claim.done = true
	}
	l.completed = append(l.completed, key)
	return nil
}

func (l *memoryLedger) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claims, key)
	l.released = append(l.released, key)
	return nil
}

// hold plants a running claim taken at claimedAt, as left by another worker.
func (l *memoryLedger) hold(key string, claimedAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.claims[key] = &memoryClaim{claimedAt: claimedAt}
}

type stubGenerator struct {
	mu      sync.Mutex
	prompts []string
	fn      func(ctx context.Context, prompt string) (string, error)
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	return g.fn(ctx, prompt)
}

func (g *stubGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []AreaChange
}

func (p *recordingPublisher) Publish(_ context.Context, change AreaChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
	return nil
}

type stubMailer struct {
	sent []MailMessage
	err  error
}

func (m *stubMailer) Send(_ context.Context, message MailMessage) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, message)
	return nil
}

type stubFailureRecorder struct {
	failures []NotificationFailure
}

func (r *stubFailureRecorder) Record(_ context.Context, failure NotificationFailure) error {
	r.failures = append(r.failures, failure)
	return nil
}

type memoryBlobStore struct {
	files map[string][]byte
	names map[string]string
	next  int
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{files: make(map[string][]byte), names: make(map[string]string)}
}

func (s *memoryBlobStore) Put(_ context.Context, key, _ string, body io.Reader) (StoredBlob, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return StoredBlob{}, err
	}
	s.next++
	id := fmt.Sprintf("blob%d", s.next)
	s.files[id] = data
	s.names[id] = key
	return StoredBlob{ID: id, URL: "https://media.example.com/attachments/" + id, Size: int64(len(data))}, nil
}

func (s *memoryBlobStore) Open(_ context.Context, id string) (*BlobFile, error) {
	data, ok := s.files[id]
	if !ok {
		return nil, domain.NewNotFoundError("file not found")
	}
	return &BlobFile{Name: s.names[id], Size: int64(len(data)), Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

var errBoom = errors.New("boom")

func floatPtr(v float64) *float64 { return &v }

// twoModuleCatalog is the catalog used by most tests: T -> [M1 (text_area), M2 (slider 0..100)].
func twoModuleCatalog() *memoryCatalog {
	return &memoryCatalog{
		templates: map[string]domain.Template{
			"T": {ID: "T", Name: "Plantilla", ModuleIDs: []string{"M1", "M2"}},
		},
		modules: map[string]domain.Module{
			"M1": {ID: "M1", Name: "Estrategia", Questions: []domain.Question{{ID: "mission", Label: "Misión", Type: domain.QuestionTextArea}}},
			"M2": {ID: "M2", Name: "Tecnología", Questions: []domain.Question{{ID: "maturity", Label: "Madurez", Type: domain.QuestionSlider, Min: floatPtr(0), Max: floatPtr(100)}}},
		},
		prompts: map[string]domain.Prompt{
			"T": {TemplateID: "T", Text: "Analiza el departamento."},
		},
	}
}

func baseTime() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
