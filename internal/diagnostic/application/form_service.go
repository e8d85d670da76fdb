package application

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
	"github.com/EduTebar97/journeest-app/internal/diagnostic/form"
)

// FormService は担当者向けの回答フォームを組み立てる。
type FormService struct {
	areas     AreaRepository
	catalog   CatalogRepository
	publisher ChangePublisher
	logger    *log.Logger
	now       func() time.Time
}

// NewFormService wires the form engine. publisher may be nil when area changes are observed
// through the database instead.
func NewFormService(areas AreaRepository, catalog CatalogRepository, publisher ChangePublisher, logger *log.Logger) *FormService {
	return &FormService{
		areas:     areas,
		catalog:   catalog,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ModuleProgress is the completion indicator of one module.
type ModuleProgress struct {
	ModuleID string `json:"moduleId"`
	Name     string `json:"name"`
	Answered int    `json:"answered"`
	Total    int    `json:"total"`
	Complete bool   `json:"complete"`
}

// Session は 1 回のフォーム操作で扱う状態。HTTP リクエストごとに LoadArea で作り直す。
type Session struct {
	service           *FormService
	area              domain.Area
	modules           []domain.Module
	activeModuleID    string
	data              domain.FormData
	readOnly          bool
	validationMessage string
}

// LoadArea resolves an area by its external formId together with its template modules.
// Modules that no longer exist are skipped; a template without any resolvable module is a ConfigError.
func (s *FormService) LoadArea(ctx context.Context, formID string, readOnly bool) (*Session, error) {
	area, err := s.areas.FindByFormID(ctx, formID)
	if err != nil {
		return nil, persistenceError("領域の取得に失敗しました", err)
	}

	template, err := s.catalog.FindTemplate(ctx, area.TemplateID)
	if err != nil {
		if domain.IsKind(err, domain.ErrorNotFound) {
			return nil, domain.NewConfigError(fmt.Sprintf("テンプレート %s が見つかりません", area.TemplateID))
		}
		return nil, persistenceError("テンプレートの取得に失敗しました", err)
	}

	modules, err := s.resolveModules(ctx, template)
	if err != nil {
		return nil, err
	}
	if len(modules) == 0 {
		return nil, domain.NewConfigError(fmt.Sprintf("テンプレート %s に利用可能なモジュールがありません", template.ID))
	}

	session := &Session{
		service:        s,
		area:           *area,
		modules:        modules,
		activeModuleID: modules[0].ID,
		data:           seedSliderDefaults(area.FormData, modules),
		readOnly:       readOnly,
	}
	return session, nil
}

func (s *FormService) resolveModules(ctx context.Context, template *domain.Template) ([]domain.Module, error) {
	modules := make([]domain.Module, 0, len(template.ModuleIDs))
	for _, id := range template.ModuleIDs {
		module, err := s.catalog.FindModule(ctx, id)
		if err != nil {
			if domain.IsKind(err, domain.ErrorNotFound) {
				s.logf("テンプレート %s のモジュール %s が見つからないためスキップします", template.ID, id)
				continue
			}
			return nil, persistenceError("モジュールの取得に失敗しました", err)
		}
		modules = append(modules, *module)
	}
	return modules, nil
}

// seedSliderDefaults fills unanswered sliders with their minimum, which is what the
// collaborator sees on screen.
func seedSliderDefaults(data domain.FormData, modules []domain.Module) domain.FormData {
	for _, module := range modules {
		for _, question := range module.Questions {
			if question.Type != domain.QuestionSlider {
				continue
			}
			current, ok := data.Answer(module.ID, question.ID)
			if ok && current.Kind() == domain.AnswerNumber {
				continue
			}
			min, _ := question.Bounds()
			data = data.With(module.ID, question.ID, domain.NumberAnswer(min))
		}
	}
	return data
}

func (s *FormService) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

func (s *FormService) publish(ctx context.Context, before, after domain.Area) {
	if s.publisher == nil || before.Status == after.Status {
		return
	}
	if err := s.publisher.Publish(ctx, AreaChange{Before: before, After: after}); err != nil {
		s.logf("領域 %s の変更通知に失敗: %v", after.ID, err)
	}
}

func (s *Session) Area() domain.Area { return s.area }

func (s *Session) Modules() []domain.Module { return append([]domain.Module(nil), s.modules...) }

func (s *Session) ActiveModuleID() string { return s.activeModuleID }

func (s *Session) FormData() domain.FormData { return s.data }

func (s *Session) ValidationMessage() string { return s.validationMessage }

// Disabled reports whether edits are refused: read-only links and areas past in_progress.
func (s *Session) Disabled() bool {
	return s.readOnly || !s.area.Status.Editable()
}

// SetActiveModule switches the visible module. It is ignored when disabled or for unknown ids.
func (s *Session) SetActiveModule(moduleID string) {
	if s.Disabled() {
		return
	}
	if _, ok := s.module(moduleID); ok {
		s.activeModuleID = moduleID
	}
}

func (s *Session) module(moduleID string) (domain.Module, bool) {
	for _, module := range s.modules {
		if module.ID == moduleID {
			return module, true
		}
	}
	return domain.Module{}, false
}

func (s *Session) question(moduleID, questionID string) (domain.Question, error) {
	module, ok := s.module(moduleID)
	if !ok {
		return domain.Question{}, domain.NewNotFoundError(fmt.Sprintf("モジュール %s が見つかりません", moduleID))
	}
	question, ok := module.Question(questionID)
	if !ok {
		return domain.Question{}, domain.NewNotFoundError(fmt.Sprintf("質問 %s が見つかりません", questionID))
	}
	return question, nil
}

// RecordAnswer writes answer at [moduleID][questionID] in memory and clears the validation message.
func (s *Session) RecordAnswer(moduleID, questionID string, answer domain.Answer) error {
	if s.Disabled() {
		return domain.NewFormDisabledError()
	}
	question, err := s.question(moduleID, questionID)
	if err != nil {
		return err
	}
	coerced, err := form.Coerce(question, answer)
	if err != nil {
		return err
	}
	s.data = s.data.With(moduleID, questionID, coerced)
	s.validationMessage = ""
	return nil
}

// RecordAll records every answer of a client snapshot. Answers for questions outside the
// resolved modules are kept untouched.
func (s *Session) RecordAll(data domain.FormData) error {
	if s.Disabled() {
		return domain.NewFormDisabledError()
	}
	for _, module := range s.modules {
		for _, entry := range data.Module(module.ID).Entries() {
			if err := s.RecordAnswer(module.ID, entry.QuestionID, entry.Answer); err != nil {
				return err
			}
		}
	}
	return nil
}

// ApplyEdit runs an edit through the question's input and records the result.
func (s *Session) ApplyEdit(moduleID, questionID string, edit form.Edit) (form.Field, error) {
	question, err := s.question(moduleID, questionID)
	if err != nil {
		return form.Field{}, err
	}
	current, ok := s.data.Answer(moduleID, questionID)
	var currentPtr *domain.Answer
	if ok {
		currentPtr = &current
	}
	next, err := form.Apply(question, currentPtr, edit, s.Disabled())
	if err != nil {
		return form.Field{}, err
	}
	s.data = s.data.With(moduleID, questionID, next)
	s.validationMessage = ""
	return form.Render(question, &next, s.Disabled()), nil
}

// RenderModule renders every question of moduleID, propagating the disabled state.
func (s *Session) RenderModule(moduleID string) ([]form.Field, error) {
	module, ok := s.module(moduleID)
	if !ok {
		return nil, domain.NewNotFoundError(fmt.Sprintf("モジュール %s が見つかりません", moduleID))
	}
	disabled := s.Disabled()
	fields := make([]form.Field, 0, len(module.Questions))
	for _, question := range module.Questions {
		var current *domain.Answer
		if answer, ok := s.data.Answer(module.ID, question.ID); ok {
			current = &answer
		}
		fields = append(fields, form.Render(question, current, disabled))
	}
	return fields, nil
}

// Progress computes the completion indicator of every module.
func (s *Session) Progress() []ModuleProgress {
	progress := make([]ModuleProgress, 0, len(s.modules))
	for _, module := range s.modules {
		progress = append(progress, moduleProgress(module, s.data))
	}
	return progress
}

// moduleProgress counts answerable questions only. Questions of an unknown type cannot be
// edited, so they never block completion.
func moduleProgress(module domain.Module, data domain.FormData) ModuleProgress {
	p := ModuleProgress{ModuleID: module.ID, Name: module.Name}
	answers := data.Module(module.ID)
	for i := range module.Questions {
		question := module.Questions[i]
		if !question.Type.Known() {
			continue
		}
		p.Total++
		answer, ok := answers.Get(question.ID)
		if ok && domain.IsAnswerValid(&answer, &question) {
			p.Answered++
		}
	}
	p.Complete = p.Answered == p.Total
	return p
}

// SaveDraft persists the whole in-memory form data and moves pending to in_progress.
func (s *Session) SaveDraft(ctx context.Context) error {
	if s.Disabled() {
		return domain.NewFormDisabledError()
	}
	target := s.area.Status
	if target == domain.StatusPending {
		target = domain.StatusInProgress
	}
	if err := domain.ValidateTransition(s.area.Status, target, domain.ActorCollaborator); err != nil {
		return err
	}

	before, err := s.service.areas.SaveSnapshot(ctx, AreaSnapshot{
		AreaID:      s.area.ID,
		FormData:    s.data,
		Status:      target,
		AllowedFrom: domain.SourcesFor(target, domain.ActorCollaborator),
	})
	if err != nil {
		return persistenceError("下書きの保存に失敗しました", err)
	}

	s.area.Status = target
	s.area.FormData = s.data
	s.area.UpdatedAt = s.service.now()
	s.service.publish(ctx, *before, s.area)
	return nil
}

// Finalize submits the form. Every module must be complete and the collaborator must confirm.
// Finalizing an area that is already completed is a no-op that keeps completedAt.
func (s *Session) Finalize(ctx context.Context, confirmed bool) error {
	if s.area.Status.Rank() >= domain.StatusCompleted.Rank() {
		return nil
	}
	if s.Disabled() {
		return domain.NewFormDisabledError()
	}

	var incomplete []string
	for _, p := range s.Progress() {
		if !p.Complete {
			incomplete = append(incomplete, p.Name)
		}
	}
	if len(incomplete) > 0 {
		err := domain.NewIncompleteSubmissionError(incomplete)
		s.validationMessage = err.Error()
		return err
	}
	if !confirmed {
		return domain.NewConfirmationRequiredError()
	}
	if err := domain.ValidateTransition(s.area.Status, domain.StatusCompleted, domain.ActorCollaborator); err != nil {
		return err
	}

	completedAt := s.service.now()
	before, err := s.service.areas.SaveSnapshot(ctx, AreaSnapshot{
		AreaID:      s.area.ID,
		FormData:    s.data,
		Status:      domain.StatusCompleted,
		AllowedFrom: []domain.Status{domain.StatusPending, domain.StatusInProgress},
		CompletedAt: &completedAt,
	})
	if err != nil {
		if domain.IsKind(err, domain.ErrorInvalidTransition) {
			return s.adoptStoredCompletion(ctx)
		}
		return persistenceError("フォームの提出に失敗しました", err)
	}

	s.area.Status = domain.StatusCompleted
	s.area.FormData = s.data
	s.area.CompletedAt = &completedAt
	s.area.UpdatedAt = completedAt
	s.service.publish(ctx, *before, s.area)
	return nil
}

// adoptStoredCompletion handles a finalize that lost the race against another tab.
func (s *Session) adoptStoredCompletion(ctx context.Context) error {
	stored, err := s.service.areas.FindByID(ctx, s.area.ID)
	if err != nil {
		return persistenceError("領域の再取得に失敗しました", err)
	}
	if stored.Status.Rank() < domain.StatusCompleted.Rank() {
		return domain.NewInvalidTransitionError(stored.Status, domain.StatusCompleted)
	}
	s.area = *stored
	s.data = stored.FormData
	return nil
}

// persistenceError keeps domain errors as they are and wraps anything else as PersistenceFailure.
func persistenceError(msg string, err error) error {
	if _, ok := domain.AsError(err); ok {
		return err
	}
	return domain.NewPersistenceError(msg, err)
}
