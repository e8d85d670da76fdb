package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
)

const defaultGenerationTimeout = 60 * time.Second

// claimGrace is added to twice the generation timeout to derive the default claim lifetime.
const claimGrace = time.Minute

// ReportPipeline は完了した領域のレポートを生成し、全領域が揃ったら統合レポートを組み立てる。
type ReportPipeline struct {
	areas     AreaRepository
	companies CompanyRepository
	catalog   CatalogRepository
	ledger    ClaimLedger
	generator TextGenerator
	timeout   time.Duration
	claimTTL  time.Duration
	logger    *log.Logger
}

// PipelineConfig provides dependencies for ReportPipeline.
type PipelineConfig struct {
	Areas     AreaRepository
	Companies CompanyRepository
	Catalog   CatalogRepository
	Ledger    ClaimLedger
	Generator TextGenerator
	Timeout   time.Duration
	// ClaimTTL is how long a running claim protects an area. A claim older than this is
	// considered abandoned and can be taken over by recovery or an operator retry.
	ClaimTTL time.Duration
	Logger   *log.Logger
}

func NewReportPipeline(cfg PipelineConfig) *ReportPipeline {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGenerationTimeout
	}
	claimTTL := cfg.ClaimTTL
	if claimTTL <= 0 {
		claimTTL = 2*timeout + claimGrace
	}
	return &ReportPipeline{
		areas:     cfg.Areas,
		companies: cfg.Companies,
		catalog:   cfg.Catalog,
		ledger:    cfg.Ledger,
		generator: cfg.Generator,
		timeout:   timeout,
		claimTTL:  claimTTL,
		logger:    cfg.Logger,
	}
}

// ShouldGenerate is the edge trigger: the area just entered completed.
func ShouldGenerate(change AreaChange) bool {
	return change.After.Status == domain.StatusCompleted && change.Before.Status != domain.StatusCompleted
}

// claimKey identifies one entry into completed. Redeliveries of the same change carry the
// same completedAt and map to the same key.
func claimKey(area domain.Area) string {
	completedAt := ""
	if area.CompletedAt != nil {
		completedAt = area.CompletedAt.UTC().Format(time.RFC3339Nano)
	}
	return area.ID + ":" + string(domain.StatusCompleted) + ":" + completedAt
}

// HandleAreaChange reacts to one observed area update. Changes that are not an entry into
// completed are ignored, and a change already claimed is dropped.
func (p *ReportPipeline) HandleAreaChange(ctx context.Context, change AreaChange) error {
	if !ShouldGenerate(change) {
		return nil
	}
	_, err := p.process(ctx, change.After)
	return err
}

// RecoverStalled re-processes every area still sitting in completed without a live claim.
// It picks up events lost by a stopped dispatcher or a crashed worker and returns how many
// areas it processed.
func (p *ReportPipeline) RecoverStalled(ctx context.Context) (int, error) {
	areas, err := p.areas.ListByStatus(ctx, domain.StatusCompleted)
	if err != nil {
		return 0, persistenceError("完了済み領域の取得に失敗しました", err)
	}
	recovered := 0
	for _, area := range areas {
		if ctx.Err() != nil {
			return recovered, ctx.Err()
		}
		processed, err := p.process(ctx, area)
		if processed {
			recovered++
			p.logf("停止していた領域 %s のレポート生成を再実行しました", area.ID)
		}
		if err != nil && domain.IsKind(err, domain.ErrorPersistence) {
			return recovered, err
		}
	}
	return recovered, nil
}

// RunRecovery sweeps once immediately and then every interval until ctx is done.
func (p *ReportPipeline) RunRecovery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := p.RecoverStalled(ctx); err != nil && ctx.Err() == nil {
			p.logf("停止中の領域の回収に失敗: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// process claims area and runs generation. It reports false when another worker holds a
// live claim or the completion was already handled.
func (p *ReportPipeline) process(ctx context.Context, area domain.Area) (bool, error) {
	key := claimKey(area)

	claimed, err := p.ledger.Claim(ctx, key, p.claimTTL)
	if err != nil {
		return false, domain.NewPersistenceError("パイプラインの重複チェックに失敗しました", err)
	}
	if !claimed {
		p.logf("領域 %s のレポート生成は処理中または処理済みのためスキップします", area.ID)
		return false, nil
	}

	err = p.run(ctx, area, []domain.Status{domain.StatusCompleted})
	p.settle(ctx, key, err)
	return true, err
}

// settle closes a claim after run. Nothing was recorded on a persistence failure, so the
// claim is dropped and a redelivery or recovery can run again.
func (p *ReportPipeline) settle(ctx context.Context, key string, runErr error) {
	if domain.IsKind(runErr, domain.ErrorPersistence) {
		if err := p.ledger.Release(ctx, key); err != nil {
			p.logf("パイプラインキー %s の解放に失敗: %v", key, err)
		}
		return
	}
	if err := p.ledger.Complete(ctx, key); err != nil {
		p.logf("パイプラインキー %s の完了記録に失敗: %v", key, err)
	}
}

// Retry re-runs generation for an area left in error by a previous attempt, or for an area
// stuck in completed whose claim is missing or stale.
func (p *ReportPipeline) Retry(ctx context.Context, areaID string) error {
	area, err := p.areas.FindByID(ctx, areaID)
	if err != nil {
		return persistenceError("領域の取得に失敗しました", err)
	}
	switch area.Status {
	case domain.StatusError:
		return p.run(ctx, *area, []domain.Status{domain.StatusError})
	case domain.StatusCompleted:
		processed, err := p.process(ctx, *area)
		if err != nil {
			return err
		}
		if !processed {
			return domain.NewInvalidTransitionError(area.Status, domain.StatusReportReady)
		}
		return nil
	default:
		return domain.NewInvalidTransitionError(area.Status, domain.StatusReportReady)
	}
}

// RebuildOverallReport recomputes the consolidated draft of a company on demand. An
// explicit rebuild replaces an approved report and withdraws the approval.
func (p *ReportPipeline) RebuildOverallReport(ctx context.Context, companyID string) (bool, error) {
	return p.fanIn(ctx, companyID, true)
}

func (p *ReportPipeline) run(ctx context.Context, area domain.Area, from []domain.Status) error {
	draft, err := p.generate(ctx, area)
	if err != nil {
		p.logf("領域 %s のレポート生成に失敗: %v", area.ID, err)
		if markErr := p.areas.MarkGenerationFailed(ctx, area.ID, err.Error()); markErr != nil {
			return domain.NewPersistenceError("生成失敗の記録に失敗しました", markErr)
		}
		return err
	}

	if err := p.areas.CompleteReport(ctx, area.ID, draft, from); err != nil {
		if domain.IsKind(err, domain.ErrorInvalidTransition) {
			p.logf("領域 %s は既に別の処理で更新済みです: %v", area.ID, err)
			return nil
		}
		return persistenceError("レポート下書きの保存に失敗しました", err)
	}
	p.logf("領域 %s のレポート下書きを保存しました", area.ID)

	if _, err := p.fanIn(ctx, area.CompanyID, false); err != nil {
		return err
	}
	return nil
}

// generate builds the prompt and calls the generator under the configured timeout.
// Any error, timeout or blank result is a GenerationFailure.
func (p *ReportPipeline) generate(ctx context.Context, area domain.Area) (string, error) {
	modules := p.modulesFor(ctx, area.TemplateID)

	prompt, err := p.catalog.FindPrompt(ctx, area.TemplateID)
	if err != nil {
		if !domain.IsKind(err, domain.ErrorNotFound) {
			return "", domain.NewGenerationError("プロンプトの取得に失敗しました", err)
		}
		p.logf("テンプレート %s のプロンプトがないため汎用プロンプトを使用します", area.TemplateID)
		prompt = nil
	}
	text := BuildPrompt(area, prompt, modules)

	genCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	draft, err := p.generator.Generate(genCtx, text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			return "", domain.NewGenerationError(fmt.Sprintf("レポート生成が %s でタイムアウトしました", p.timeout), err)
		}
		return "", domain.NewGenerationError("レポート生成に失敗しました", err)
	}
	if strings.TrimSpace(draft) == "" {
		return "", domain.NewGenerationError("生成結果が空でした", nil)
	}
	return draft, nil
}

// modulesFor resolves the template modules for labelling answers. Lookup failures only cost
// labels, so they are logged and ignored.
func (p *ReportPipeline) modulesFor(ctx context.Context, templateID string) []domain.Module {
	template, err := p.catalog.FindTemplate(ctx, templateID)
	if err != nil {
		p.logf("テンプレート %s の取得に失敗したため質問IDで出力します: %v", templateID, err)
		return nil
	}
	modules := make([]domain.Module, 0, len(template.ModuleIDs))
	for _, id := range template.ModuleIDs {
		module, err := p.catalog.FindModule(ctx, id)
		if err != nil {
			continue
		}
		modules = append(modules, *module)
	}
	return modules
}

// fanIn re-reads every sibling area and, when all of them are report_ready, overwrites the
// company draft with the deterministic consolidation. An approved report is left untouched
// unless replaceApproved is set.
func (p *ReportPipeline) fanIn(ctx context.Context, companyID string, replaceApproved bool) (bool, error) {
	siblings, err := p.areas.ListByCompany(ctx, companyID)
	if err != nil {
		return false, persistenceError("同じ企業の領域一覧の取得に失敗しました", err)
	}
	if !domain.AllReportsReady(siblings) {
		return false, nil
	}

	draft := domain.ConsolidateReports(siblings)
	written, err := p.companies.SetOverallReportDraft(ctx, companyID, draft, replaceApproved)
	if err != nil {
		return false, persistenceError("統合レポートの保存に失敗しました", err)
	}
	if !written {
		p.logf("企業 %s の統合レポートは公開済みのため上書きしません", companyID)
		return true, nil
	}
	p.logf("企業 %s の統合レポート下書きを保存しました (領域数=%d)", companyID, len(siblings))
	return true, nil
}

func (p *ReportPipeline) logf(format string, args ...any) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}
