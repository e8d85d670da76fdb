package main

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
)

// parseCatalog は YAML を読み込み、投入前に参照整合性を検証する。
func parseCatalog(raw []byte) (catalogFile, error) {
	var catalog catalogFile
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return catalogFile{}, fmt.Errorf("YAML の解析に失敗: %w", err)
	}
	if len(catalog.Modules) == 0 || len(catalog.Templates) == 0 {
		return catalogFile{}, fmt.Errorf("modules と templates は 1 件以上必要です")
	}

	modules := make(map[string]struct{}, len(catalog.Modules))
	for _, module := range catalog.Modules {
		id := strings.TrimSpace(module.ID)
		if id == "" {
			return catalogFile{}, fmt.Errorf("id のないモジュールがあります: %q", module.Name)
		}
		if _, dup := modules[id]; dup {
			return catalogFile{}, fmt.Errorf("モジュール %s が重複しています", id)
		}
		modules[id] = struct{}{}

		questions := make(map[string]struct{}, len(module.Questions))
		for _, q := range module.Questions {
			if _, dup := questions[q.ID]; dup || q.ID == "" {
				return catalogFile{}, fmt.Errorf("モジュール %s の質問 id %q が不正です", id, q.ID)
			}
			questions[q.ID] = struct{}{}

			qt := domain.QuestionType(q.Type)
			if !qt.Known() {
				return catalogFile{}, fmt.Errorf("モジュール %s の質問 %s: 未知の type %q", id, q.ID, q.Type)
			}
			if (qt == domain.QuestionMultipleChoice || qt == domain.QuestionCheckboxes) && len(q.Options) == 0 {
				return catalogFile{}, fmt.Errorf("モジュール %s の質問 %s: options が必要です", id, q.ID)
			}
			if q.Min != nil && q.Max != nil && *q.Max < *q.Min {
				return catalogFile{}, fmt.Errorf("モジュール %s の質問 %s: max が min より小さい", id, q.ID)
			}
		}
	}

	templates := make(map[string]struct{}, len(catalog.Templates))
	for _, template := range catalog.Templates {
		if _, dup := templates[template.ID]; dup || template.ID == "" {
			return catalogFile{}, fmt.Errorf("テンプレート id %q が不正です", template.ID)
		}
		templates[template.ID] = struct{}{}
		for _, moduleID := range template.ModuleIDs {
			if _, ok := modules[moduleID]; !ok {
				return catalogFile{}, fmt.Errorf("テンプレート %s が存在しないモジュール %s を参照しています", template.ID, moduleID)
			}
		}
	}

	for _, prompt := range catalog.Prompts {
		if _, ok := templates[prompt.ID]; !ok {
			return catalogFile{}, fmt.Errorf("プロンプトが存在しないテンプレート %q を参照しています", prompt.ID)
		}
		if strings.TrimSpace(prompt.Text) == "" {
			return catalogFile{}, fmt.Errorf("テンプレート %s のプロンプトが空です", prompt.ID)
		}
	}
	return catalog, nil
}
