package form

import (
	"fmt"
	"math"
	"strings"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
	"github.com/google/uuid"
)

type textInput struct {
	kind FieldKind
}

func (in textInput) Render(question domain.Question, current *domain.Answer, disabled bool) Field {
	field := baseField(question, in.kind, current, disabled)
	value := currentOf(question, current)
	if value.IsAbsent() {
		value = domain.TextAnswer("")
	}
	field.Value = value
	return field
}

// Apply stores the text as-is. Blank text is judged later by the validity check.
func (in textInput) Apply(question domain.Question, _ *domain.Answer, edit Edit) (domain.Answer, error) {
	if edit.Op != OpReplace {
		return domain.Answer{}, unsupportedEdit(question, edit)
	}
	return domain.TextAnswer(edit.Text), nil
}

type sliderInput struct{}

func (sliderInput) Render(question domain.Question, current *domain.Answer, disabled bool) Field {
	field := baseField(question, FieldSlider, current, disabled)
	min, max := question.Bounds()
	field.Min = &min
	field.Max = &max
	value := currentOf(question, current)
	if value.IsAbsent() {
		field.Value = domain.NumberAnswer(min)
		return field
	}
	number, _ := value.Number()
	field.Value = domain.NumberAnswer(clamp(number, question))
	return field
}

func (sliderInput) Apply(question domain.Question, _ *domain.Answer, edit Edit) (domain.Answer, error) {
	if edit.Op != OpSetNumber {
		return domain.Answer{}, unsupportedEdit(question, edit)
	}
	if math.IsNaN(edit.Number) {
		return domain.Answer{}, domain.NewInvalidError("数値を指定してください")
	}
	return domain.NumberAnswer(clamp(edit.Number, question)), nil
}

func clamp(value float64, question domain.Question) float64 {
	min, max := question.Bounds()
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

type choiceInput struct{}

func (choiceInput) Render(question domain.Question, current *domain.Answer, disabled bool) Field {
	field := baseField(question, FieldRadio, current, disabled)
	field.Options = append([]string{}, question.Options...)
	value := currentOf(question, current)
	if value.IsAbsent() {
		value = domain.TextAnswer("")
	}
	field.Value = value
	return field
}

// Apply replaces the selection. Selecting the current option returns it unchanged.
func (choiceInput) Apply(question domain.Question, current *domain.Answer, edit Edit) (domain.Answer, error) {
	if edit.Op != OpSelect {
		return domain.Answer{}, unsupportedEdit(question, edit)
	}
	if !question.HasOption(edit.Option) {
		return domain.Answer{}, domain.NewInvalidError(fmt.Sprintf("存在しない選択肢です: %s", edit.Option))
	}
	value := currentOf(question, current)
	if selected, ok := value.Text(); ok && selected == edit.Option {
		return value, nil
	}
	return domain.TextAnswer(edit.Option), nil
}

type checkboxInput struct{}

func (checkboxInput) Render(question domain.Question, current *domain.Answer, disabled bool) Field {
	field := baseField(question, FieldCheckboxes, current, disabled)
	field.Options = append([]string{}, question.Options...)
	value := currentOf(question, current)
	if value.IsAbsent() {
		value = domain.ChoicesAnswer(nil)
	}
	field.Value = value
	return field
}

// Apply toggles one option: removed when present, appended otherwise.
func (checkboxInput) Apply(question domain.Question, current *domain.Answer, edit Edit) (domain.Answer, error) {
	if edit.Op != OpToggle {
		return domain.Answer{}, unsupportedEdit(question, edit)
	}
	if !question.HasOption(edit.Option) {
		return domain.Answer{}, domain.NewInvalidError(fmt.Sprintf("存在しない選択肢です: %s", edit.Option))
	}
	selected, _ := currentOf(question, current).Choices()
	next := make([]string, 0, len(selected)+1)
	removed := false
	for _, option := range selected {
		if option == edit.Option {
			removed = true
			continue
		}
		next = append(next, option)
	}
	if !removed {
		next = append(next, edit.Option)
	}
	return domain.ChoicesAnswer(next), nil
}

type listInput struct {
	newID func() string
}

func newRowID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func (listInput) Render(question domain.Question, current *domain.Answer, disabled bool) Field {
	field := baseField(question, FieldList, current, disabled)
	value := currentOf(question, current)
	if value.IsAbsent() {
		value = domain.ListAnswer(nil)
	}
	field.Value = value
	return field
}

// Apply adds, edits or removes a row. Row ids are never renumbered.
func (in listInput) Apply(question domain.Question, current *domain.Answer, edit Edit) (domain.Answer, error) {
	rows, _ := currentOf(question, current).Items()
	switch edit.Op {
	case OpAddRow:
		return domain.ListAnswer(append(rows, domain.ListItem{ID: in.uniqueID(rows), Value: edit.Value})), nil
	case OpEditRow:
		for i, row := range rows {
			if row.ID == edit.RowID {
				rows[i] = row.WithValue(edit.Value)
				return domain.ListAnswer(rows), nil
			}
		}
		return domain.Answer{}, domain.NewNotFoundError(fmt.Sprintf("行 %s が見つかりません", edit.RowID))
	case OpRemoveRow:
		next := make([]domain.ListItem, 0, len(rows))
		found := false
		for _, row := range rows {
			if row.ID == edit.RowID {
				found = true
				continue
			}
			next = append(next, row)
		}
		if !found {
			return domain.Answer{}, domain.NewNotFoundError(fmt.Sprintf("行 %s が見つかりません", edit.RowID))
		}
		return domain.ListAnswer(next), nil
	}
	return domain.Answer{}, unsupportedEdit(question, edit)
}

func (in listInput) uniqueID(rows []domain.ListItem) string {
	for {
		id := in.newID()
		taken := false
		for _, row := range rows {
			if row.ID == id {
				taken = true
				break
			}
		}
		if !taken {
			return id
		}
	}
}

// placeholderInput stands in for question types this build does not know.
type placeholderInput struct{}

func (placeholderInput) Render(question domain.Question, current *domain.Answer, _ bool) Field {
	field := baseField(question, FieldPlaceholder, nil, true)
	field.Answered = false
	if current != nil {
		field.Value = *current
	}
	field.Notice = fmt.Sprintf("未対応の質問形式です: %s", question.Type)
	return field
}

func (placeholderInput) Apply(question domain.Question, _ *domain.Answer, _ Edit) (domain.Answer, error) {
	return domain.Answer{}, domain.NewConfigError(fmt.Sprintf("質問 %s の種類 %q は未対応です", question.ID, question.Type))
}
