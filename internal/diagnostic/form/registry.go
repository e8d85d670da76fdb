// Package form maps question types to input behaviour: how a question is rendered
// for the collaborator and how an edit turns into a stored answer.
package form

import (
	"fmt"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
)

// FieldKind is the widget a client should draw for a question.
type FieldKind string

const (
	FieldTextArea    FieldKind = "text_area"
	FieldTextInput   FieldKind = "text_input"
	FieldSlider      FieldKind = "slider"
	FieldRadio       FieldKind = "multiple_choice"
	FieldCheckboxes  FieldKind = "checkboxes"
	FieldList        FieldKind = "dynamic_list"
	FieldPlaceholder FieldKind = "unsupported"
)

// Field is the render output of one question.
type Field struct {
	QuestionID  string        `json:"questionId"`
	Kind        FieldKind     `json:"kind"`
	Label       string        `json:"label"`
	Description string        `json:"description,omitempty"`
	Options     []string      `json:"options,omitempty"`
	Min         *float64      `json:"min,omitempty"`
	Max         *float64      `json:"max,omitempty"`
	Value       domain.Answer `json:"value"`
	Answered    bool          `json:"answered"`
	Disabled    bool          `json:"disabled"`
	Notice      string        `json:"notice,omitempty"`
}

// EditOp names an edit a collaborator can apply.
type EditOp string

const (
	OpReplace   EditOp = "replace"
	OpSetNumber EditOp = "set_number"
	OpSelect    EditOp = "select"
	OpToggle    EditOp = "toggle"
	OpAddRow    EditOp = "add_row"
	OpEditRow   EditOp = "edit_row"
	OpRemoveRow EditOp = "remove_row"
)

// Edit is a single change requested for a question.
type Edit struct {
	Op     EditOp  `json:"op"`
	Text   string  `json:"text,omitempty"`
	Number float64 `json:"number,omitempty"`
	Option string  `json:"option,omitempty"`
	RowID  string  `json:"rowId,omitempty"`
	Value  string  `json:"value,omitempty"`
}

// Input is the behaviour registered for one question type.
type Input interface {
	// Render is a pure function of the question, its current answer and the disabled flag.
	Render(question domain.Question, current *domain.Answer, disabled bool) Field
	// Apply returns the answer produced by edit. It never mutates current.
	Apply(question domain.Question, current *domain.Answer, edit Edit) (domain.Answer, error)
}

// inputs is built once and never written afterwards.
var inputs = map[domain.QuestionType]Input{
	domain.QuestionTextArea:       textInput{kind: FieldTextArea},
	domain.QuestionTextInput:      textInput{kind: FieldTextInput},
	domain.QuestionSlider:         sliderInput{},
	domain.QuestionMultipleChoice: choiceInput{},
	domain.QuestionCheckboxes:     checkboxInput{},
	domain.QuestionDynamicList:    listInput{newID: newRowID},
}

// Lookup returns the input registered for t and a placeholder for unknown types.
func Lookup(t domain.QuestionType) (Input, bool) {
	input, ok := inputs[t]
	if !ok {
		return placeholderInput{}, false
	}
	return input, true
}

// Render dispatches to the registered input for question.Type.
func Render(question domain.Question, current *domain.Answer, disabled bool) Field {
	input, _ := Lookup(question.Type)
	return input.Render(question, current, disabled)
}

// Apply dispatches an edit. Disabled forms reject every edit.
func Apply(question domain.Question, current *domain.Answer, edit Edit, disabled bool) (domain.Answer, error) {
	if disabled {
		return domain.Answer{}, domain.NewFormDisabledError()
	}
	input, _ := Lookup(question.Type)
	return input.Apply(question, current, edit)
}

// Coerce checks that a whole answer sent by a client fits the question type.
// Unknown question types accept nothing.
func Coerce(question domain.Question, answer domain.Answer) (domain.Answer, error) {
	if answer.IsAbsent() {
		return answer, nil
	}
	expected, ok := question.Type.ExpectedAnswerKind()
	if !ok {
		return domain.Answer{}, domain.NewConfigError(fmt.Sprintf("質問 %s の種類 %q は未対応です", question.ID, question.Type))
	}
	if answer.Kind() == domain.AnswerChoices && expected == domain.AnswerList && answer.Len() == 0 {
		return domain.ListAnswer(nil), nil
	}
	if answer.Kind() != expected {
		return domain.Answer{}, domain.NewInvalidError(fmt.Sprintf("質問 %s の回答形式が不正です", question.ID))
	}
	if question.Type == domain.QuestionSlider {
		value, _ := answer.Number()
		return domain.NumberAnswer(clamp(value, question)), nil
	}
	if question.Type == domain.QuestionMultipleChoice {
		value, _ := answer.Text()
		if value != "" && !question.HasOption(value) {
			return domain.Answer{}, domain.NewInvalidError(fmt.Sprintf("質問 %s に存在しない選択肢です: %s", question.ID, value))
		}
	}
	return answer, nil
}

// currentOf returns the current answer only when it has the expected variant.
// A wrong shape is treated as absent.
func currentOf(question domain.Question, current *domain.Answer) domain.Answer {
	if current == nil {
		return domain.Answer{}
	}
	expected, ok := question.Type.ExpectedAnswerKind()
	if !ok || current.Kind() != expected {
		return domain.Answer{}
	}
	return *current
}

func baseField(question domain.Question, kind FieldKind, current *domain.Answer, disabled bool) Field {
	return Field{
		QuestionID:  question.ID,
		Kind:        kind,
		Label:       question.Label,
		Description: question.Description,
		Answered:    domain.IsAnswerValid(current, &question),
		Disabled:    disabled,
	}
}

func unsupportedEdit(question domain.Question, edit Edit) error {
	return domain.NewInvalidError(fmt.Sprintf("質問 %s (%s) では操作 %q を利用できません", question.ID, question.Type, edit.Op))
}
