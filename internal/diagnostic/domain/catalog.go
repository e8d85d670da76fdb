package domain

// QuestionType は質問の入力形式を表す閉じた列挙。
type QuestionType string

const (
	QuestionTextArea       QuestionType = "text_area"
	QuestionTextInput      QuestionType = "text_input"
	QuestionSlider         QuestionType = "slider"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionCheckboxes     QuestionType = "checkboxes"
	QuestionDynamicList    QuestionType = "dynamic_list"
)

const (
	DefaultSliderMin = 0
	DefaultSliderMax = 100
)

// Known reports whether t belongs to the closed enumeration.
func (t QuestionType) Known() bool {
	_, ok := expectedAnswerKinds[t]
	return ok
}

// expectedAnswerKinds maps each question type to the answer variant it stores.
var expectedAnswerKinds = map[QuestionType]AnswerKind{
	QuestionTextArea:       AnswerText,
	QuestionTextInput:      AnswerText,
	QuestionSlider:         AnswerNumber,
	QuestionMultipleChoice: AnswerText,
	QuestionCheckboxes:     AnswerChoices,
	QuestionDynamicList:    AnswerList,
}

// ExpectedAnswerKind returns the answer variant for t. ok is false for unknown types.
func (t QuestionType) ExpectedAnswerKind() (AnswerKind, bool) {
	kind, ok := expectedAnswerKinds[t]
	return kind, ok
}

// Question は 1 つの入力項目の定義。公開後は不変。
type Question struct {
	ID          string
	Label       string
	Description string
	Type        QuestionType
	Options     []string
	Min         *float64
	Max         *float64
}

// Bounds returns the slider range, falling back to 0..100.
func (q Question) Bounds() (float64, float64) {
	min, max := float64(DefaultSliderMin), float64(DefaultSliderMax)
	if q.Min != nil {
		min = *q.Min
	}
	if q.Max != nil {
		max = *q.Max
	}
	if max < min {
		max = min
	}
	return min, max
}

// HasOption reports whether value is one of the declared options.
func (q Question) HasOption(value string) bool {
	for _, option := range q.Options {
		if option == value {
			return true
		}
	}
	return false
}

// Module は順序付きの質問グループ。
type Module struct {
	ID        string
	Name      string
	Questions []Question
}

// Question looks up a question by id.
func (m Module) Question(id string) (Question, bool) {
	for _, q := range m.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Template は領域カテゴリごとに回答すべきモジュールの並び。
type Template struct {
	ID          string
	Name        string
	Description string
	ModuleIDs   []string
}

// Prompt holds the generation instructions seeded for a template.
type Prompt struct {
	TemplateID string
	Text       string
}
