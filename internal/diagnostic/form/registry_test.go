package form

import (
	"fmt"
	"testing"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
)

func floatPtr(v float64) *float64 { return &v }

func TestLookupCoversEveryKnownType(t *testing.T) {
	types := []domain.QuestionType{
		domain.QuestionTextArea,
		domain.QuestionTextInput,
		domain.QuestionSlider,
		domain.QuestionMultipleChoice,
		domain.QuestionCheckboxes,
		domain.QuestionDynamicList,
	}
	for _, qt := range types {
		if _, ok := Lookup(qt); !ok {
			t.Fatalf("no input registered for %s", qt)
		}
	}
	input, ok := Lookup("signature")
	if ok {
		t.Fatalf("unknown type should not be registered")
	}
	if _, isPlaceholder := input.(placeholderInput); !isPlaceholder {
		t.Fatalf("expected placeholder for unknown type, got %T", input)
	}
}

func TestRenderUnknownTypeIsDisabledPlaceholder(t *testing.T) {
	question := domain.Question{ID: "q", Label: "Firma", Type: "signature"}
	stored := domain.TextAnswer("x")
	field := Render(question, &stored, false)
	if field.Kind != FieldPlaceholder || !field.Disabled || field.Answered || field.Notice == "" {
		t.Fatalf("unexpected placeholder field: %+v", field)
	}
	if _, err := Apply(question, nil, Edit{Op: OpReplace, Text: "y"}, false); !domain.IsKind(err, domain.ErrorConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestSliderRenderAndClamp(t *testing.T) {
	question := domain.Question{ID: "q", Type: domain.QuestionSlider, Min: floatPtr(1), Max: floatPtr(5)}

	field := Render(question, nil, false)
	if v, _ := field.Value.Number(); v != 1 || *field.Min != 1 || *field.Max != 5 {
		t.Fatalf("unexpected slider render: %+v", field)
	}

	for input, want := range map[float64]float64{-3: 1, 3: 3, 9: 5} {
		answer, err := Apply(question, nil, Edit{Op: OpSetNumber, Number: input}, false)
		if err != nil {
			t.Fatalf("Apply returned error: %v", err)
		}
		if got, _ := answer.Number(); got != want {
			t.Fatalf("set %v: expected %v, got %v", input, want, got)
		}
	}

	defaults := domain.Question{ID: "d", Type: domain.QuestionSlider}
	field = Render(defaults, nil, false)
	if *field.Min != domain.DefaultSliderMin || *field.Max != domain.DefaultSliderMax {
		t.Fatalf("expected default bounds, got %v..%v", *field.Min, *field.Max)
	}
}

func TestChoiceSelect(t *testing.T) {
	question := domain.Question{ID: "q", Type: domain.QuestionMultipleChoice, Options: []string{"Sí", "No"}}
	answer, err := Apply(question, nil, Edit{Op: OpSelect, Option: "Sí"}, false)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	again, err := Apply(question, &answer, Edit{Op: OpSelect, Option: "Sí"}, false)
	if err != nil || !again.Equal(answer) {
		t.Fatalf("re-selecting should keep the answer: %v %v", again, err)
	}
	if _, err := Apply(question, &answer, Edit{Op: OpSelect, Option: "Tal vez"}, false); !domain.IsKind(err, domain.ErrorInvalid) {
		t.Fatalf("expected invalid option error, got %v", err)
	}
}

func TestCheckboxToggle(t *testing.T) {
	question := domain.Question{ID: "q", Type: domain.QuestionCheckboxes, Options: []string{"a", "b", "c"}}
	var current *domain.Answer
	for _, option := range []string{"a", "c", "a"} {
		next, err := Apply(question, current, Edit{Op: OpToggle, Option: option}, false)
		if err != nil {
			t.Fatalf("Apply returned error: %v", err)
		}
		current = &next
	}
	choices, _ := current.Choices()
	if len(choices) != 1 || choices[0] != "c" {
		t.Fatalf("expected [c], got %v", choices)
	}
	if !domain.IsAnswerValid(current, &question) {
		t.Fatalf("one checked option should be valid")
	}
}

func TestDynamicListRows(t *testing.T) {
	ids := 0
	list := listInput{newID: func() string {
		ids++
		return fmt.Sprintf("r%d", ids)
	}}
	question := domain.Question{ID: "q", Type: domain.QuestionDynamicList}

	first, err := list.Apply(question, nil, Edit{Op: OpAddRow, Value: " "})
	if err != nil {
		t.Fatalf("add_row returned error: %v", err)
	}
	if domain.IsAnswerValid(&first, &question) {
		t.Fatalf("a list with only blank rows should be invalid")
	}
	second, _ := list.Apply(question, &first, Edit{Op: OpAddRow, Value: "Proveedor"})
	edited, err := list.Apply(question, &second, Edit{Op: OpEditRow, RowID: "r1", Value: "Cliente"})
	if err != nil {
		t.Fatalf("edit_row returned error: %v", err)
	}
	removed, err := list.Apply(question, &edited, Edit{Op: OpRemoveRow, RowID: "r1"})
	if err != nil {
		t.Fatalf("remove_row returned error: %v", err)
	}
	items, _ := removed.Items()
	if len(items) != 1 || items[0].ID != "r2" || items[0].Value != "Proveedor" {
		t.Fatalf("row ids should be stable after removal, got %+v", items)
	}
	firstItems, _ := first.Items()
	if firstItems[0].Value != " " {
		t.Fatalf("previous answers must not be mutated")
	}
	if _, err := list.Apply(question, &removed, Edit{Op: OpRemoveRow, RowID: "r9"}); !domain.IsKind(err, domain.ErrorNotFound) {
		t.Fatalf("expected not found for missing row, got %v", err)
	}
}

func TestApplyDisabled(t *testing.T) {
	question := domain.Question{ID: "q", Type: domain.QuestionTextArea}
	if _, err := Apply(question, nil, Edit{Op: OpReplace, Text: "x"}, true); !domain.IsKind(err, domain.ErrorFormDisabled) {
		t.Fatalf("expected form disabled, got %v", err)
	}
	if _, err := Apply(question, nil, Edit{Op: OpToggle, Option: "x"}, false); !domain.IsKind(err, domain.ErrorInvalid) {
		t.Fatalf("expected invalid op, got %v", err)
	}
}

func TestCoerce(t *testing.T) {
	list := domain.Question{ID: "l", Type: domain.QuestionDynamicList}
	coerced, err := Coerce(list, domain.ChoicesAnswer(nil))
	if err != nil || coerced.Kind() != domain.AnswerList {
		t.Fatalf("empty sequence should become an empty list, got %v %v", coerced.Kind(), err)
	}

	slider := domain.Question{ID: "s", Type: domain.QuestionSlider}
	coerced, err = Coerce(slider, domain.NumberAnswer(300))
	if v, _ := coerced.Number(); err != nil || v != 100 {
		t.Fatalf("expected clamped 100, got %v %v", v, err)
	}

	choice := domain.Question{ID: "c", Type: domain.QuestionMultipleChoice, Options: []string{"a"}}
	if _, err := Coerce(choice, domain.TextAnswer("z")); !domain.IsKind(err, domain.ErrorInvalid) {
		t.Fatalf("expected invalid option, got %v", err)
	}
	if _, err := Coerce(slider, domain.TextAnswer("alto")); !domain.IsKind(err, domain.ErrorInvalid) {
		t.Fatalf("expected invalid shape, got %v", err)
	}
}
