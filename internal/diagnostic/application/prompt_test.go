package application

import (
	"strings"
	"testing"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
)

func TestFormatAnswersFollowsCatalogOrder(t *testing.T) {
	catalog := twoModuleCatalog()
	modules := []domain.Module{catalog.modules["M1"], catalog.modules["M2"]}
	data := domain.NewFormData(nil).
		With("M2", "maturity", domain.NumberAnswer(42.5)).
		With("M1", "extra", domain.ChoicesAnswer([]string{"a", "b"})).
		With("M1", "mission", domain.TextAnswer("Crecer")).
		With("M0", "legacy", domain.ListAnswer([]domain.ListItem{{ID: "r1", Value: "x"}, {ID: "r2", Value: " "}}))

	got := FormatAnswers(data, modules)
	want := "Misión:\nCrecer\n\n" +
		"Pregunta (extra):\n- a\n- b\n\n" +
		"Madurez:\n42.5\n\n" +
		"Pregunta (legacy):\n- x\n\n"
	if got != want {
		t.Fatalf("unexpected answers block:\n%q\nwant\n%q", got, want)
	}
}

func TestFormatAnswersEmpty(t *testing.T) {
	if got := FormatAnswers(domain.NewFormData(nil), nil); got != noAnswersText {
		t.Fatalf("expected %q, got %q", noAnswersText, got)
	}
}

func TestBuildPromptWithTemplatePrompt(t *testing.T) {
	area := domain.Area{Name: "Ventas", FormData: domain.NewFormData(nil).With("M1", "mission", domain.TextAnswer(" "))}
	catalog := twoModuleCatalog()
	prompt := catalog.prompts["T"]

	got := BuildPrompt(area, &prompt, []domain.Module{catalog.modules["M1"]})
	want := "Analiza el departamento.\n\n--- RESPUESTAS DEL DEPARTAMENTO ---\n\nMisión:\n(sin respuesta)\n\n"
	if got != want {
		t.Fatalf("unexpected prompt %q", got)
	}
}

func TestBuildPromptFallback(t *testing.T) {
	area := domain.Area{Name: "Ventas", FormData: domain.NewFormData(nil)}
	got := BuildPrompt(area, nil, nil)
	if !strings.HasPrefix(got, "Informe para Ventas:") {
		t.Fatalf("expected fallback prefix, got %q", got)
	}
	if !strings.HasSuffix(got, answersSectionHeader+"\n\n"+noAnswersText) {
		t.Fatalf("expected empty answers section, got %q", got)
	}
}
