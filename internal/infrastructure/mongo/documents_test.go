package mongo

import (
	"testing"
	"time"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
	"go.mongodb.org/mongo-driver/bson"
)

func TestFormDataKeepsQuestionOrder(t *testing.T) {
	data := domain.NewFormData(nil).
		With("m1", "q3", domain.TextAnswer("tercera")).
		With("m1", "q1", domain.NumberAnswer(7)).
		With("m1", "q2", domain.ChoicesAnswer([]string{"a"})).
		With("m2", "rows", domain.ListAnswer([]domain.ListItem{{ID: "r1", Value: "x"}}))

	raw, err := bson.Marshal(bson.D{{Key: "formData", Value: encodeFormData(data)}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := decodeFormData(bson.Raw(raw).Lookup("formData").Document())
	if err != nil {
		t.Fatalf("decodeFormData returned error: %v", err)
	}
	if !decoded.Equal(data) {
		t.Fatalf("decoded form data differs")
	}
	entries := decoded.Module("m1").Entries()
	if entries[0].QuestionID != "q3" || entries[1].QuestionID != "q1" || entries[2].QuestionID != "q2" {
		t.Fatalf("question order lost: %+v", entries)
	}
}

func TestDecodeFormDataLegacyShapes(t *testing.T) {
	raw, err := bson.Marshal(bson.D{
		{Key: "m1", Value: bson.D{
			{Key: "score", Value: int32(4)},
			{Key: "empty", Value: bson.A{}},
			{Key: "odd", Value: bson.D{{Key: "flag", Value: true}}},
			{Key: "mixed", Value: bson.A{"a", int32(1)}},
		}},
		{Key: "broken", Value: "not a module"},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	data, err := decodeFormData(raw)
	if err != nil {
		t.Fatalf("decodeFormData returned error: %v", err)
	}

	score, _ := data.Answer("m1", "score")
	if v, ok := score.Number(); !ok || v != 4 {
		t.Fatalf("int32 should decode as number, got %v", score.Kind())
	}
	empty, _ := data.Answer("m1", "empty")
	if empty.Kind() != domain.AnswerChoices || empty.Len() != 0 {
		t.Fatalf("empty array should decode as empty choices, got %v", empty.Kind())
	}
	for _, qid := range []string{"odd", "mixed"} {
		answer, _ := data.Answer("m1", qid)
		if answer.Kind() != domain.AnswerUnrecognized {
			t.Fatalf("%s should be unrecognized, got %v", qid, answer.Kind())
		}
	}
	if len(data.ModuleIDs()) != 1 {
		t.Fatalf("non-document module values should be skipped, got %v", data.ModuleIDs())
	}
}

func TestMapAreaRejectsUnknownStatus(t *testing.T) {
	doc := AreaDocument{ID: "a1", Status: "Completada", CreatedAt: time.Now()}
	if _, err := mapArea(doc); err == nil {
		t.Fatalf("expected error for a status outside the stored vocabulary")
	}
}

func TestBuildAreaDocument(t *testing.T) {
	completedAt := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	area := &domain.Area{
		ID:          "a1",
		CompanyID:   "c1",
		Name:        "Ventas",
		TemplateID:  "T",
		Status:      domain.StatusPending,
		FormID:      "abc",
		FormData:    domain.NewFormData(nil),
		CompletedAt: &completedAt,
	}
	raw, err := bson.Marshal(buildAreaDocument(area))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := decodeAreaDocument(raw)
	if err != nil {
		t.Fatalf("decodeAreaDocument returned error: %v", err)
	}
	if decoded.FormID != "abc" || decoded.Status != domain.StatusPending || decoded.CompletedAt == nil {
		t.Fatalf("unexpected decoded area: %+v", decoded)
	}
}
