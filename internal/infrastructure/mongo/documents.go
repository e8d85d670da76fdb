package mongo

import (
	"fmt"
	"strconv"
	"time"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// ResponsibleDocument は領域担当者の埋め込みドキュメント。
type ResponsibleDocument struct {
	Name     string `bson:"name"`
	Email    string `bson:"email"`
	Position string `bson:"position,omitempty"`
}

// AttachmentDocument は添付ファイル 1 件分のメタデータ。
type AttachmentDocument struct {
	ID          string    `bson:"id"`
	Name        string    `bson:"name"`
	URL         string    `bson:"url"`
	ContentType string    `bson:"contentType,omitempty"`
	Size        int64     `bson:"size"`
	UploadedAt  time.Time `bson:"uploadedAt"`
}

// AreaDocument は areas コレクションのスキーマ。formData は順序を保つため Raw のまま読む。
type AreaDocument struct {
	ID               string               `bson:"_id"`
	CompanyID        string               `bson:"companyId"`
	Name             string               `bson:"name"`
	TemplateID       string               `bson:"templateId"`
	Responsible      ResponsibleDocument  `bson:"responsible"`
	Status           string               `bson:"status"`
	FormID           string               `bson:"formId"`
	FormData         bson.Raw             `bson:"formData,omitempty"`
	ReportDraft      string               `bson:"reportDraft,omitempty"`
	FinalReport      string               `bson:"finalReport,omitempty"`
	GenerationError  string               `bson:"generationError,omitempty"`
	Attachments      []AttachmentDocument `bson:"attachments,omitempty"`
	NotificationSent bool                 `bson:"notificationSent"`
	CreatedAt        time.Time            `bson:"createdAt"`
	CompletedAt      *time.Time           `bson:"completedAt,omitempty"`
	UpdatedAt        time.Time            `bson:"updatedAt"`
}

// CompanyDocument は companies コレクションのスキーマ。
type CompanyDocument struct {
	ID                 string    `bson:"_id"`
	Name               string    `bson:"name"`
	AdminID            string    `bson:"adminId"`
	OverallReportDraft string    `bson:"overallReportDraft,omitempty"`
	FinalReportReady   bool      `bson:"finalReportReady"`
	CreatedAt          time.Time `bson:"createdAt"`
	UpdatedAt          time.Time `bson:"updatedAt"`
}

// QuestionDocument は modules.questions の要素。
type QuestionDocument struct {
	ID          string   `bson:"id" yaml:"id"`
	Label       string   `bson:"label" yaml:"label"`
	Description string   `bson:"description,omitempty" yaml:"description,omitempty"`
	Type        string   `bson:"type" yaml:"type"`
	Options     []string `bson:"options,omitempty" yaml:"options,omitempty"`
	Min         *float64 `bson:"min,omitempty" yaml:"min,omitempty"`
	Max         *float64 `bson:"max,omitempty" yaml:"max,omitempty"`
}

// ModuleDocument は modules コレクションのスキーマ。
type ModuleDocument struct {
	ID        string             `bson:"_id" yaml:"id"`
	Name      string             `bson:"name" yaml:"name"`
	Questions []QuestionDocument `bson:"questions" yaml:"questions"`
}

// TemplateDocument は templates コレクションのスキーマ。
type TemplateDocument struct {
	ID          string   `bson:"_id" yaml:"id"`
	Name        string   `bson:"name" yaml:"name"`
	Description string   `bson:"description,omitempty" yaml:"description,omitempty"`
	ModuleIDs   []string `bson:"modules" yaml:"modules"`
}

// PromptDocument は prompts コレクションのスキーマ。_id はテンプレートIDと同じ。
type PromptDocument struct {
	ID   string `bson:"_id" yaml:"templateId"`
	Text string `bson:"promptText" yaml:"promptText"`
}

func mapArea(doc AreaDocument) (domain.Area, error) {
	status, err := domain.ParseStatus(doc.Status)
	if err != nil {
		return domain.Area{}, fmt.Errorf("area %s: %w", doc.ID, err)
	}
	data, err := decodeFormData(doc.FormData)
	if err != nil {
		return domain.Area{}, fmt.Errorf("area %s: %w", doc.ID, err)
	}
	attachments := make([]domain.Attachment, 0, len(doc.Attachments))
	for _, a := range doc.Attachments {
		attachments = append(attachments, domain.Attachment{
			ID:          a.ID,
			Name:        a.Name,
			URL:         a.URL,
			ContentType: a.ContentType,
			Size:        a.Size,
			UploadedAt:  a.UploadedAt,
		})
	}
	return domain.Area{
		ID:         doc.ID,
		CompanyID:  doc.CompanyID,
		Name:       doc.Name,
		TemplateID: doc.TemplateID,
		Responsible: domain.Responsible{
			Name:     doc.Responsible.Name,
			Email:    doc.Responsible.Email,
			Position: doc.Responsible.Position,
		},
		Status:           status,
		FormID:           doc.FormID,
		FormData:         data,
		ReportDraft:      doc.ReportDraft,
		FinalReport:      doc.FinalReport,
		GenerationError:  doc.GenerationError,
		Attachments:      attachments,
		NotificationSent: doc.NotificationSent,
		CreatedAt:        doc.CreatedAt,
		CompletedAt:      doc.CompletedAt,
		UpdatedAt:        doc.UpdatedAt,
	}, nil
}

func buildAreaDocument(area *domain.Area) bson.D {
	doc := bson.D{
		{Key: "_id", Value: area.ID},
		{Key: "companyId", Value: area.CompanyID},
		{Key: "name", Value: area.Name},
		{Key: "templateId", Value: area.TemplateID},
		{Key: "responsible", Value: ResponsibleDocument{
			Name:     area.Responsible.Name,
			Email:    area.Responsible.Email,
			Position: area.Responsible.Position,
		}},
		{Key: "status", Value: string(area.Status)},
		{Key: "formId", Value: area.FormID},
		{Key: "formData", Value: encodeFormData(area.FormData)},
		{Key: "attachments", Value: bson.A{}},
		{Key: "notificationSent", Value: area.NotificationSent},
		{Key: "createdAt", Value: area.CreatedAt},
		{Key: "updatedAt", Value: area.UpdatedAt},
	}
	if area.CompletedAt != nil {
		doc = append(doc, bson.E{Key: "completedAt", Value: *area.CompletedAt})
	}
	return doc
}

func mapCompany(doc CompanyDocument) domain.Company {
	return domain.Company{
		ID:                 doc.ID,
		Name:               doc.Name,
		AdminID:            doc.AdminID,
		OverallReportDraft: doc.OverallReportDraft,
		FinalReportReady:   doc.FinalReportReady,
		CreatedAt:          doc.CreatedAt,
		UpdatedAt:          doc.UpdatedAt,
	}
}

func mapModule(doc ModuleDocument) domain.Module {
	questions := make([]domain.Question, 0, len(doc.Questions))
	for _, q := range doc.Questions {
		questions = append(questions, domain.Question{
			ID:          q.ID,
			Label:       q.Label,
			Description: q.Description,
			Type:        domain.QuestionType(q.Type),
			Options:     append([]string{}, q.Options...),
			Min:         q.Min,
			Max:         q.Max,
		})
	}
	return domain.Module{ID: doc.ID, Name: doc.Name, Questions: questions}
}

func mapTemplate(doc TemplateDocument) domain.Template {
	return domain.Template{
		ID:          doc.ID,
		Name:        doc.Name,
		Description: doc.Description,
		ModuleIDs:   append([]string{}, doc.ModuleIDs...),
	}
}

// encodeFormData writes modules in sorted order and questions in answer order.
func encodeFormData(data domain.FormData) bson.D {
	out := bson.D{}
	for _, moduleID := range data.ModuleIDs() {
		answers := bson.D{}
		for _, entry := range data.Module(moduleID).Entries() {
			answers = append(answers, bson.E{Key: entry.QuestionID, Value: encodeAnswer(entry.Answer)})
		}
		out = append(out, bson.E{Key: moduleID, Value: answers})
	}
	return out
}

func encodeAnswer(answer domain.Answer) interface{} {
	switch answer.Kind() {
	case domain.AnswerText:
		text, _ := answer.Text()
		return text
	case domain.AnswerNumber:
		number, _ := answer.Number()
		return number
	case domain.AnswerChoices:
		choices, _ := answer.Choices()
		values := bson.A{}
		for _, c := range choices {
			values = append(values, c)
		}
		return values
	case domain.AnswerList:
		items, _ := answer.Items()
		values := bson.A{}
		for _, item := range items {
			values = append(values, bson.D{{Key: "id", Value: item.ID}, {Key: "value", Value: item.Value}})
		}
		return values
	case domain.AnswerUnrecognized:
		return answer.Raw()
	}
	return nil
}

// decodeFormData walks the raw document so the stored question order survives the round trip.
func decodeFormData(raw bson.Raw) (domain.FormData, error) {
	if len(raw) == 0 {
		return domain.NewFormData(nil), nil
	}
	modules, err := raw.Elements()
	if err != nil {
		return domain.FormData{}, fmt.Errorf("formData の解析に失敗: %w", err)
	}
	result := make(map[string]domain.ModuleAnswers, len(modules))
	for _, module := range modules {
		value := module.Value()
		if value.Type != bsontype.EmbeddedDocument {
			continue
		}
		questions, err := value.Document().Elements()
		if err != nil {
			return domain.FormData{}, fmt.Errorf("formData.%s の解析に失敗: %w", module.Key(), err)
		}
		entries := make([]domain.AnswerEntry, 0, len(questions))
		for _, question := range questions {
			answer, err := domain.AnswerFromValue(rawToValue(question.Value()))
			if err != nil {
				return domain.FormData{}, fmt.Errorf("formData.%s.%s: %w", module.Key(), question.Key(), err)
			}
			entries = append(entries, domain.AnswerEntry{QuestionID: question.Key(), Answer: answer})
		}
		result[module.Key()] = domain.NewModuleAnswers(entries...)
	}
	return domain.NewFormData(result), nil
}

// rawToValue converts a BSON value into the loose shapes understood by domain.AnswerFromValue.
func rawToValue(value bson.RawValue) interface{} {
	switch value.Type {
	case bsontype.String:
		return value.StringValue()
	case bsontype.Double:
		return value.Double()
	case bsontype.Int32:
		return int64(value.Int32())
	case bsontype.Int64:
		return value.Int64()
	case bsontype.Boolean:
		return value.Boolean()
	case bsontype.Null, bsontype.Undefined:
		return nil
	case bsontype.Array:
		elements, err := bson.Raw(value.Value).Elements()
		if err != nil {
			return value.String()
		}
		out := make([]interface{}, 0, len(elements))
		for _, element := range elements {
			out = append(out, rawToValue(element.Value()))
		}
		return out
	case bsontype.EmbeddedDocument:
		elements, err := value.Document().Elements()
		if err != nil {
			return value.String()
		}
		out := make(map[string]interface{}, len(elements))
		for _, element := range elements {
			out[element.Key()] = rawToValue(element.Value())
		}
		return out
	case bsontype.Decimal128:
		if f, err := strconv.ParseFloat(value.Decimal128().String(), 64); err == nil {
			return f
		}
	}
	return value.String()
}
