package admin

import (
	"time"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/application"
	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
)

type companyCreateRequest struct {
	Name    string `json:"name"`
	AdminID string `json:"adminId,omitempty"`
}

type areaCreateRequest struct {
	Areas []areaInput `json:"areas"`
}

type areaInput struct {
	Name        string           `json:"name"`
	TemplateID  string           `json:"templateId,omitempty"`
	Responsible responsibleInput `json:"responsible"`
}

type responsibleInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Position string `json:"position,omitempty"`
}

type overallReportUpdateRequest struct {
	Draft string `json:"draft"`
}

type overallReportSendRequest struct {
	FinalText string `json:"finalText,omitempty"`
}

type companyResponse struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	AdminID            string    `json:"adminId"`
	OverallReportDraft string    `json:"overallReportDraft,omitempty"`
	FinalReportReady   bool      `json:"finalReportReady"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type areaResponse struct {
	ID               string              `json:"id"`
	CompanyID        string              `json:"companyId"`
	Name             string              `json:"name"`
	TemplateID       string              `json:"templateId"`
	Responsible      responsibleInput    `json:"responsible"`
	Status           string              `json:"status"`
	StatusLabel      string              `json:"statusLabel"`
	FormID           string              `json:"formId"`
	FormLink         string              `json:"formLink,omitempty"`
	ReportDraft      string              `json:"reportDraft,omitempty"`
	GenerationError  string              `json:"generationError,omitempty"`
	NotificationSent bool                `json:"notificationSent"`
	Attachments      []attachmentSummary `json:"attachments"`
	CreatedAt        time.Time           `json:"createdAt"`
	CompletedAt      *time.Time          `json:"completedAt,omitempty"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

type attachmentSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

type companyAreasResponse struct {
	Company         companyResponse `json:"company"`
	Areas           []areaResponse  `json:"areas"`
	AllReportsReady bool            `json:"allReportsReady"`
}

type overallReportResponse struct {
	CompanyID          string `json:"companyId"`
	CompanyName        string `json:"companyName"`
	OverallReportDraft string `json:"overallReportDraft"`
	FinalReportReady   bool   `json:"finalReportReady"`
	AllReportsReady    bool   `json:"allReportsReady"`
	AreaCount          int    `json:"areaCount"`
}

type areaReportResponse struct {
	Area        areaResponse           `json:"area"`
	ReportDraft string                 `json:"reportDraft"`
	FinalReport string                 `json:"finalReport,omitempty"`
	Modules     []reportModuleResponse `json:"modules"`
}

type reportModuleResponse struct {
	ID      string                 `json:"id"`
	Name    string                 `json:"name"`
	Answers []reportAnswerResponse `json:"answers"`
}

type reportAnswerResponse struct {
	QuestionID string        `json:"questionId"`
	Label      string        `json:"label"`
	Value      domain.Answer `json:"value"`
}

type templateResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	ModuleIDs   []string `json:"moduleIds"`
}

type moduleResponse struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Questions []questionResponse `json:"questions"`
}

type questionResponse struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	Type        string   `json:"type"`
	Options     []string `json:"options,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
}

func companyToResponse(company domain.Company) companyResponse {
	return companyResponse{
		ID:                 company.ID,
		Name:               company.Name,
		AdminID:            company.AdminID,
		OverallReportDraft: company.OverallReportDraft,
		FinalReportReady:   company.FinalReportReady,
		CreatedAt:          company.CreatedAt,
		UpdatedAt:          company.UpdatedAt,
	}
}

func (h *Handler) areaToResponse(area domain.Area) areaResponse {
	resp := areaResponse{
		ID:         area.ID,
		CompanyID:  area.CompanyID,
		Name:       area.Name,
		TemplateID: area.TemplateID,
		Responsible: responsibleInput{
			Name:     area.Responsible.Name,
			Email:    area.Responsible.Email,
			Position: area.Responsible.Position,
		},
		Status:           area.Status.String(),
		StatusLabel:      area.Status.Label(),
		FormID:           area.FormID,
		ReportDraft:      area.ReportDraft,
		GenerationError:  area.GenerationError,
		NotificationSent: area.NotificationSent,
		Attachments:      make([]attachmentSummary, 0, len(area.Attachments)),
		CreatedAt:        area.CreatedAt,
		CompletedAt:      area.CompletedAt,
		UpdatedAt:        area.UpdatedAt,
	}
	if h.inviter != nil {
		resp.FormLink = h.inviter.FormLink(area.FormID)
	}
	for _, attachment := range area.Attachments {
		resp.Attachments = append(resp.Attachments, attachmentSummary{
			ID:   attachment.ID,
			Name: attachment.Name,
			URL:  attachment.URL,
			Size: attachment.Size,
		})
	}
	return resp
}

func templateToResponse(template domain.Template) templateResponse {
	return templateResponse{
		ID:          template.ID,
		Name:        template.Name,
		Description: template.Description,
		ModuleIDs:   append([]string{}, template.ModuleIDs...),
	}
}

func moduleToResponse(module domain.Module) moduleResponse {
	resp := moduleResponse{ID: module.ID, Name: module.Name, Questions: make([]questionResponse, 0, len(module.Questions))}
	for _, question := range module.Questions {
		resp.Questions = append(resp.Questions, questionResponse{
			ID:          question.ID,
			Label:       question.Label,
			Description: question.Description,
			Type:        string(question.Type),
			Options:     question.Options,
			Min:         question.Min,
			Max:         question.Max,
		})
	}
	return resp
}

// areaReportToResponse labels every stored answer with its question. Answers to questions
// no longer in the template are left out.
func (h *Handler) areaReportToResponse(report *application.AreaReport) areaReportResponse {
	resp := areaReportResponse{
		Area:        h.areaToResponse(report.Area),
		ReportDraft: report.Area.ReportDraft,
		FinalReport: report.Area.FinalReport,
		Modules:     make([]reportModuleResponse, 0, len(report.Modules)),
	}
	for _, module := range report.Modules {
		item := reportModuleResponse{ID: module.ID, Name: module.Name, Answers: []reportAnswerResponse{}}
		for _, question := range module.Questions {
			answer, ok := report.Area.FormData.Answer(module.ID, question.ID)
			if !ok {
				continue
			}
			label := question.Label
			if label == "" {
				label = question.ID
			}
			item.Answers = append(item.Answers, reportAnswerResponse{QuestionID: question.ID, Label: label, Value: answer})
		}
		resp.Modules = append(resp.Modules, item)
	}
	return resp
}
