package public

import (
	"time"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/application"
	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
	"github.com/EduTebar97/journeest-app/internal/diagnostic/form"
)

type formResponse struct {
	Area              areaSummaryResponse          `json:"area"`
	ActiveModuleID    string                       `json:"activeModuleId"`
	Disabled          bool                         `json:"disabled"`
	ValidationMessage string                       `json:"validationMessage,omitempty"`
	Modules           []moduleResponse             `json:"modules"`
	Progress          []application.ModuleProgress `json:"progress"`
}

type moduleResponse struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Fields []form.Field `json:"fields"`
}

type areaSummaryResponse struct {
	ID              string               `json:"id"`
	CompanyID       string               `json:"companyId"`
	Name            string               `json:"name"`
	Status          string               `json:"status"`
	StatusLabel     string               `json:"statusLabel"`
	ResponsibleName string               `json:"responsibleName,omitempty"`
	CompletedAt     *string              `json:"completedAt,omitempty"`
	Attachments     []attachmentResponse `json:"attachments"`
}

type attachmentResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size"`
	UploadedAt  string `json:"uploadedAt"`
}

type fieldUpdateResponse struct {
	Field    form.Field                   `json:"field"`
	Status   string                       `json:"status"`
	Progress []application.ModuleProgress `json:"progress"`
}

type answerRequest struct {
	Value domain.Answer `json:"value"`
}

type draftRequest struct {
	FormData *domain.FormData `json:"formData"`
}

type finalizeRequest struct {
	FormData  *domain.FormData `json:"formData"`
	Confirmed bool             `json:"confirmed"`
}

func buildAreaSummary(area domain.Area) areaSummaryResponse {
	resp := areaSummaryResponse{
		ID:              area.ID,
		CompanyID:       area.CompanyID,
		Name:            area.Name,
		Status:          area.Status.String(),
		StatusLabel:     area.Status.Label(),
		ResponsibleName: area.Responsible.Name,
		Attachments:     make([]attachmentResponse, 0, len(area.Attachments)),
	}
	if area.CompletedAt != nil {
		completed := area.CompletedAt.UTC().Format(time.RFC3339)
		resp.CompletedAt = &completed
	}
	for _, attachment := range area.Attachments {
		resp.Attachments = append(resp.Attachments, buildAttachmentResponse(attachment))
	}
	return resp
}

func buildAttachmentResponse(attachment domain.Attachment) attachmentResponse {
	return attachmentResponse{
		ID:          attachment.ID,
		Name:        attachment.Name,
		URL:         attachment.URL,
		ContentType: attachment.ContentType,
		Size:        attachment.Size,
		UploadedAt:  attachment.UploadedAt.UTC().Format(time.RFC3339),
	}
}

func buildFormResponse(session *application.Session) (formResponse, error) {
	modules := session.Modules()
	resp := formResponse{
		Area:              buildAreaSummary(session.Area()),
		ActiveModuleID:    session.ActiveModuleID(),
		Disabled:          session.Disabled(),
		ValidationMessage: session.ValidationMessage(),
		Modules:           make([]moduleResponse, 0, len(modules)),
		Progress:          session.Progress(),
	}
	for _, module := range modules {
		fields, err := session.RenderModule(module.ID)
		if err != nil {
			return formResponse{}, err
		}
		resp.Modules = append(resp.Modules, moduleResponse{ID: module.ID, Name: module.Name, Fields: fields})
	}
	return resp, nil
}
