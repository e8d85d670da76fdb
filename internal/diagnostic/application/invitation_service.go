package application

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
)

// InvitationService は領域作成時に担当者へフォームへのリンクをメールで送る。
// 送信失敗は記録するだけで呼び出し元へは返さない。
type InvitationService struct {
	mailer     Mailer
	failures   NotificationFailureRecorder
	areas      AreaRepository
	appBaseURL string
	logger     *log.Logger
}

func NewInvitationService(mailer Mailer, failures NotificationFailureRecorder, areas AreaRepository, appBaseURL string, logger *log.Logger) *InvitationService {
	return &InvitationService{
		mailer:     mailer,
		failures:   failures,
		areas:      areas,
		appBaseURL: strings.TrimRight(strings.TrimSpace(appBaseURL), "/"),
		logger:     logger,
	}
}

// FormLink returns the collaborator link for formID.
func (s *InvitationService) FormLink(formID string) string {
	return fmt.Sprintf("%s/report/editor/%s", s.appBaseURL, formID)
}

// InviteAll sends one invitation per area.
func (s *InvitationService) InviteAll(ctx context.Context, areas []domain.Area) {
	for _, area := range areas {
		s.Invite(ctx, area)
	}
}

// Invite sends the invitation for area and marks it as notified on success.
// It reports whether the email was accepted by the gateway.
func (s *InvitationService) Invite(ctx context.Context, area domain.Area) bool {
	email := strings.TrimSpace(area.Responsible.Email)
	if email == "" {
		s.logf("領域 %s に担当者メールアドレスがないため招待メールを送信しません", area.ID)
		return false
	}

	message := buildInvitationMessage(area, s.FormLink(area.FormID))
	if err := s.mailer.Send(ctx, message); err != nil {
		s.logf("招待メールの送信に失敗 area=%s to=%s: %v", area.ID, email, err)
		s.recordFailure(ctx, area, err)
		return false
	}

	s.logf("招待メールを送信しました area=%s to=%s", area.ID, email)
	if err := s.areas.MarkNotificationSent(ctx, area.ID); err != nil {
		s.logf("notificationSent の更新に失敗 area=%s: %v", area.ID, err)
	}
	return true
}

func (s *InvitationService) recordFailure(ctx context.Context, area domain.Area, sendErr error) {
	if s.failures == nil {
		return
	}
	failure := NotificationFailure{
		Target: "area_invitation",
		Payload: map[string]string{
			"areaId":    area.ID,
			"companyId": area.CompanyID,
			"areaName":  area.Name,
			"formId":    area.FormID,
			"email":     area.Responsible.Email,
		},
		Err:      sendErr,
		Attempts: 1,
	}
	if err := s.failures.Record(ctx, failure); err != nil {
		s.logf("failed_notifications への保存に失敗: %v", err)
	}
}

func buildInvitationMessage(area domain.Area, link string) MailMessage {
	recipient := strings.TrimSpace(area.Responsible.Name)
	if recipient == "" {
		recipient = "colaborador"
	}
	name := html.EscapeString(recipient)
	areaName := html.EscapeString(area.Name)
	escapedLink := html.EscapeString(link)

	var body strings.Builder
	body.WriteString(fmt.Sprintf("<h1>Hola %s,</h1>\n", name))
	body.WriteString(fmt.Sprintf("<p>Se te ha asignado la responsabilidad de completar el diagnóstico para el área: <strong>%s</strong>.</p>\n", areaName))
	body.WriteString("<p>Por favor, accede al siguiente enlace para completar tu formulario:</p>\n")
	body.WriteString(fmt.Sprintf("<a href=\"%s\">Completar Diagnóstico</a>\n", escapedLink))
	body.WriteString("<p>Si el botón no funciona, copia y pega este enlace en tu navegador:</p>\n")
	body.WriteString(fmt.Sprintf("<p>%s</p>\n", escapedLink))
	body.WriteString("<p>Gracias por tu colaboración,</p>\n<p>El equipo de Journeest</p>\n")

	text := fmt.Sprintf("Hola %s,\n\nSe te ha asignado el diagnóstico del área %s.\nCompleta tu formulario en: %s\n\nEl equipo de Journeest\n", recipient, area.Name, link)

	return MailMessage{
		To:      strings.TrimSpace(area.Responsible.Email),
		Subject: fmt.Sprintf("Tienes un nuevo diagnóstico asignado: %s", area.Name),
		HTML:    body.String(),
		Text:    text,
	}
}

func (s *InvitationService) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
