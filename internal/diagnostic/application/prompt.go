package application

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
)

const (
	answersSectionHeader = "--- RESPUESTAS DEL DEPARTAMENTO ---"
	noAnswersText        = "No se proporcionaron respuestas en el formulario."
	unansweredText       = "(sin respuesta)"
)

// BuildPrompt combines the template prompt with the area's answers. When no prompt is
// seeded for the template, a generic instruction is used instead.
func BuildPrompt(area domain.Area, prompt *domain.Prompt, modules []domain.Module) string {
	answers := FormatAnswers(area.FormData, modules)

	var builder strings.Builder
	if prompt != nil && strings.TrimSpace(prompt.Text) != "" {
		builder.WriteString(strings.TrimSpace(prompt.Text))
	} else {
		builder.WriteString(fmt.Sprintf("Informe para %s:", area.Name))
		builder.WriteString("\n\n")
		builder.WriteString("Redacta un informe de diagnóstico del departamento a partir de las respuestas siguientes, con fortalezas, debilidades y recomendaciones.")
	}
	builder.WriteString("\n\n")
	builder.WriteString(answersSectionHeader)
	builder.WriteString("\n\n")
	builder.WriteString(answers)
	return builder.String()
}

// FormatAnswers renders answers as "Question: Answer" blocks. Modules follow the template
// order and questions follow the module definition; stored answers the catalog no longer
// knows are appended with their ids as labels.
func FormatAnswers(data domain.FormData, modules []domain.Module) string {
	if data.IsEmpty() {
		return noAnswersText
	}

	var builder strings.Builder
	seenModules := make(map[string]struct{}, len(modules))
	for _, module := range modules {
		seenModules[module.ID] = struct{}{}
		answers := data.Module(module.ID)
		if answers.Len() == 0 {
			continue
		}
		seenQuestions := make(map[string]struct{}, len(module.Questions))
		for _, question := range module.Questions {
			seenQuestions[question.ID] = struct{}{}
			answer, ok := answers.Get(question.ID)
			if !ok {
				continue
			}
			writeAnswerBlock(&builder, questionLabel(question), answer)
		}
		for _, entry := range answers.Entries() {
			if _, ok := seenQuestions[entry.QuestionID]; ok {
				continue
			}
			writeAnswerBlock(&builder, fmt.Sprintf("Pregunta (%s)", entry.QuestionID), entry.Answer)
		}
	}
	for _, moduleID := range data.ModuleIDs() {
		if _, ok := seenModules[moduleID]; ok {
			continue
		}
		for _, entry := range data.Module(moduleID).Entries() {
			writeAnswerBlock(&builder, fmt.Sprintf("Pregunta (%s)", entry.QuestionID), entry.Answer)
		}
	}

	if builder.Len() == 0 {
		return noAnswersText
	}
	return builder.String()
}

func questionLabel(question domain.Question) string {
	label := strings.TrimSpace(question.Label)
	if label == "" {
		return fmt.Sprintf("Pregunta (%s)", question.ID)
	}
	return label
}

func writeAnswerBlock(builder *strings.Builder, label string, answer domain.Answer) {
	builder.WriteString(label)
	builder.WriteString(":\n")
	builder.WriteString(formatAnswer(answer))
	builder.WriteString("\n\n")
}

func formatAnswer(answer domain.Answer) string {
	switch answer.Kind() {
	case domain.AnswerText:
		text, _ := answer.Text()
		if strings.TrimSpace(text) == "" {
			return unansweredText
		}
		return text
	case domain.AnswerNumber:
		number, _ := answer.Number()
		return strconv.FormatFloat(number, 'f', -1, 64)
	case domain.AnswerChoices:
		choices, _ := answer.Choices()
		return bulletList(choices)
	case domain.AnswerList:
		items, _ := answer.Items()
		values := make([]string, 0, len(items))
		for _, item := range items {
			if strings.TrimSpace(item.Value) != "" {
				values = append(values, item.Value)
			}
		}
		return bulletList(values)
	case domain.AnswerUnrecognized:
		return fmt.Sprintf("%v", answer.Raw())
	}
	return unansweredText
}

func bulletList(values []string) string {
	if len(values) == 0 {
		return unansweredText
	}
	lines := make([]string, 0, len(values))
	for _, value := range values {
		lines = append(lines, "- "+value)
	}
	return strings.Join(lines, "\n")
}
