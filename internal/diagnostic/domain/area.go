package domain

import (
	"sort"
	"strings"
	"time"
)

// DefaultTemplateID is assigned when an area is created without an explicit template.
const DefaultTemplateID = "template_generic"

// Responsible は領域の回答担当者。
type Responsible struct {
	Name     string
	Email    string
	Position string
}

// Attachment は領域にアップロードされたファイルのメタデータ。
type Attachment struct {
	ID          string
	Name        string
	URL         string
	ContentType string
	Size        int64
	UploadedAt  time.Time
}

// Area は 1 社 1 部門分の診断インスタンス。
type Area struct {
	ID               string
	CompanyID        string
	Name             string
	TemplateID       string
	Responsible      Responsible
	Status           Status
	FormID           string
	FormData         FormData
	ReportDraft      string
	FinalReport      string
	GenerationError  string
	Attachments      []Attachment
	NotificationSent bool
	CreatedAt        time.Time
	CompletedAt      *time.Time
	UpdatedAt        time.Time
}

// Company は領域群を束ね、統合レポートの下書きと公開フラグを持つ。
type Company struct {
	ID                 string
	Name               string
	AdminID            string
	OverallReportDraft string
	FinalReportReady   bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SortAreasByCreation orders areas by creation time, breaking ties by id.
func SortAreasByCreation(areas []Area) {
	sort.SliceStable(areas, func(i, j int) bool {
		if !areas[i].CreatedAt.Equal(areas[j].CreatedAt) {
			return areas[i].CreatedAt.Before(areas[j].CreatedAt)
		}
		return areas[i].ID < areas[j].ID
	})
}

// AllReportsReady reports whether every area has reached report_ready.
// An empty slice is not considered ready.
func AllReportsReady(areas []Area) bool {
	if len(areas) == 0 {
		return false
	}
	for _, area := range areas {
		if area.Status != StatusReportReady {
			return false
		}
	}
	return true
}

const (
	overallReportHeader    = "--- Informe Estratégico General ---"
	overallReportSeparator = "\n\n---\n\n"
	overallReportFooter    = "--- Fin del Informe ---"
)

// ConsolidateReports joins sibling drafts in creation order. The same input always yields
// the same text, so recomputing it is safe.
func ConsolidateReports(areas []Area) string {
	ordered := append([]Area(nil), areas...)
	SortAreasByCreation(ordered)

	drafts := make([]string, 0, len(ordered))
	for _, area := range ordered {
		if draft := strings.TrimSpace(area.ReportDraft); draft != "" {
			drafts = append(drafts, draft)
		}
	}

	var builder strings.Builder
	builder.WriteString(overallReportHeader)
	builder.WriteString("\n\n")
	builder.WriteString(strings.Join(drafts, overallReportSeparator))
	builder.WriteString("\n\n")
	builder.WriteString(overallReportFooter)
	return builder.String()
}
