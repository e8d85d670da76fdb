package domain

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		actor    Actor
		want     bool
	}{
		{StatusPending, StatusInProgress, ActorCollaborator, true},
		{StatusInProgress, StatusCompleted, ActorCollaborator, true},
		{StatusPending, StatusCompleted, ActorCollaborator, true},
		{StatusCompleted, StatusReportReady, ActorPipeline, true},
		{StatusCompleted, StatusError, ActorPipeline, true},
		{StatusError, StatusReportReady, ActorPipeline, true},
		{StatusCompleted, StatusCompleted, ActorCollaborator, true},
		{StatusPending, StatusInProgress, ActorPipeline, false},
		{StatusCompleted, StatusReportReady, ActorCollaborator, false},
		{StatusReportReady, StatusCompleted, ActorCollaborator, false},
		{StatusReportReady, StatusCompleted, ActorPipeline, false},
		{StatusInProgress, StatusPending, ActorCollaborator, false},
		{StatusInProgress, StatusError, ActorPipeline, false},
		{StatusError, StatusCompleted, ActorCollaborator, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to, tc.actor); got != tc.want {
			t.Fatalf("CanTransition(%s, %s, %s) = %v, want %v", tc.from, tc.to, tc.actor, got, tc.want)
		}
	}
}

func TestTransitionsNeverMoveBackward(t *testing.T) {
	for tr := range transitions {
		if tr.to.Rank() <= tr.from.Rank() {
			t.Fatalf("transition %s -> %s moves backward", tr.from, tr.to)
		}
	}
}

func TestValidateTransitionError(t *testing.T) {
	err := ValidateTransition(StatusReportReady, StatusCompleted, ActorCollaborator)
	if !IsKind(err, ErrorInvalidTransition) {
		t.Fatalf("expected invalid transition error, got %v", err)
	}
}

func TestSourcesFor(t *testing.T) {
	got := SourcesFor(StatusReportReady, ActorPipeline)
	want := map[Status]bool{StatusReportReady: true, StatusCompleted: true, StatusError: true}
	if len(got) != len(want) {
		t.Fatalf("SourcesFor() = %v", got)
	}
	for _, s := range got {
		if !want[s] {
			t.Fatalf("unexpected source %s", s)
		}
	}
	if got := SourcesFor(StatusInProgress, ActorCollaborator); len(got) != 2 {
		t.Fatalf("expected in_progress and pending, got %v", got)
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := ParseStatus("Pendiente"); err == nil {
		t.Fatalf("expected Spanish label to be rejected")
	}
	s, err := ParseStatus("report_ready")
	if err != nil || s != StatusReportReady {
		t.Fatalf("ParseStatus() = %v, %v", s, err)
	}
	if s.Label() != "Informe listo" {
		t.Fatalf("unexpected label %q", s.Label())
	}
}

func TestConsolidateReportsIsDeterministic(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	areas := []Area{
		{ID: "c", CreatedAt: base.Add(2 * time.Minute), ReportDraft: "C"},
		{ID: "a", CreatedAt: base, ReportDraft: "A"},
		{ID: "b", CreatedAt: base, ReportDraft: "B"},
	}
	want := "--- Informe Estratégico General ---\n\nA\n\n---\n\nB\n\n---\n\nC\n\n--- Fin del Informe ---"
	if got := ConsolidateReports(areas); got != want {
		t.Fatalf("ConsolidateReports() = %q", got)
	}
	reversed := []Area{areas[2], areas[1], areas[0]}
	if got := ConsolidateReports(reversed); got != want {
		t.Fatalf("order of input changed output: %q", got)
	}
	if areas[0].ID != "c" {
		t.Fatalf("input slice was reordered")
	}
}

func TestAllReportsReady(t *testing.T) {
	if AllReportsReady(nil) {
		t.Fatalf("empty set must not be ready")
	}
	areas := []Area{{Status: StatusReportReady}, {Status: StatusError}}
	if AllReportsReady(areas) {
		t.Fatalf("error area must block fan-in")
	}
	areas[1].Status = StatusReportReady
	if !AllReportsReady(areas) {
		t.Fatalf("expected ready")
	}
}
