package domain

import "fmt"

// Status は領域ドキュメントのライフサイクル状態。保存値は英語表記のみ。
type Status string

const (
	StatusPending     Status = "pending"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
	StatusReportReady Status = "report_ready"
	StatusError       Status = "error"
)

// Actor identifies who is allowed to drive a transition.
type Actor string

const (
	ActorCollaborator Actor = "collaborator"
	ActorPipeline     Actor = "pipeline"
)

// statusRank orders states for the monotonicity check. error sits after completed.
var statusRank = map[Status]int{
	StatusPending:     0,
	StatusInProgress:  1,
	StatusCompleted:   2,
	StatusError:       3,
	StatusReportReady: 4,
}

var statusLabels = map[Status]string{
	StatusPending:     "Pendiente",
	StatusInProgress:  "En proceso",
	StatusCompleted:   "Completada",
	StatusReportReady: "Informe listo",
	StatusError:       "Error al generar informe",
}

type transition struct {
	from Status
	to   Status
}

// transitions is the single table of permitted status changes and the actor that owns each.
var transitions = map[transition]Actor{
	{StatusPending, StatusInProgress}:    ActorCollaborator,
	{StatusInProgress, StatusCompleted}:  ActorCollaborator,
	{StatusPending, StatusCompleted}:     ActorCollaborator,
	{StatusCompleted, StatusReportReady}: ActorPipeline,
	{StatusCompleted, StatusError}:       ActorPipeline,
	{StatusError, StatusReportReady}:     ActorPipeline,
}

// ParseStatus validates a stored status value.
func ParseStatus(value string) (Status, error) {
	status := Status(value)
	if _, ok := statusRank[status]; !ok {
		return "", fmt.Errorf("不正なステータスです: %q", value)
	}
	return status, nil
}

func (s Status) String() string { return string(s) }

// Label returns the Spanish display label.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Rank returns the position of s in the lifecycle order.
func (s Status) Rank() int {
	if rank, ok := statusRank[s]; ok {
		return rank
	}
	return -1
}

// Editable reports whether a collaborator may still change answers.
func (s Status) Editable() bool {
	return s == StatusPending || s == StatusInProgress
}

// CanTransition reports whether actor may move an area from one status to another.
// Staying in the same status is always permitted and is a no-op.
func CanTransition(from, to Status, actor Actor) bool {
	if from == to {
		return true
	}
	owner, ok := transitions[transition{from: from, to: to}]
	return ok && owner == actor
}

// ValidateTransition returns an InvalidTransition error when CanTransition is false.
func ValidateTransition(from, to Status, actor Actor) error {
	if CanTransition(from, to, actor) {
		return nil
	}
	return NewInvalidTransitionError(from, to)
}

// SourcesFor lists the states from which actor may reach to, including to itself.
// Persistence uses it as the condition of an atomic status update.
func SourcesFor(to Status, actor Actor) []Status {
	sources := []Status{to}
	for _, from := range []Status{StatusPending, StatusInProgress, StatusCompleted, StatusError, StatusReportReady} {
		if from == to {
			continue
		}
		if owner, ok := transitions[transition{from: from, to: to}]; ok && owner == actor {
			sources = append(sources, from)
		}
	}
	return sources
}
