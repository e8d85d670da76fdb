package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind は診断ドメインで扱うエラー分類。HTTP 層はこの分類でステータスを決める。
type ErrorKind string

const (
	ErrorNotFound             ErrorKind = "not_found"
	ErrorIncomplete           ErrorKind = "incomplete_submission"
	ErrorPersistence          ErrorKind = "persistence_failure"
	ErrorGeneration           ErrorKind = "generation_failure"
	ErrorConfig               ErrorKind = "config_error"
	ErrorInvalidTransition    ErrorKind = "invalid_transition"
	ErrorFormDisabled         ErrorKind = "form_disabled"
	ErrorConfirmationRequired ErrorKind = "confirmation_required"
	ErrorInvalid              ErrorKind = "invalid"
	ErrorForbidden            ErrorKind = "forbidden"
)

// Error carries a kind plus a user facing message and an optional cause.
type Error struct {
	Kind    ErrorKind
	Message string
	// Modules lists the names of incomplete modules for ErrorIncomplete.
	Modules []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NewNotFoundError(msg string) error { return &Error{Kind: ErrorNotFound, Message: msg} }
func NewConfigError(msg string) error   { return &Error{Kind: ErrorConfig, Message: msg} }
func NewInvalidError(msg string) error  { return &Error{Kind: ErrorInvalid, Message: msg} }
func NewForbiddenError(msg string) error {
	return &Error{Kind: ErrorForbidden, Message: msg}
}

func NewFormDisabledError() error {
	return &Error{Kind: ErrorFormDisabled, Message: "フォームは編集できない状態です"}
}

func NewConfirmationRequiredError() error {
	return &Error{Kind: ErrorConfirmationRequired, Message: "提出には確認が必要です"}
}

func NewPersistenceError(msg string, cause error) error {
	return &Error{Kind: ErrorPersistence, Message: msg, Err: cause}
}

func NewGenerationError(msg string, cause error) error {
	return &Error{Kind: ErrorGeneration, Message: msg, Err: cause}
}

func NewInvalidTransitionError(from, to Status) error {
	return &Error{Kind: ErrorInvalidTransition, Message: fmt.Sprintf("ステータスを %s から %s へ変更できません", from, to)}
}

// NewIncompleteSubmissionError names every module that still has invalid answers.
func NewIncompleteSubmissionError(moduleNames []string) error {
	return &Error{
		Kind:    ErrorIncomplete,
		Message: "未回答の質問があるモジュール: " + strings.Join(moduleNames, ", "),
		Modules: append([]string(nil), moduleNames...),
	}
}

// AsError unwraps err into a domain Error.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	de, ok := AsError(err)
	return ok && de.Kind == kind
}
