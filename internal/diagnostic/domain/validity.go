package domain

import "strings"

// IsAnswerValid は回答が「入力済み」とみなせるかを判定する。
// モジュール完了表示と提出可否の両方がこの判定だけを参照する。
// question が nil の場合は値の形だけで判定する。
func IsAnswerValid(answer *Answer, question *Question) bool {
	if answer == nil || answer.kind == AnswerAbsent {
		return false
	}
	if question != nil {
		if expected, ok := question.Type.ExpectedAnswerKind(); ok && expected != answer.kind {
			return false
		}
	}

	switch answer.kind {
	case AnswerNumber:
		return true
	case AnswerText:
		return strings.TrimSpace(answer.text) != ""
	case AnswerChoices:
		return len(answer.choices) > 0
	case AnswerList:
		if len(answer.items) == 0 {
			return false
		}
		if question != nil && question.Type == QuestionDynamicList {
			for _, item := range answer.items {
				if strings.TrimSpace(item.Value) != "" {
					return true
				}
			}
			return false
		}
		return true
	}
	return false
}
