package domain

import (
	"bytes"
	"encoding/json"
	"errors"
)

// AnswerKind identifies the variant held by an Answer.
type AnswerKind int

const (
	AnswerAbsent AnswerKind = iota
	AnswerText
	AnswerNumber
	AnswerChoices
	AnswerList
	// AnswerUnrecognized holds persisted data of a foreign shape. It is never valid.
	AnswerUnrecognized
)

func (k AnswerKind) String() string {
	switch k {
	case AnswerText:
		return "text"
	case AnswerNumber:
		return "number"
	case AnswerChoices:
		return "choices"
	case AnswerList:
		return "list"
	case AnswerUnrecognized:
		return "unrecognized"
	default:
		return "absent"
	}
}

// ListItem は dynamic_list の 1 行。ID は作成時に払い出され再利用されない。
type ListItem struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// WithValue returns a copy of the row holding value.
func (i ListItem) WithValue(value string) ListItem {
	i.Value = value
	return i
}

// Answer は質問 1 件分の回答値。ゼロ値は未回答を表す。
// 保持するスライスは外に漏らさず、アクセサはコピーを返す。
type Answer struct {
	kind    AnswerKind
	text    string
	number  float64
	choices []string
	items   []ListItem
	raw     any
}

func TextAnswer(value string) Answer { return Answer{kind: AnswerText, text: value} }

func NumberAnswer(value float64) Answer { return Answer{kind: AnswerNumber, number: value} }

func ChoicesAnswer(values []string) Answer {
	return Answer{kind: AnswerChoices, choices: append([]string{}, values...)}
}

func ListAnswer(items []ListItem) Answer {
	return Answer{kind: AnswerList, items: append([]ListItem{}, items...)}
}

// UnrecognizedAnswer keeps a foreign value so a save does not silently drop it.
func UnrecognizedAnswer(raw any) Answer { return Answer{kind: AnswerUnrecognized, raw: raw} }

func (a Answer) Kind() AnswerKind { return a.kind }

func (a Answer) IsAbsent() bool { return a.kind == AnswerAbsent }

func (a Answer) Text() (string, bool) { return a.text, a.kind == AnswerText }

func (a Answer) Number() (float64, bool) { return a.number, a.kind == AnswerNumber }

func (a Answer) Choices() ([]string, bool) {
	if a.kind != AnswerChoices {
		return nil, false
	}
	return append([]string{}, a.choices...), true
}

func (a Answer) Items() ([]ListItem, bool) {
	if a.kind != AnswerList {
		return nil, false
	}
	return append([]ListItem{}, a.items...), true
}

func (a Answer) Raw() any { return a.raw }

// Len returns the number of elements for sequence variants and 0 otherwise.
func (a Answer) Len() int {
	switch a.kind {
	case AnswerChoices:
		return len(a.choices)
	case AnswerList:
		return len(a.items)
	}
	return 0
}

// Equal compares two answers variant by variant.
func (a Answer) Equal(b Answer) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case AnswerText:
		return a.text == b.text
	case AnswerNumber:
		return a.number == b.number
	case AnswerChoices:
		if len(a.choices) != len(b.choices) {
			return false
		}
		for i := range a.choices {
			if a.choices[i] != b.choices[i] {
				return false
			}
		}
		return true
	case AnswerList:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if a.items[i] != b.items[i] {
				return false
			}
		}
		return true
	case AnswerUnrecognized:
		left, errL := json.Marshal(a.raw)
		right, errR := json.Marshal(b.raw)
		return errL == nil && errR == nil && bytes.Equal(left, right)
	}
	return true
}

// MarshalJSON writes the bare value the way clients send it.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case AnswerText:
		return json.Marshal(a.text)
	case AnswerNumber:
		return json.Marshal(a.number)
	case AnswerChoices:
		return json.Marshal(a.choices)
	case AnswerList:
		return json.Marshal(a.items)
	case AnswerUnrecognized:
		return json.Marshal(a.raw)
	}
	return []byte("null"), nil
}

// UnmarshalJSON classifies a bare JSON value into an answer variant.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var raw any
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return err
	}
	parsed, err := AnswerFromValue(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// AnswerFromValue classifies a loosely typed value decoded from JSON or a document store.
// Values that fit no variant become AnswerUnrecognized rather than an error.
func AnswerFromValue(value any) (Answer, error) {
	switch v := value.(type) {
	case nil:
		return Answer{}, nil
	case string:
		return TextAnswer(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Answer{}, errors.New("数値の形式が不正です")
		}
		return NumberAnswer(f), nil
	case float64:
		return NumberAnswer(v), nil
	case float32:
		return NumberAnswer(float64(v)), nil
	case int:
		return NumberAnswer(float64(v)), nil
	case int32:
		return NumberAnswer(float64(v)), nil
	case int64:
		return NumberAnswer(float64(v)), nil
	case []string:
		return ChoicesAnswer(v), nil
	case []ListItem:
		return ListAnswer(v), nil
	case []any:
		return answerFromSequence(v), nil
	}
	return UnrecognizedAnswer(value), nil
}

func answerFromSequence(values []any) Answer {
	if len(values) == 0 {
		return ChoicesAnswer(nil)
	}
	if strings, ok := allStrings(values); ok {
		return ChoicesAnswer(strings)
	}
	if items, ok := allListItems(values); ok {
		return ListAnswer(items)
	}
	return UnrecognizedAnswer(values)
}

func allStrings(values []any) ([]string, bool) {
	out := make([]string, 0, len(values))
	for _, value := range values {
		s, ok := value.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func allListItems(values []any) ([]ListItem, bool) {
	out := make([]ListItem, 0, len(values))
	for _, value := range values {
		fields, ok := value.(map[string]any)
		if !ok {
			return nil, false
		}
		id, okID := fields["id"].(string)
		text, okValue := fields["value"].(string)
		if !okID || !okValue {
			return nil, false
		}
		out = append(out, ListItem{ID: id, Value: text})
	}
	return out, true
}
