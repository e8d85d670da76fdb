package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// AnswerEntry is one question id with its answer.
type AnswerEntry struct {
	QuestionID string
	Answer     Answer
}

// ModuleAnswers は 1 モジュール分の回答。質問の並び順を保持する。
type ModuleAnswers struct {
	entries []AnswerEntry
}

// NewModuleAnswers builds module answers from ordered entries. A repeated id keeps its first position
// and the last value.
func NewModuleAnswers(entries ...AnswerEntry) ModuleAnswers {
	var m ModuleAnswers
	for _, entry := range entries {
		m = m.With(entry.QuestionID, entry.Answer)
	}
	return m
}

// Get returns the answer for questionID.
func (m ModuleAnswers) Get(questionID string) (Answer, bool) {
	for _, entry := range m.entries {
		if entry.QuestionID == questionID {
			return entry.Answer, true
		}
	}
	return Answer{}, false
}

// With returns a copy holding answer for questionID. Existing questions keep their position.
func (m ModuleAnswers) With(questionID string, answer Answer) ModuleAnswers {
	entries := make([]AnswerEntry, len(m.entries), len(m.entries)+1)
	copy(entries, m.entries)
	for i := range entries {
		if entries[i].QuestionID == questionID {
			entries[i].Answer = answer
			return ModuleAnswers{entries: entries}
		}
	}
	entries = append(entries, AnswerEntry{QuestionID: questionID, Answer: answer})
	return ModuleAnswers{entries: entries}
}

// Entries returns the ordered entries.
func (m ModuleAnswers) Entries() []AnswerEntry {
	return append([]AnswerEntry(nil), m.entries...)
}

func (m ModuleAnswers) Len() int { return len(m.entries) }

// Equal compares entries in order.
func (m ModuleAnswers) Equal(other ModuleAnswers) bool {
	if len(m.entries) != len(other.entries) {
		return false
	}
	for i := range m.entries {
		if m.entries[i].QuestionID != other.entries[i].QuestionID || !m.entries[i].Answer.Equal(other.entries[i].Answer) {
			return false
		}
	}
	return true
}

// MarshalJSON writes an object whose keys follow question order.
func (m ModuleAnswers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range m.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.QuestionID)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(entry.Answer)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object keeping the key order of the payload.
func (m *ModuleAnswers) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	token, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return errors.New("モジュールの回答はオブジェクトで指定してください")
	}
	var result ModuleAnswers
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return err
		}
		key, ok := keyToken.(string)
		if !ok {
			return fmt.Errorf("不正なキーです: %v", keyToken)
		}
		var answer Answer
		if err := decoder.Decode(&answer); err != nil {
			return fmt.Errorf("質問 %s の回答が不正です: %w", key, err)
		}
		result = result.With(key, answer)
	}
	if _, err := decoder.Token(); err != nil {
		return err
	}
	*m = result
	return nil
}

// FormData は領域の入力内容全体。モジュール ID → 質問 ID → 回答。
// 値として扱い、更新は常にコピーを返す。
type FormData struct {
	modules map[string]ModuleAnswers
}

// NewFormData builds form data from a module map.
func NewFormData(modules map[string]ModuleAnswers) FormData {
	copied := make(map[string]ModuleAnswers, len(modules))
	for id, answers := range modules {
		copied[id] = answers
	}
	return FormData{modules: copied}
}

// Module returns the answers recorded for moduleID.
func (f FormData) Module(moduleID string) ModuleAnswers {
	return f.modules[moduleID]
}

// Answer returns the answer at [moduleID][questionID].
func (f FormData) Answer(moduleID, questionID string) (Answer, bool) {
	answers, ok := f.modules[moduleID]
	if !ok {
		return Answer{}, false
	}
	return answers.Get(questionID)
}

// With returns a copy holding answer at [moduleID][questionID].
func (f FormData) With(moduleID, questionID string, answer Answer) FormData {
	copied := make(map[string]ModuleAnswers, len(f.modules)+1)
	for id, answers := range f.modules {
		copied[id] = answers
	}
	copied[moduleID] = copied[moduleID].With(questionID, answer)
	return FormData{modules: copied}
}

// ModuleIDs returns module ids in lexical order so output is stable.
func (f FormData) ModuleIDs() []string {
	ids := make([]string, 0, len(f.modules))
	for id := range f.modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (f FormData) IsEmpty() bool { return len(f.modules) == 0 }

// Equal compares every module and question pair.
func (f FormData) Equal(other FormData) bool {
	if len(f.modules) != len(other.modules) {
		return false
	}
	for id, answers := range f.modules {
		otherAnswers, ok := other.modules[id]
		if !ok || !answers.Equal(otherAnswers) {
			return false
		}
	}
	return true
}

func (f FormData) MarshalJSON() ([]byte, error) {
	if f.modules == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(f.modules)
}

func (f *FormData) UnmarshalJSON(data []byte) error {
	var modules map[string]ModuleAnswers
	if err := json.Unmarshal(data, &modules); err != nil {
		return err
	}
	*f = NewFormData(modules)
	return nil
}
