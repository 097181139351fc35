package questionset

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// FormatError indicates the question-set JSON does not conform to the
// expected format.
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("question set format: %v", e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func compiled() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		defBytes, err := json.Marshal(setSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema definition: %w", err)
			return
		}
		var def any
		if err := json.Unmarshal(defBytes, &def); err != nil {
			compileErr = fmt.Errorf("parse schema definition: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		const schemaURL = "schema://question-set.json"
		if err := c.AddResource(schemaURL, def); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(schemaURL)
	})
	return compiledSchema, compileErr
}

// Parse validates and decodes a question set from JSON bytes.
func Parse(data []byte) (*Set, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &FormatError{Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	schema, err := compiled()
	if err != nil {
		return nil, fmt.Errorf("compile question-set schema: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return nil, &FormatError{Err: err}
	}

	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, &FormatError{Err: err}
	}

	normalize(&set)
	if err := checkSemantics(&set); err != nil {
		return nil, &FormatError{Err: err}
	}
	return &set, nil
}

// LoadFile reads and parses a question set from a JSON file on disk.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question set: %w", err)
	}
	return Parse(data)
}

// checkSemantics enforces the cross-field rules the schema cannot:
// unique question ids, unique choice ids per question, and answer keys
// that reference only existing choices.
func checkSemantics(set *Set) error {
	seenQ := make(map[string]bool, len(set.Questions))
	for i := range set.Questions {
		q := &set.Questions[i]
		if seenQ[q.ID] {
			return fmt.Errorf("duplicate question id: %s", q.ID)
		}
		seenQ[q.ID] = true

		seenC := make(map[string]bool, len(q.Choices))
		for _, c := range q.Choices {
			if seenC[c.ID] {
				return fmt.Errorf("duplicate choice id in question %s: %s", q.ID, c.ID)
			}
			seenC[c.ID] = true
		}

		for _, id := range q.AnswerChoiceIDs {
			if !seenC[id] {
				return fmt.Errorf("question %s: answer key references unknown choice id: %s", q.ID, id)
			}
		}
	}
	return nil
}

// normalize trims whitespace from answer-key entries and drops empty ones,
// matching the loose input the format has historically accepted.
func normalize(set *Set) {
	for i := range set.Questions {
		q := &set.Questions[i]
		if q.AnswerChoiceIDs == nil {
			continue
		}
		out := q.AnswerChoiceIDs[:0]
		for _, id := range q.AnswerChoiceIDs {
			if t := strings.TrimSpace(id); t != "" {
				out = append(out, t)
			}
		}
		if len(out) == 0 {
			q.AnswerChoiceIDs = nil
		} else {
			q.AnswerChoiceIDs = out
		}
	}
}
