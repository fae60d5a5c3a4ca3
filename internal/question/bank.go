package question

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// bankSchema validates each per-level question file before anything is
// trusted from it.
const bankSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "array",
	"items": {
		"type": "object",
		"required": ["id", "type", "prompt"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"type": {"type": "string", "minLength": 1},
			"level": {"type": "string"},
			"prompt": {"type": "string", "minLength": 1},
			"metadata": {
				"type": "object",
				"additionalProperties": {"type": "string"}
			}
		}
	}
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func compiledBankSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var parsed any
		if err := json.Unmarshal([]byte(bankSchema), &parsed); err != nil {
			schemaErr = fmt.Errorf("parse bank schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("schema://question-bank.json", parsed); err != nil {
			schemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile("schema://question-bank.json")
	})
	return compiledSchema, schemaErr
}

// Bank holds the loaded question pool, grouped by level and type.
type Bank struct {
	byLevel map[string]map[Type][]Question
}

// NewBank builds a bank from an in-memory question list. Levels missing
// from the IDs must be set on the questions themselves.
func NewBank(questions ...Question) *Bank {
	b := &Bank{byLevel: make(map[string]map[Type][]Question)}
	for _, q := range questions {
		if q.Level == "" {
			q.Level = levelFromID(q.ID, "")
		}
		b.add(q)
	}
	return b
}

// LoadBank reads a1.json … c2.json from dir, validating each file against
// the bank schema. Missing level files are skipped; an empty bank is an
// error.
func LoadBank(dir string) (*Bank, error) {
	b := &Bank{byLevel: make(map[string]map[Type][]Question)}

	for _, level := range Levels {
		path := filepath.Join(dir, strings.ToLower(level)+".json")
		raw, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := b.loadFile(raw, level); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if len(b.byLevel) == 0 {
		return nil, fmt.Errorf("no question files found in %s", dir)
	}
	return b, nil
}

func (b *Bank) loadFile(raw []byte, fileLevel string) error {
	schema, err := compiledBankSchema()
	if err != nil {
		return err
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(parsed); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	var questions []Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return fmt.Errorf("decode questions: %w", err)
	}

	for _, q := range questions {
		if !KnownType(q.Type) {
			// Non-spoken variants live in the same files; skip them.
			continue
		}
		if q.Level == "" {
			q.Level = levelFromID(q.ID, fileLevel)
		}
		if err := q.validate(); err != nil {
			return err
		}
		b.add(q)
	}
	return nil
}

func (b *Bank) add(q Question) {
	if b.byLevel[q.Level] == nil {
		b.byLevel[q.Level] = make(map[Type][]Question)
	}
	b.byLevel[q.Level][q.Type] = append(b.byLevel[q.Level][q.Type], q)
}

// levelFromID extracts the level prefix from IDs like "A1-RS-001".
func levelFromID(id, fallback string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return strings.ToUpper(id[:i])
	}
	return fallback
}

// Select draws up to n random questions of the given level and type,
// without repeats within the draw.
func (b *Bank) Select(level string, t Type, n int, rng *rand.Rand) []Question {
	pool := b.byLevel[level][t]
	if n <= 0 || len(pool) == 0 {
		return nil
	}
	if n > len(pool) {
		n = len(pool)
	}
	idx := rng.Perm(len(pool))[:n]
	out := make([]Question, 0, n)
	for _, i := range idx {
		out = append(out, pool[i])
	}
	return out
}

// Count returns how many questions exist for a level and type.
func (b *Bank) Count(level string, t Type) int {
	return len(b.byLevel[level][t])
}

// HasLevel reports whether any questions were loaded for the level.
func (b *Bank) HasLevel(level string) bool {
	return len(b.byLevel[level]) > 0
}

// FallbackBank returns a minimal in-memory bank so the exam stays usable
// when no question files are installed.
func FallbackBank() *Bank {
	return NewBank(
		Question{
			ID:     "A1-OR-001",
			Type:   TypeOpenResponse,
			Level:  "A1",
			Prompt: "Please introduce yourself.",
		},
		Question{
			ID:     "A1-RS-001",
			Type:   TypeRepeatSentence,
			Level:  "A1",
			Prompt: "Repeat: Hello, my name is John.",
			Metadata: map[string]string{
				"expectedText": "Hello, my name is John.",
			},
		},
	)
}
