package target

import (
	"bufio"
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"text/template"

	"github.com/google/uuid"

	"surge/internal/runner"
)

// TemplateEngine renders request payload templates. Templates get a fresh
// UUID per request plus helper functions for random data.
type TemplateEngine struct {
	fileCache map[string][]string
	mu        sync.RWMutex
	funcMap   template.FuncMap
}

// TemplateData is passed to the execution context.
type TemplateData struct {
	UUID string
}

// NewTemplateEngine initializes the engine and its functions.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		fileCache: make(map[string][]string),
	}

	e.funcMap = template.FuncMap{
		"randomInt":    e.randomInt,
		"randomUUID":   e.randomUUID,
		"randomChoice": e.randomChoice,
		"randomLine":   e.randomLine,
		"uuid":         e.randomUUID, // Alias
	}

	return e
}

// preprocess converts simple variables {{uuid}} to Go template syntax {{.UUID}}
func (e *TemplateEngine) preprocess(input string) string {
	s := input
	s = strings.ReplaceAll(s, "{{requestID}}", "{{.UUID}}")
	return s
}

// PayloadFunc compiles text into a request-data generator: each invocation
// renders the template with fresh data and returns the resulting string.
// A template with no actions compiles to a generator returning the static
// text, which is still cheap.
func (e *TemplateEngine) PayloadFunc(name, text string) (runner.PayloadFunc, error) {
	t, err := template.New(name).Funcs(e.funcMap).Parse(e.preprocess(text))
	if err != nil {
		return nil, fmt.Errorf("parsing payload template: %w", err)
	}
	return func() any {
		var buf bytes.Buffer
		if err := t.Execute(&buf, TemplateData{UUID: uuid.New().String()}); err != nil {
			// A render failure falls back to the raw text so the request
			// still goes out; the target will see the unrendered body.
			return text
		}
		return buf.String()
	}, nil
}

// --- Functions ---

func (e *TemplateEngine) randomInt(min, max int) int {
	return rand.Intn(max-min) + min
}

func (e *TemplateEngine) randomUUID() string {
	return uuid.New().String()
}

func (e *TemplateEngine) randomChoice(choices ...string) string {
	if len(choices) == 0 {
		return ""
	}
	return choices[rand.Intn(len(choices))]
}

func (e *TemplateEngine) randomLine(filename string) (string, error) {
	e.mu.RLock()
	lines, ok := e.fileCache[filename]
	e.mu.RUnlock()

	if ok {
		if len(lines) == 0 {
			return "", nil
		}
		return lines[rand.Intn(len(lines))], nil
	}

	// Load file (Lazy load)
	e.mu.Lock()
	defer e.mu.Unlock()

	// Double check
	if lines, ok = e.fileCache[filename]; ok {
		if len(lines) == 0 {
			return "", nil
		}
		return lines[rand.Intn(len(lines))], nil
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("failed to read file '%s': %w", filename, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	var loaded []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			loaded = append(loaded, line)
		}
	}

	e.fileCache[filename] = loaded
	if len(loaded) == 0 {
		return "", nil
	}

	return loaded[rand.Intn(len(loaded))], nil
}
