package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a history entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Entry is one line of configuration history.
type Entry struct {
	Time    time.Time
	Level   Level
	RunID   string
	Project string
	Message string
}

// Logbook persists configuration run history to a plain text file so the
// report viewer can show what recent runs did.
type Logbook struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// New creates a logbook that writes to the provided path.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &Logbook{path: path, now: time.Now}, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes entries in one locked write. Zero timestamps are filled in.
func (l *Logbook) Append(entries ...Entry) error {
	if l == nil || len(entries) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var b strings.Builder
	for _, e := range entries {
		if e.Time.IsZero() {
			e.Time = l.now()
		}
		if e.Level == "" {
			e.Level = LevelInfo
		}
		b.WriteString(formatEntry(e))
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("logbook: open %s: %w", l.path, err)
	}
	defer file.Close()
	if _, err := file.WriteString(b.String()); err != nil {
		return fmt.Errorf("logbook: write %s: %w", l.path, err)
	}
	return nil
}

// Tail returns up to maxLines of the most recent entries.
func (l *Logbook) Tail(maxLines int) []string {
	if l == nil || maxLines <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > maxLines {
			lines = lines[1:]
		}
	}
	return lines
}

func formatEntry(e Entry) string {
	run := e.RunID
	if len(run) > 8 {
		run = run[:8]
	}
	subject := e.Project
	if subject == "" {
		subject = "-"
	}
	message := strings.ReplaceAll(strings.TrimSpace(e.Message), "\n", " ")
	return fmt.Sprintf("%s %-5s %s %s %s\n",
		e.Time.UTC().Format(time.RFC3339),
		string(e.Level),
		run,
		subject,
		message,
	)
}
