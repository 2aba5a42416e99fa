// Package persona loads the bot's personality document.
package persona

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/yuin/goldmark"

	"github.com/mheard/bobbot/internal/markup"
)

const fileName = "personality.md"

// Loader reads the personality markdown from the data directory,
// falling back to the working directory. The rendered plain text is
// cached until the file changes through Save.
type Loader struct {
	dataDir  string
	explicit string
	logger   *slog.Logger

	mu     sync.Mutex
	cached string
	loaded bool
}

// NewLoader creates a loader. A non-empty explicit path is tried before
// the search locations.
func NewLoader(dataDir, explicit string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{dataDir: dataDir, explicit: explicit, logger: logger.With("component", "persona")}
}

// Load returns the personality as plain text, suitable for embedding in
// a system prompt. Markdown structure is rendered and flattened so
// headings and lists survive as readable text. Returns "" when no
// personality file exists.
func (l *Loader) Load() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return l.cached
	}

	raw, path, err := l.read()
	if err != nil {
		l.logger.Debug("no personality file found", "error", err)
		l.cached = ""
		l.loaded = true
		return ""
	}

	text, err := renderPlain(raw)
	if err != nil {
		l.logger.Warn("failed to render personality, using raw markdown", "path", path, "error", err)
		text = strings.TrimSpace(string(raw))
	}

	l.logger.Info("loaded personality", "path", path, "chars", len(text))
	l.cached = text
	l.loaded = true
	return text
}

// Raw returns the personality markdown exactly as stored on disk.
func (l *Loader) Raw() (string, error) {
	raw, _, err := l.read()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Save writes new personality markdown to the data directory and
// invalidates the cache.
func (l *Loader) Save(content string) error {
	path := filepath.Join(l.dataDir, fileName)
	if err := os.MkdirAll(l.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write personality: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("install personality: %w", err)
	}

	l.mu.Lock()
	l.loaded = false
	l.cached = ""
	l.mu.Unlock()
	return nil
}

func (l *Loader) read() ([]byte, string, error) {
	paths := []string{filepath.Join(l.dataDir, fileName), fileName}
	if l.explicit != "" {
		paths = append([]string{l.explicit}, paths...)
	}
	var lastErr error
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err == nil {
			return raw, p, nil
		}
		lastErr = err
	}
	return nil, "", lastErr
}

func renderPlain(md []byte) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert(md, &buf); err != nil {
		return "", err
	}
	return markup.StripHTML(buf.String()), nil
}
