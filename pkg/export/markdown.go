package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultOutputDir = "research"
	maxSlugLength    = 60
)

var (
	ErrTargetNotFound = errors.New("target project directory does not exist")

	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// MarkdownSaver writes research reports as markdown files inside a project
// directory: <target>/<OutputDir>/<yyyymmdd-hhmmss>-<slug>.md.
type MarkdownSaver struct {
	OutputDir string
	Now       func() time.Time
}

func NewMarkdownSaver(outputDir string) *MarkdownSaver {
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	return &MarkdownSaver{OutputDir: outputDir, Now: time.Now}
}

func (m *MarkdownSaver) Save(ctx context.Context, target, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	root, err := expandHome(strings.TrimSpace(target))
	if err != nil {
		return "", err
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrTargetNotFound, root)
	}

	dir := filepath.Join(root, m.OutputDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	name := fmt.Sprintf("%s-%s.md", m.Now().Format("20060102-150405"), Slug(firstHeading(content)))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

// Slug lower-cases s and keeps runs of ASCII letters and digits joined by dashes.
func Slug(s string) string {
	slug := strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		return "report"
	}
	return slug
}

func firstHeading(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			heading := strings.TrimSpace(strings.TrimLeft(line, "#"))
			return strings.TrimSpace(strings.TrimPrefix(heading, "Research:"))
		}
	}
	return ""
}

func expandHome(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrTargetNotFound)
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
	}
	return p, nil
}
