package filesystem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"continuity/internal/domain"
)

// Source implements ports.NovelSource over JSON and YAML files
type Source struct {
	baseDir string
}

// NewSource creates a source resolving relative paths against baseDir.
// An empty baseDir means the working directory.
func NewSource(baseDir string) *Source {
	return &Source{baseDir: ExpandPath(baseDir)}
}

// ExpandPath expands a leading ~ to the home directory
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}

func (s *Source) resolve(path string) string {
	path = ExpandPath(path)
	if s.baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.baseDir, path)
}

// LoadNovel reads a novel state file
func (s *Source) LoadNovel(ctx context.Context, path string) (*domain.NovelState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var state domain.NovelState
	if err := s.decodeFile(s.resolve(path), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// generatedFile is the on-disk form of a generated chapter. The chapter
// text may live in a separate file next to it.
type generatedFile struct {
	domain.GeneratedChapter `yaml:",inline"`
	ContentFile             string `json:"contentFile,omitempty" yaml:"contentFile,omitempty"`
}

// LoadGenerated reads a generated chapter with its extraction payload
func (s *Source) LoadGenerated(ctx context.Context, path string) (*domain.GeneratedChapter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full := s.resolve(path)

	var file generatedFile
	if err := s.decodeFile(full, &file); err != nil {
		return nil, err
	}

	if file.ContentFile != "" {
		contentPath := ExpandPath(file.ContentFile)
		if !filepath.IsAbs(contentPath) {
			contentPath = filepath.Join(filepath.Dir(full), contentPath)
		}
		data, err := os.ReadFile(contentPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read chapter content: %w", err)
		}
		file.Chapter.Content = string(data)
	}

	gen := file.GeneratedChapter
	if gen.Payload.ChapterID == "" {
		gen.Payload.ChapterID = gen.Chapter.ID
	}
	return &gen, nil
}

// decodeFile decodes JSON for .json files and YAML for everything else
func (s *Source) decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	return nil
}
