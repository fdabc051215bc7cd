package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"trendlens/internal/domain"
)

// Format names an input encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".jsonl", ".ndjson":
		return FormatJSONL, true
	case ".yaml", ".yml":
		return FormatYAML, true
	}
	return "", false
}

// Decode reads post records. JSON input may be an array or a single object.
func Decode(r io.Reader, format Format) ([]Record, error) {
	switch format {
	case FormatJSON:
		return decodeJSON(r)
	case FormatJSONL:
		return decodeJSONL(r)
	case FormatYAML:
		return decodeYAML(r)
	}
	return nil, domain.InvalidArgument("unknown input format %q", format)
}

func decodeJSON(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if data[0] == '{' {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return []Record{rec}, nil
	}
	var recs []Record
	if err := dec.Decode(&recs); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return recs, nil
}

func decodeJSONL(r io.Reader) ([]Record, error) {
	var recs []Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode jsonl line %d: %w", line, err)
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

func decodeYAML(r io.Reader) ([]Record, error) {
	var node yaml.Node
	if err := yaml.NewDecoder(r).Decode(&node); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	doc := &node
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	switch doc.Kind {
	case yaml.MappingNode:
		var rec Record
		if err := doc.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		return []Record{rec}, nil
	case yaml.SequenceNode:
		var recs []Record
		if err := doc.Decode(&recs); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		return recs, nil
	}
	return nil, fmt.Errorf("decode yaml: expected a mapping or a sequence of posts")
}

// LoadFiles reads and normalizes posts from files. Each argument may be a
// glob; files with unknown extensions are skipped.
func LoadFiles(paths []string, now time.Time, opts ...Option) ([]domain.Post, error) {
	var posts []domain.Post
	found := 0
	for _, p := range paths {
		matches, _ := filepath.Glob(p)
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			format, ok := FormatFromPath(m)
			if !ok {
				continue
			}
			found++
			batch, err := loadFile(m, format, now, opts)
			if err != nil {
				return nil, err
			}
			posts = append(posts, batch...)
		}
	}
	if found == 0 {
		return nil, fmt.Errorf("no .json, .jsonl or .yaml post files found")
	}
	return posts, nil
}

func loadFile(path string, format Format, now time.Time, opts []Option) ([]domain.Post, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	recs, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	posts, err := Posts(recs, now, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return posts, nil
}
