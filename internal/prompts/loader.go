// Package prompts holds the résumé-structuring prompt text. Each JSON file maps
// prompt keys to text and is compiled into the binary.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

var (
	files   = make(map[string]map[string]string)
	filesMu sync.RWMutex
)

// Get returns the prompt stored under key in the named file.
func Get(filename, key string) (string, error) {
	entries, err := load(filename)
	if err != nil {
		return "", err
	}

	prompt, ok := entries[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return prompt, nil
}

// MustGet is Get for prompts the binary cannot run without.
func MustGet(filename, key string) string {
	prompt, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return prompt
}

// Render returns the prompt under key with every {{.Name}} placeholder replaced
// by data["Name"]. Placeholders without a value are left in place.
func Render(filename, key string, data map[string]string) (string, error) {
	prompt, err := Get(filename, key)
	if err != nil {
		return "", err
	}
	return fill(prompt, data), nil
}

// Lines returns the non-empty trimmed lines of a prompt. Rule lists are stored one per line.
func Lines(filename, key string) ([]string, error) {
	prompt, err := Get(filename, key)
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, line := range strings.Split(prompt, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func fill(prompt string, data map[string]string) string {
	for name, value := range data {
		prompt = strings.ReplaceAll(prompt, "{{."+name+"}}", value)
	}
	return prompt
}

func load(filename string) (map[string]string, error) {
	filesMu.RLock()
	entries, ok := files[filename]
	filesMu.RUnlock()
	if ok {
		return entries, nil
	}

	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	filesMu.Lock()
	files[filename] = entries
	filesMu.Unlock()
	return entries, nil
}

func resetFiles() {
	filesMu.Lock()
	files = make(map[string]map[string]string)
	filesMu.Unlock()
}
