package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FolderQueries maps folder names to provider search queries,
// overriding the built-in mapping.
type FolderQueries struct {
	Inbox  string `yaml:"inbox"`
	Sent   string `yaml:"sent"`
	Drafts string `yaml:"drafts"`
	Trash  string `yaml:"trash"`
}

// LoadFolderQueries loads folder query overrides from a YAML file
func LoadFolderQueries(filename string) (*FolderQueries, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read folders file: %w", err)
	}

	var doc struct {
		Folders *FolderQueries `yaml:"folders"`
	}

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse folders file: %w", err)
	}

	if doc.Folders == nil {
		return nil, fmt.Errorf("invalid folders file: missing folders section")
	}

	return doc.Folders, nil
}

// Overrides returns the non-empty entries as a name-to-query map
func (f *FolderQueries) Overrides() map[string]string {
	out := make(map[string]string)
	if f == nil {
		return out
	}
	for name, query := range map[string]string{
		"inbox":  f.Inbox,
		"sent":   f.Sent,
		"drafts": f.Drafts,
		"trash":  f.Trash,
	} {
		if query != "" {
			out[name] = query
		}
	}
	return out
}
