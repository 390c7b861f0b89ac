package fileutil

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileExists checks if a file exists at the given path
func FileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// WriteFileWithOverwrite writes data to a file, respecting the overwrite flag
// Returns true if the file was written, false if it was skipped
func WriteFileWithOverwrite(filePath string, data []byte, perm os.FileMode, overwrite bool) (bool, error) {
	if FileExists(filePath) && !overwrite {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return false, err
	}

	if err := os.WriteFile(filePath, data, perm); err != nil {
		return false, err
	}

	return true, nil
}

// WriteJSONFile writes data as indented JSON, respecting the overwrite flag
func WriteJSONFile(data any, filePath string, overwrite bool) (bool, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return writeEncoded(filePath, jsonData, "JSON", overwrite)
}

// WriteYAMLFile writes data as YAML, respecting the overwrite flag
func WriteYAMLFile(data any, filePath string, overwrite bool) (bool, error) {
	yamlData, err := yaml.Marshal(data)
	if err != nil {
		return false, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return writeEncoded(filePath, yamlData, "YAML", overwrite)
}

// WriteStructuredFile picks YAML for .yaml/.yml paths and JSON otherwise
func WriteStructuredFile(data any, filePath string, overwrite bool) (bool, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		return WriteYAMLFile(data, filePath, overwrite)
	default:
		return WriteJSONFile(data, filePath, overwrite)
	}
}

func writeEncoded(filePath string, data []byte, format string, overwrite bool) (bool, error) {
	if FileExists(filePath) && !overwrite {
		slog.Info(format+" file already exists, skipping", "filename", filePath, "overwrite", overwrite)
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}

	slog.Info("Writing "+format+" file", "filename", filePath, "overwrite", overwrite)
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return false, fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return true, nil
}
