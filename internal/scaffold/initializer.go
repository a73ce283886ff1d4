// Package scaffold writes the starter files of a mySettle deployment.
package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mysettle/mysettle/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// ConfigFile is the configuration file name written by Initialize.
const ConfigFile = "mysettle.yml"

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize writes mysettle.yml and the report output directory into dir
// and returns the created paths relative to dir.
// If force is true, an existing mysettle.yml is replaced.
func Initialize(dir string, force bool) ([]string, error) {
	if force {
		if err := handleForce(dir); err != nil {
			return nil, err
		}
	} else if err := CheckExisting(dir); err != nil {
		return nil, err
	}

	files, err := getTemplateFiles()
	if err != nil {
		return nil, err
	}

	cfg, err := parseConfig(files[0].Content)
	if err != nil {
		return nil, fmt.Errorf("%s template is invalid: %w", ConfigFile, err)
	}

	created := []string{}
	for _, file := range files {
		if err := os.WriteFile(filepath.Join(dir, file.Path), file.Content, file.Permissions); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
		created = append(created, file.Path)
	}

	// Only relative output directories belong to the project
	if !filepath.IsAbs(cfg.Reports.OutputDir) {
		if err := os.MkdirAll(filepath.Join(dir, cfg.Reports.OutputDir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", cfg.Reports.OutputDir, err)
		}
		created = append(created, cfg.Reports.OutputDir+"/")
	}

	if err := validateCreatedFiles(dir); err != nil {
		return nil, err
	}
	return created, nil
}

// handleForce removes an existing mysettle.yml
func handleForce(dir string) error {
	path := filepath.Join(dir, ConfigFile)
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", ConfigFile, err)
		}
	}
	return nil
}

// getTemplateFiles reads all template files
func getTemplateFiles() ([]FileInfo, error) {
	content, err := templatesFS.ReadFile("templates/mysettle.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read %s template: %w", ConfigFile, err)
	}

	return []FileInfo{{
		Path:        ConfigFile,
		Content:     content,
		Permissions: 0644,
	}}, nil
}

// parseConfig reads a config file over the defaults and validates it,
// without environment overrides.
func parseConfig(content []byte) (*config.Config, error) {
	cfg := config.Default()
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("not valid YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateCreatedFiles checks the written mysettle.yml loads cleanly
func validateCreatedFiles(dir string) error {
	content, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	if err != nil {
		return fmt.Errorf("failed to read created %s: %w", ConfigFile, err)
	}

	if _, err := parseConfig(content); err != nil {
		return fmt.Errorf("created %s is invalid: %w", ConfigFile, err)
	}
	return nil
}

// CheckExisting returns an error if dir already holds a mysettle.yml.
func CheckExisting(dir string) error {
	if _, err := os.Stat(filepath.Join(dir, ConfigFile)); err == nil {
		return fmt.Errorf("project already initialized\n\nFound existing: %s\n\nUse 'mysettle init --force' to reinitialize (this will overwrite existing configuration)", ConfigFile)
	}
	return nil
}
