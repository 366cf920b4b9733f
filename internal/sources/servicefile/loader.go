package servicefile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/pelican/internal/domain"
)

var templateVar = regexp.MustCompile(`\{\{[^}]+\}\}`)

// Loader reads and writes the services.yaml file.
type Loader struct {
	filePath string
}

// NewLoader creates a loader for the given path.
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Path returns the file the loader works on.
func (l *Loader) Path() string {
	return l.filePath
}

// Load reads and parses the services file. A missing file is an empty configuration.
func (l *Loader) Load() ([]domain.ServiceDescriptor, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read services file: %w", err)
	}

	// Strip template variables ({{VAR}}), the value is left empty
	data = stripTemplateVariables(data)

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse services yaml: %w", err)
	}

	return f.Services, nil
}

// Save writes the services atomically so a watcher never observes a partial file.
func (l *Loader) Save(services []domain.ServiceDescriptor) error {
	if services == nil {
		services = []domain.ServiceDescriptor{}
	}
	data, err := yaml.Marshal(File{Services: services})
	if err != nil {
		return fmt.Errorf("failed to marshal services: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create services dir: %w", err)
	}
	if err := renameio.WriteFile(l.filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write services file: %w", err)
	}
	return nil
}

// stripTemplateVariables removes template variables from YAML
// Example: {{PELICAN_VAR_API_URL}} -> ""
func stripTemplateVariables(data []byte) []byte {
	return templateVar.ReplaceAll(data, []byte(`""`))
}
