package process

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProcessConfig binds an action name to an external command.
type ProcessConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Timeout     string            `yaml:"timeout" json:"timeout"`
	Description string            `yaml:"description" json:"description"`
}

type toolsFile struct {
	Tools []ProcessConfig `yaml:"tools" json:"tools"`
}

// LoadTools reads a tools file and indexes its entries by action name.
// Files ending in .json are decoded as JSON, anything else as YAML.
// Entries without a name are skipped; a missing file is an empty registry.
func LoadTools(path string) (map[string]ProcessConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]ProcessConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tools: %w", err)
	}

	unmarshal := yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".json") {
		unmarshal = json.Unmarshal
	}
	var file toolsFile
	if err := unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	tools := make(map[string]ProcessConfig, len(file.Tools))
	for _, tool := range file.Tools {
		if tool.Name == "" {
			continue
		}
		if err := tool.validate(); err != nil {
			return nil, fmt.Errorf("tool %q: %w", tool.Name, err)
		}
		tools[tool.Name] = tool
	}
	return tools, nil
}

func (c ProcessConfig) validate() error {
	if c.Command == "" {
		return errors.New("command is required")
	}
	_, err := c.timeout()
	return err
}

// timeout is zero when unset.
func (c ProcessConfig) timeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	return d, nil
}
