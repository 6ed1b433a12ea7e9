package entitylink

import (
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/entitylink/entitylink/pkg/assemble"
	"github.com/entitylink/entitylink/pkg/errors"
	"github.com/entitylink/entitylink/pkg/rules"
)

// groupFile is the on-disk shape of a saved group database.
type groupFile struct {
	RunID   string            `yaml:"run_id"`
	SavedAt time.Time         `yaml:"saved_at"`
	Stats   rules.Stats       `yaml:"stats"`
	Groups  []*assemble.Group `yaml:"groups"`
}

// SaveGroups writes a build result's group database to a YAML file so a
// later run can audit it without rebuilding.
func SaveGroups(path string, result *Result) error {
	file := groupFile{
		RunID:   result.RunID,
		SavedAt: time.Now(),
		Stats:   result.Stats,
		Groups:  result.Groups,
	}
	data, err := yaml.MarshalWithOptions(file, yaml.Indent(2))
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapIO("create", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// LoadGroups reads a previously saved group database.
func LoadGroups(path string) ([]*assemble.Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	var file groupFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return file.Groups, nil
}
