package entities

import (
	"os"
	"sort"

	"github.com/goccy/go-yaml"

	"github.com/entitylink/entitylink/pkg/errors"
)

// universeFile is the on-disk shape of an entity universe.
type universeFile struct {
	Entities []*Entity `yaml:"entities"`
}

// LoadUniverse reads an entity universe from a YAML file. Source and kind
// values are normalized; records without a key are rejected.
func LoadUniverse(path string) (*Universe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var file universeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}

	for i, e := range file.Entities {
		if e.Key == "" {
			return nil, errors.NewParseError("yaml", path,
				"entity record without a key", nil)
		}
		file.Entities[i].Source = ParseSource(string(e.Source))
		file.Entities[i].Kind = ParseKind(string(e.Kind))
	}
	return NewUniverse(file.Entities...), nil
}

// SaveUniverse writes an entity universe to a YAML file. Intended for
// tests and fixtures; the real universe is produced upstream.
func SaveUniverse(path string, u *Universe) error {
	keys := u.Keys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	file := universeFile{Entities: make([]*Entity, 0, len(keys))}
	for _, k := range keys {
		file.Entities = append(file.Entities, u.Get(k))
	}
	data, err := yaml.MarshalWithOptions(file, yaml.Indent(2))
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
