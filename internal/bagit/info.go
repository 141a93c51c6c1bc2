package bagit

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Info is the ordered label/value metadata written to bag-info.txt
// ahead of the generated fields.
type Info struct {
	Fields []Field
}

// Field is one bag-info label/value pair.
type Field struct {
	Label string
	Value string
}

// reservedLabels are generated at finalization time and cannot come
// from a profile.
var reservedLabels = map[string]bool{
	"Bagging-Date":       true,
	"Payload-Oxum":       true,
	"Bag-Software-Agent": true,
}

// LoadInfo reads a YAML mapping of bag-info labels to scalar values,
// keeping document order. Repeated labels are allowed, as bag-info
// permits them.
func LoadInfo(path string) (Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("read bag-info profile: %w", err)
	}
	info, err := parseInfo(data)
	if err != nil {
		return Info{}, fmt.Errorf("bag-info profile %s: %w", path, err)
	}
	return info, nil
}

func parseInfo(data []byte) (Info, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Info{}, err
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return Info{}, nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return Info{}, errors.New("want a mapping of labels to values")
	}
	var info Info
	for i := 0; i+1 < len(doc.Content); i += 2 {
		k, v := doc.Content[i], doc.Content[i+1]
		label := strings.TrimSpace(k.Value)
		if label == "" {
			return Info{}, fmt.Errorf("empty label at line %d", k.Line)
		}
		if reservedLabels[label] {
			return Info{}, fmt.Errorf("%s is generated at finalization and cannot be overridden", label)
		}
		if v.Kind != yaml.ScalarNode {
			return Info{}, fmt.Errorf("%s: want a scalar value", label)
		}
		info.Fields = append(info.Fields, Field{Label: label, Value: v.Value})
	}
	return info, nil
}
