package profile

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// SkillCategory is one entry of the skills mapping, e.g.
// "programming_languages" → ["Go", "Python"].
type SkillCategory struct {
	Key    string
	Skills []string
}

// Skills is the category → skills mapping of a profile. Categories keep the
// order in which the document lists them.
type Skills []SkillCategory

// UnmarshalYAML decodes a mapping node pair by pair so the category order
// survives decoding. JSON documents go through the same path.
func (s *Skills) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: skills must be a mapping of category to list", node.Line)
	}

	out := make(Skills, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return fmt.Errorf("line %d: decoding skill category: %w", node.Content[i].Line, err)
		}
		var list []string
		if err := node.Content[i+1].Decode(&list); err != nil {
			return fmt.Errorf("skills.%s: %w", key, err)
		}
		out = append(out, SkillCategory{Key: key, Skills: list})
	}
	*s = out
	return nil
}

// MarshalJSON writes the categories as a JSON object in their original order.
func (s Skills) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c.Key)
		if err != nil {
			return nil, err
		}
		list := c.Skills
		if list == nil {
			list = []string{}
		}
		v, err := json.Marshal(list)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
