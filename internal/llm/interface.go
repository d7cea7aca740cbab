package llm

import (
	"encoding/json"
	"fmt"
	"os"
)

// Persona describes who the model speaks as when answering. It is a trimmed
// form of the character files used for chat personas.
type Persona struct {
	Name       string   `json:"name"`
	Bio        []string `json:"bio"`
	Topics     []string `json:"topics"`
	Style      Style    `json:"style"`
	Adjectives []string `json:"adjectives"`
	// Assets lists image paths the model may reference literally, e.g. /images/project.png.
	Assets []string `json:"assets"`
}

// Style represents the persona's communication style.
type Style struct {
	All  []string `json:"all"`
	Chat []string `json:"chat"`
}

// LoadPersona reads a persona JSON file. An empty path yields a persona that
// only carries the given name. A non-empty name overrides the file's name.
func LoadPersona(path, name string) (*Persona, error) {
	p := &Persona{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read persona file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("failed to parse persona file %s: %w", path, err)
		}
	}
	if name != "" {
		p.Name = name
	}
	return p, nil
}
