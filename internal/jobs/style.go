package jobs

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// StyleConfig tunes the drafted message voice. It lives in a YAML file so
// operators can adjust tone without a rebuild.
type StyleConfig struct {
	Tone     string   `yaml:"tone"`
	SignOff  string   `yaml:"sign_off"`
	MaxWords int      `yaml:"max_words"`
	Avoid    []string `yaml:"avoid"`
}

// LoadStyle reads a drafting style file.
func LoadStyle(path string) (*StyleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "jobs: read style file %s", path)
	}

	// The YAML has a top-level "style" key.
	var wrapper struct {
		Style StyleConfig `yaml:"style"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "jobs: parse style file")
	}

	style := wrapper.Style
	if style.MaxWords <= 0 {
		style.MaxWords = 120
	}
	return &style, nil
}

// promptAddendum renders the style as extra drafter instructions.
func (s *StyleConfig) promptAddendum() string {
	var b strings.Builder
	b.WriteString("Style requirements:\n")
	if s.Tone != "" {
		fmt.Fprintf(&b, "- Tone: %s\n", s.Tone)
	}
	fmt.Fprintf(&b, "- Keep the body under %d words.\n", s.MaxWords)
	if s.SignOff != "" {
		fmt.Fprintf(&b, "- Sign off with: %s\n", s.SignOff)
	}
	if len(s.Avoid) > 0 {
		fmt.Fprintf(&b, "- Never use these phrases: %s\n", strings.Join(s.Avoid, ", "))
	}
	return b.String()
}
