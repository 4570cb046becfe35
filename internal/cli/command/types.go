package command

import (
	"fmt"
	"os"
	"strings"
)

// Target selects which service a command talks to.
type Target int

const (
	TargetGateway Target = iota
	TargetCheck
)

// Field defines a CLI input field.
type Field struct {
	Name     string
	Prompt   string
	Required bool
}

// Command defines a CLI command binding.
type Command struct {
	Service string
	Action  string
	Method  string
	Path    string
	Target  Target
	Fields  []Field
}

// RequestSpec is the built HTTP request.
type RequestSpec struct {
	Method string
	Path   string
	Target Target
	Body   []byte
}

// Params holds parsed key=value input.
type Params map[string]string

func (p Params) Get(key string) string {
	return p[strings.ToLower(key)]
}

func (p Params) Set(key, value string) {
	p[strings.ToLower(key)] = value
}

func (p Params) Has(key string) bool {
	_, ok := p[strings.ToLower(key)]
	return ok
}

// ReadFile loads file contents for *_file parameters.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file failed: %w", err)
	}
	return string(data), nil
}
