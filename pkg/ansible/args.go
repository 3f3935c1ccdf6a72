package ansible

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// checkModeKey is the internal argument Ansible sets when running with --check
	checkModeKey = "_ansible_check_mode"
	// wrapperKey wraps the arguments when a module is run by hand the way
	// Ansible's own test harness does it
	wrapperKey = "ANSIBLE_MODULE_ARGS"
)

// Args holds the decoded module arguments file
type Args struct {
	// Params are the user supplied module parameters, internals removed
	Params map[string]interface{}
	// CheckMode is true when Ansible asked for a dry run
	CheckMode bool
}

// LoadArgs reads the arguments file Ansible passes to binary modules
func LoadArgs(path string) (*Args, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read module arguments: %w", err)
	}
	return ParseArgs(data)
}

// ParseArgs decodes a JSON (or YAML) arguments document
func ParseArgs(data []byte) (*Args, error) {
	raw := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse module arguments: %w", err)
	}
	if wrapped, ok := raw[wrapperKey].(map[string]interface{}); ok && len(raw) == 1 {
		raw = wrapped
	}

	args := &Args{Params: make(map[string]interface{}, len(raw))}
	for key, value := range raw {
		if key == checkModeKey {
			checkMode, err := toBool(value)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", checkModeKey, err)
			}
			args.CheckMode = checkMode
			continue
		}
		if strings.HasPrefix(key, "_ansible_") {
			continue
		}
		args.Params[key] = value
	}

	return args, nil
}
