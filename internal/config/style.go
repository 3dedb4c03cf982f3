package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/quake-map-service/internal/domain"
)

// styleFile is the on-disk YAML layout of a breakpoint table:
//
//	breakpoints:
//	  - threshold: 0
//	    color: "#00ff00"
//	  - threshold: 1
//	    color: "#adff2f"
type styleFile struct {
	Breakpoints domain.BreakpointTable `yaml:"breakpoints"`
}

// LoadStyleFile reads and validates a breakpoint table from a YAML file.
func LoadStyleFile(path string) (domain.BreakpointTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read style file: %w", err)
	}
	return ParseStyle(data)
}

// ParseStyle decodes and validates a YAML breakpoint table.
func ParseStyle(data []byte) (domain.BreakpointTable, error) {
	var sf styleFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("decode style: %w", err)
	}
	if err := sf.Breakpoints.Validate(); err != nil {
		return nil, err
	}
	return sf.Breakpoints, nil
}
