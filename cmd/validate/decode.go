package main

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/quake-map-service/internal/domain"
)

// decodeUnvalidated reads a breakpoint table without checking its invariants,
// so the table phase can list every problem.
func decodeUnvalidated(data []byte) (domain.BreakpointTable, error) {
	var sf struct {
		Breakpoints domain.BreakpointTable `yaml:"breakpoints"`
	}
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("decode style: %w", err)
	}
	return sf.Breakpoints, nil
}
