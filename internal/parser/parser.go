// Package parser converts raw command arguments from the host application
// into domain structs. Parsing is pure: no storage, no caches, no callbacks.
package parser

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/geoviewer/camsync/pkg/core"
)

// parseUintFromFloat parses a string that may be an integer ("32") or float ("32.00") into uint64.
// Hosts with a float-only scripting layer serialize whole numbers as floats.
func parseUintFromFloat(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != float64(uint64(f)) {
		return 0, fmt.Errorf("parseUintFromFloat: %q is not a valid uint64", s)
	}
	return uint64(f), nil
}

// parseIntFromFloat parses a string that may be an integer or float into int64.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

// Service is the parsing surface the command handlers consume.
type Service interface {
	ParseSession(data []string) (core.Session, error)
	ParseView(data []string) (core.AbstractView, error)
	ParseGeneralEvent(data []string) (core.GeneralEvent, error)
}

// Parser provides pure []string -> domain struct conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger

	// Tag applied to sessions that announce none, set at creation time
	defaultTag string
}

// NewParser creates a new parser with only a logger dependency.
func NewParser(logger *slog.Logger, defaultTag string) *Parser {
	return &Parser{
		logger:     logger,
		defaultTag: defaultTag,
	}
}
