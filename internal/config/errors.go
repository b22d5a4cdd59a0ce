package config

import (
	"fmt"
	"strings"
)

// PermissionError reports a config file or directory the process cannot
// read or write.
type PermissionError struct {
	Path    string
	Op      string // "read" or "write"
	Fix     string // suggested command
	Details string
}

func (e *PermissionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "permission denied (cannot %s config): %s\n", e.Op, e.Path)
	if e.Details != "" {
		b.WriteString(e.Details + "\n")
	}
	b.WriteString("Fix: " + e.Fix)
	return b.String()
}

// ConfigNotFoundError reports a missing config file. Load treats it as
// "use the defaults"; LoadFrom returns it.
type ConfigNotFoundError struct {
	Path string
	Hint string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("config file not found: %s (%s)", e.Path, e.Hint)
}

// InvalidConfigError reports a config that cannot be parsed or fails
// validation. Err holds the parser error, if any.
type InvalidConfigError struct {
	Path    string
	Message string
	Hint    string
	Err     error
}

func (e *InvalidConfigError) Error() string {
	var b strings.Builder
	b.WriteString("invalid config")
	if e.Path != "" {
		b.WriteString(": " + e.Path)
	}
	if e.Message != "" {
		b.WriteString("\n" + e.Message)
	}
	if e.Hint != "" {
		b.WriteString("\nHint: " + e.Hint)
	}
	return b.String()
}

func (e *InvalidConfigError) Unwrap() error {
	return e.Err
}
