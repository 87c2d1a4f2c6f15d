package config

import (
	"fmt"
	"strings"
)

// ValidationError is one offending path/message pair produced while
// loading a configuration document.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors aggregates every ValidationError found during one
// load, rather than surfacing only the first.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, ve := range e {
		msgs = append(msgs, ve.Error())
	}
	return fmt.Sprintf("config validation failed: %s", strings.Join(msgs, "; "))
}

func (e *ValidationErrors) add(path, message string) {
	*e = append(*e, &ValidationError{Path: path, Message: message})
}

// err returns e as an error, or nil if it is empty.
func (e ValidationErrors) err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
