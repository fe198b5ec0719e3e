package ir

import (
	"errors"
	"fmt"
)

// ConfigError represents a configuration error detected before or during
// evaluation. Configuration errors are fatal: evaluation never starts, or
// aborts, when one is returned.
//
// Empty results are never errors. A branch with no candidates is pruned and
// a query with no satisfying assignment returns an empty result set.
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Message is a human-readable description.
	Message string

	// Relation names the offending relation, if any.
	Relation string

	// Attribute names the offending attribute, if any.
	Attribute Attribute

	// Bag identifies the offending decomposition bag, if any.
	Bag string
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// CodeArity indicates a relation whose schema is not binary.
	CodeArity ConfigErrorCode = "ARITY"

	// CodeUnknownAttribute indicates a reference to an attribute missing
	// from a relation schema or the query attribute list.
	CodeUnknownAttribute ConfigErrorCode = "UNKNOWN_ATTRIBUTE"

	// CodeUnknownRelation indicates a reference to a relation that is not
	// loaded or not indexed.
	CodeUnknownRelation ConfigErrorCode = "UNKNOWN_RELATION"

	// CodeUncoveredVariable indicates a variable that no relation in scope
	// mentions, so it could never be bound.
	CodeUncoveredVariable ConfigErrorCode = "UNCOVERED_VARIABLE"

	// CodeDuplicate indicates a name declared twice.
	CodeDuplicate ConfigErrorCode = "DUPLICATE"

	// CodeCycle indicates a decomposition whose parent links form a cycle.
	CodeCycle ConfigErrorCode = "CYCLE"

	// CodeUnreachable indicates a bag not reachable from the root.
	CodeUnreachable ConfigErrorCode = "UNREACHABLE"

	// CodeNoRoot indicates a decomposition without a root bag.
	CodeNoRoot ConfigErrorCode = "NO_ROOT"

	// CodeMultipleRoots indicates more than one bag without a parent.
	CodeMultipleRoots ConfigErrorCode = "MULTIPLE_ROOTS"

	// CodeBadLink indicates parent and children lists that disagree.
	CodeBadLink ConfigErrorCode = "BAD_LINK"

	// CodeDisconnected indicates a variable whose bags do not form a
	// connected subtree.
	CodeDisconnected ConfigErrorCode = "DISCONNECTED_VARIABLE"

	// CodeIncompleteCover indicates a query relation or attribute that no
	// bag covers.
	CodeIncompleteCover ConfigErrorCode = "INCOMPLETE_COVER"
)

// NewConfigError creates a ConfigError with a formatted message.
func NewConfigError(code ConfigErrorCode, format string, args ...any) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithRelation records the offending relation.
func (e *ConfigError) WithRelation(name string) *ConfigError {
	e.Relation = name
	return e
}

// WithAttribute records the offending attribute.
func (e *ConfigError) WithAttribute(a Attribute) *ConfigError {
	e.Attribute = a
	return e
}

// WithBag records the offending bag.
func (e *ConfigError) WithBag(id string) *ConfigError {
	e.Bag = id
	return e
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Bag != "" {
		return fmt.Sprintf("%s: %s (bag=%s)", e.Code, e.Message, e.Bag)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConfigError returns true if err is, or wraps, a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// HasCode returns true if err is, or wraps, a ConfigError with the given code.
func HasCode(err error, code ConfigErrorCode) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}
