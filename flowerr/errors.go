// Package flowerr defines the error taxonomy shared by the loader, the
// transformer and the generator.
package flowerr

import (
	"fmt"
	"strings"
)

// ErrorType defines the category of the error.
type ErrorType string

const (
	TypeSyntax          ErrorType = "SyntaxError"
	TypeGraph           ErrorType = "GraphError"
	TypeGenerationInput ErrorType = "GenerationInputError"
	TypeValidation      ErrorType = "ValidationError"
)

// FlowError is the interface for all flowc errors.
type FlowError interface {
	error
	Type() ErrorType
}

// BaseError provides common fields for flowc errors.
type BaseError struct {
	Msg     string
	ErrType ErrorType
}

func (e *BaseError) Error() string {
	return fmt.Sprintf("[%s] %s", e.ErrType, e.Msg)
}

func (e *BaseError) Type() ErrorType {
	return e.ErrType
}

// SyntaxError is raised when a source file cannot be parsed or transpiled.
type SyntaxError struct {
	BaseError
	FilePath string
	Line     int
	Column   int
}

func (e *SyntaxError) Error() string {
	if e.FilePath != "" {
		return fmt.Sprintf("[%s] %s:%d:%d %s", e.ErrType, e.FilePath, e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("[%s] line %d:%d %s", e.ErrType, e.Line, e.Column, e.Msg)
}

// GraphError is a fatal module resolution failure. Path is the module that
// was being loaded, Specifier the import that failed (either may be empty).
type GraphError struct {
	BaseError
	Path      string
	Specifier string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("[%s] %s", e.ErrType, e.Msg)
}

// GenerationInputError reports author mistakes detected while the DSL is
// being defined, such as a malformed request document.
type GenerationInputError struct {
	BaseError
}

// ValidationError lists the Model paths that failed shape or reference checks.
type ValidationError struct {
	BaseError
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return e.BaseError.Error()
	}
	return fmt.Sprintf("[%s] %s: %s", e.ErrType, e.Msg, strings.Join(e.Issues, "; "))
}

// MultiError collects multiple flowc errors.
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d error(s) occurred:\n", len(m.Errors)))
	for _, err := range m.Errors {
		sb.WriteString(fmt.Sprintf("- %v\n", err))
	}
	return sb.String()
}

func (m *MultiError) Type() ErrorType {
	if len(m.Errors) > 0 {
		if fe, ok := m.Errors[0].(FlowError); ok {
			return fe.Type()
		}
	}
	return "MultiError"
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// NewSyntaxError creates a new SyntaxError.
func NewSyntaxError(line, column int, msg string) *SyntaxError {
	return &SyntaxError{
		BaseError: BaseError{
			Msg:     msg,
			ErrType: TypeSyntax,
		},
		Line:   line,
		Column: column,
	}
}

// NewSyntaxErrorInFile creates a SyntaxError with file path, line, and column position.
func NewSyntaxErrorInFile(filePath string, line, column int, msg string) *SyntaxError {
	e := NewSyntaxError(line, column, msg)
	e.FilePath = filePath
	return e
}

// NewMissingModuleError reports a virtual file that resolution expected but
// the graph does not contain.
func NewMissingModuleError(path string) *GraphError {
	return &GraphError{
		BaseError: BaseError{
			Msg:     fmt.Sprintf("module %q is not in graph", path),
			ErrType: TypeGraph,
		},
		Path: path,
	}
}

// NewUnresolvedError reports an external specifier nothing could load.
func NewUnresolvedError(from, specifier string) *GraphError {
	msg := fmt.Sprintf("cannot resolve module %q", specifier)
	if from != "" {
		msg += fmt.Sprintf(" imported from %s", from)
	}
	msg += "; install it or add it to the import map"
	return &GraphError{
		BaseError: BaseError{
			Msg:     msg,
			ErrType: TypeGraph,
		},
		Path:      from,
		Specifier: specifier,
	}
}

// NewGenerationInputError creates a new GenerationInputError.
func NewGenerationInputError(msg string) *GenerationInputError {
	return &GenerationInputError{
		BaseError: BaseError{
			Msg:     msg,
			ErrType: TypeGenerationInput,
		},
	}
}

// NewValidationError creates a ValidationError carrying the individual issues.
func NewValidationError(msg string, issues []string) *ValidationError {
	return &ValidationError{
		BaseError: BaseError{
			Msg:     msg,
			ErrType: TypeValidation,
		},
		Issues: issues,
	}
}
