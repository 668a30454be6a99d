package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// WorkspaceUnavailable indicates no usable workspace folder was provided
	WorkspaceUnavailable ErrorCode = "WORKSPACE_UNAVAILABLE"
	// NotAGitRepository indicates the workspace root is not inside a git work tree
	NotAGitRepository ErrorCode = "NOT_A_GIT_REPOSITORY"
	// BackendUnavailable indicates an optional collaborator (git, symbol index) is missing
	BackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	// IndexMissing indicates the SCIP index file was not found
	IndexMissing ErrorCode = "INDEX_MISSING"
	// ParseFailed indicates a manifest, log or index could not be parsed
	ParseFailed ErrorCode = "PARSE_FAILED"
	// ScopeInvalid indicates an invalid file/folder scope parameter
	ScopeInvalid ErrorCode = "SCOPE_INVALID"
	// Timeout indicates an external command timed out
	Timeout ErrorCode = "TIMEOUT"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
	// InstallTool suggests installing a tool
	InstallTool FixActionType = "install-tool"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
	Tool        string        `json:"tool,omitempty"`
}

// ArchError represents an archlens error with code, message, and suggestions
type ArchError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new ArchError
func New(code ErrorCode, message string, cause error, suggestedFixes []FixAction) *ArchError {
	return &ArchError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes,
	}
}

// Error implements the error interface
func (e *ArchError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ArchError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *ArchError) WithDetails(details interface{}) *ArchError {
	e.Details = details
	return e
}

// Is reports whether the target is an ArchError with the same code.
func (e *ArchError) Is(target error) bool {
	t, ok := target.(*ArchError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the first ArchError in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var ae *ArchError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	NotAGitRepository: {
		{
			Type:        RunCommand,
			Command:     "git status",
			Safe:        true,
			Description: "Verify the workspace root is inside a git work tree",
		},
	},
	BackendUnavailable: {
		{
			Type:        InstallTool,
			Tool:        "git",
			Description: "Install git and make sure it is on PATH",
		},
	},
	IndexMissing: {
		{
			Type:        RunCommand,
			Command:     "scip-typescript index --output .scip/index.scip",
			Safe:        true,
			Description: "Generate a SCIP index for workspace symbol lookups",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
