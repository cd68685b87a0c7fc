package core

import "fmt"

// ErrorKind is the closed set of failure kinds the core ever produces.
//
// A flat enum in place of an exception hierarchy: recoverability and
// default handling are methods on the variant, not subclass
// polymorphism.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindWhitelistProtected
	KindAccessDenied
	KindSizeComputationTimedOut
	KindLLMAuth
	KindLLMRateLimited
	KindLLMConnection
	KindLLMTimeout
	KindLLMQuotaExceeded
	KindLLMParseError
	KindCircuitOpen
	KindBackupFailed
	KindDeleteFailed
	KindDirectoryNotEmpty
	KindDiskFull
	KindFileNotFound
	KindPermissionDenied
	KindFileInUse
)

func (k ErrorKind) String() string {
	switch k {
	case KindWhitelistProtected:
		return "WhitelistProtected"
	case KindAccessDenied:
		return "AccessDenied"
	case KindSizeComputationTimedOut:
		return "SizeComputationTimedOut"
	case KindLLMAuth:
		return "LLMAuth"
	case KindLLMRateLimited:
		return "LLMRateLimited"
	case KindLLMConnection:
		return "LLMConnection"
	case KindLLMTimeout:
		return "LLMTimeout"
	case KindLLMQuotaExceeded:
		return "LLMQuotaExceeded"
	case KindLLMParseError:
		return "LLMParseError"
	case KindCircuitOpen:
		return "CircuitOpen"
	case KindBackupFailed:
		return "BackupFailed"
	case KindDeleteFailed:
		return "DeleteFailed"
	case KindDirectoryNotEmpty:
		return "DirectoryNotEmpty"
	case KindDiskFull:
		return "DiskFull"
	case KindFileNotFound:
		return "FileNotFound"
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindFileInUse:
		return "FileInUse"
	default:
		return "Unknown"
	}
}

// Recoverable reports whether this kind can be retried locally. It is
// advisory only: callers still decide whether retrying makes sense given
// remaining budget.
func (k ErrorKind) Recoverable() bool {
	switch k {
	case KindAccessDenied, KindSizeComputationTimedOut,
		KindLLMRateLimited, KindLLMConnection, KindLLMTimeout,
		KindLLMParseError, KindDirectoryNotEmpty, KindFileNotFound:
		return true
	default:
		return false
	}
}

// CoreError is the single error type every core component returns.
//
// It carries the failing Kind, a human-readable message, the Path (if
// any) the error concerns, and the wrapped cause (if any).
type CoreError struct {
	Kind    ErrorKind
	Message string
	Path    string
	Cause   error
}

func (e *CoreError) Error() string {
	if e.Path != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s (%s): %v", e.Kind, e.Message, e.Path, e.Cause)
		}
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Path)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Cause }

// NewError constructs a CoreError of the given kind.
func NewError(kind ErrorKind, path, message string, cause error) *CoreError {
	return &CoreError{Kind: kind, Path: path, Message: message, Cause: cause}
}

// AsCoreError extracts a *CoreError from err, if any wraps one.
func AsCoreError(err error) (*CoreError, bool) {
	var ce *CoreError
	for err != nil {
		if c, ok := err.(*CoreError); ok {
			ce = c
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return ce, ce != nil
}
