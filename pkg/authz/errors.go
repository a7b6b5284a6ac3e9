package authz

import (
	"errors"
	"fmt"
)

// ErrorKind tags the four flat error kinds this engine can surface. There is
// no inheritance between kinds — every failure is exactly one of these.
type ErrorKind int

const (
	// KindParseError means the DSL text failed the §4.1 grammar.
	KindParseError ErrorKind = iota
	// KindNamespaceNotFound means check/expand targeted an unconfigured namespace.
	KindNamespaceNotFound
	// KindRelationNotFound means a relation referenced (top-level or inside a
	// rewrite's traversal) is absent from its resolved namespace.
	KindRelationNotFound
	// KindStorageError wraps a Store write/delete/read failure.
	KindStorageError
)

func (k ErrorKind) String() string {
	switch k {
	case KindParseError:
		return "ParseError"
	case KindNamespaceNotFound:
		return "NamespaceNotFound"
	case KindRelationNotFound:
		return "RelationNotFound"
	case KindStorageError:
		return "StorageError"
	default:
		return "UnknownError"
	}
}

// Error is the engine's single error type; Kind distinguishes the four cases
// from spec §7. Use errors.As to recover it and IsKind to test the kind.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewParseError builds a ParseError carrying a human-readable message that
// should include line/column per spec §4.1.
func NewParseError(message string) *Error {
	return &Error{Kind: KindParseError, Message: message}
}

// NewNamespaceNotFound builds a NamespaceNotFound error for the given namespace name.
func NewNamespaceNotFound(namespace string) *Error {
	return &Error{Kind: KindNamespaceNotFound, Message: fmt.Sprintf("namespace %q not found", namespace)}
}

// NewRelationNotFound builds a RelationNotFound error for relation within namespace.
func NewRelationNotFound(relation, namespace string) *Error {
	return &Error{Kind: KindRelationNotFound, Message: fmt.Sprintf("relation %q not found in namespace %q", relation, namespace)}
}

// NewStorageError wraps a backend failure (AlreadyExists, NotFound, or any
// other store error) as the single StorageError kind.
func NewStorageError(message string, cause error) *Error {
	return &Error{Kind: KindStorageError, Message: message, Cause: cause}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
