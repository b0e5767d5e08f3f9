// Package feature defines the pluggable command features and the registry
// that syncs them to storage and gates their execution.
//
// Features are compiled in. Each one declares a Descriptor (name, scope,
// description, commands) and handles invocations routed to it by command.
// Enablement lives in the database so admins can toggle features at runtime
// without redeploying.
package feature

import (
	"context"

	"daddygpt/internal/domain"
)

// Descriptor declares a feature's identity and the commands that invoke it.
type Descriptor struct {
	Name        string   // canonical lowercase name, e.g. "youtube"
	Scope       string   // domain.ScopeUser or domain.ScopeAdmin
	Description string
	Commands    []string // without the leading slash; first is canonical
}

// Responder sends a feature's output back to the originating chat.
type Responder interface {
	Reply(ctx context.Context, text string) error
	SendAudio(ctx context.Context, path, caption string) error
	SendVideo(ctx context.Context, path, caption string) error
	SendDocument(ctx context.Context, path, caption string) error
	ChatAction(ctx context.Context, action string) error
}

// Request is one feature invocation.
type Request struct {
	ChatID   int64
	ChatType string
	UserID   int64
	Username string
	Admin    bool
	Command  string // matched command, without the leading slash
	Args     string // raw text after the command, may be empty
}

// Feature is a runnable unit of optional functionality.
type Feature interface {
	Descriptor() Descriptor
	Handle(ctx context.Context, req Request, out Responder) error
}

// Store is the subset of storage the registry needs.
type Store interface {
	EnsureFeature(name, scope, description string, commands []string, enabledDefault bool) error
	GetFeature(name string) (*domain.Feature, error)
	FeaturesGlobalEnabled() bool
	IsFeatureEnabled(name string) (bool, error)
}
