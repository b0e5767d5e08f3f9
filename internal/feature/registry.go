package feature

import (
	"strings"

	"daddygpt/internal/domain"
)

// Verdict is the outcome of gating one feature invocation.
type Verdict int

const (
	// Allowed means the feature may run for this sender.
	Allowed Verdict = iota
	// DeniedUnknown means no such feature is registered.
	DeniedUnknown
	// DeniedAdminOnly means the feature's scope excludes regular users.
	DeniedAdminOnly
	// DeniedGlobal means the admin switched all features off.
	DeniedGlobal
	// DeniedDisabled means this particular feature is switched off.
	DeniedDisabled
)

// Registry holds the compiled-in features, keyed by command, and answers
// gating questions against the store.
type Registry struct {
	store      Store
	features   []Feature
	byCommand  map[string]Feature
	loadErrors []string
}

// NewRegistry collects the given features. Constructors that failed should
// be reported via AddLoadError so admins can see broken features in the
// listing instead of them silently disappearing.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store, byCommand: make(map[string]Feature)}
}

// Register adds a feature and indexes its commands.
func (r *Registry) Register(f Feature) {
	r.features = append(r.features, f)
	for _, cmd := range f.Descriptor().Commands {
		cmd = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cmd), "/"))
		if cmd != "" {
			r.byCommand[cmd] = f
		}
	}
}

// AddLoadError records a feature that could not be constructed.
func (r *Registry) AddLoadError(name string, err error) {
	r.loadErrors = append(r.loadErrors, name+": "+err.Error())
}

// LoadErrors returns construction failures for the admin feature listing.
func (r *Registry) LoadErrors() []string { return r.loadErrors }

// Features returns the registered features in registration order.
func (r *Registry) Features() []Feature { return r.features }

// Sync ensures every registered feature has a row in storage, keeping any
// enabled toggle an admin already set while refreshing the metadata.
func (r *Registry) Sync() error {
	for _, f := range r.features {
		d := f.Descriptor()
		scope := d.Scope
		if scope == "" {
			scope = domain.ScopeUser
		}
		if err := r.store.EnsureFeature(d.Name, scope, d.Description, d.Commands, true); err != nil {
			return err
		}
	}
	return nil
}

// ByCommand returns the feature handling cmd (without slash), or nil.
func (r *Registry) ByCommand(cmd string) Feature {
	return r.byCommand[strings.ToLower(strings.TrimPrefix(cmd, "/"))]
}

// Gate decides whether the sender may run the named feature right now.
// Admins bypass scope and the global switch but still honor the
// per-feature toggle, so an admin can verify a disabled feature really is
// off.
func (r *Registry) Gate(name string, admin bool) (Verdict, error) {
	row, err := r.store.GetFeature(name)
	if err != nil {
		return DeniedUnknown, err
	}
	if row == nil {
		return DeniedUnknown, nil
	}
	if !admin {
		scope := row.Scope
		if scope == "" {
			scope = domain.ScopeUser
		}
		if scope == domain.ScopeAdmin {
			return DeniedAdminOnly, nil
		}
		if !r.store.FeaturesGlobalEnabled() {
			return DeniedGlobal, nil
		}
	}
	enabled, err := r.store.IsFeatureEnabled(name)
	if err != nil {
		return DeniedDisabled, err
	}
	if !enabled {
		return DeniedDisabled, nil
	}
	return Allowed, nil
}

// DenialText maps a gating verdict to the user-facing refusal message.
// Allowed maps to the empty string.
func DenialText(v Verdict, name string) string {
	switch v {
	case DeniedUnknown:
		return "Unknown feature: " + name
	case DeniedAdminOnly:
		return "Admin only."
	case DeniedGlobal:
		return "All features are currently disabled by admin."
	case DeniedDisabled:
		return "This feature is currently disabled."
	default:
		return ""
	}
}
