package executor

import (
	"context"
	"sort"

	"github.com/liyecom/adpilot/internal/models"
)

// RollbackPayload describes how to invert an executed write.
type RollbackPayload struct {
	ActionID string                 `json:"action_id"`
	Inverse  string                 `json:"inverse"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// ActionHandler performs one action type. Apply is the real-write
// boundary: a production deployment plugs the ads-API client in here.
// DryRun must prove the action would succeed without performing any
// write.
type ActionHandler interface {
	ID() string
	Apply(ctx context.Context, proposal models.ActionProposal, params models.ActionParams) (*RollbackPayload, error)
	DryRun(ctx context.Context, proposal models.ActionProposal, params models.ActionParams) error
}

// Registry holds the registered action handlers. The registry is the
// executor's action whitelist: a proposal whose action id is not
// registered is denied before any other check.
type Registry struct {
	handlers map[string]ActionHandler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]ActionHandler)}
}

// Register adds a handler. Later registrations replace earlier ones.
func (r *Registry) Register(handler ActionHandler) {
	r.handlers[handler.ID()] = handler
}

// Get returns the handler for an action id.
func (r *Registry) Get(actionID string) (ActionHandler, bool) {
	h, ok := r.handlers[actionID]
	return h, ok
}

// IDs returns the sorted list of registered action ids, used to report
// valid alternatives on a deny.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
