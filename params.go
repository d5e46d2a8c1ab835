package agentbridge

// Params is the payload delivered to a workflow run. In addition to the
// user's own fields, the payload carries three system fields identifying the
// agent instance that started the run and the workflow binding it was started
// under. The coordinator strips the system fields before user code sees the
// params.
type Params map[string]any

// System field keys injected into run params by the originating agent.
const (
	AgentNameKey      = "__agent_name"
	AgentNamespaceKey = "__agent_namespace"
	WorkflowNameKey   = "__workflow_name"
)

// SystemParams identifies the agent instance that originated a workflow run
// and the workflow binding the run was started under.
type SystemParams struct {
	AgentName      string
	AgentNamespace string
	WorkflowName   string
}

// ParseParams extracts the system fields from run params and returns them
// along with a copy of the params with the system keys stripped. A missing,
// empty, or non-string system field is a fatal configuration error: it is
// reported before any user code executes and is never retried.
func ParseParams(params Params) (SystemParams, Params, error) {
	var sys SystemParams
	fields := []struct {
		key string
		dst *string
	}{
		{AgentNameKey, &sys.AgentName},
		{AgentNamespaceKey, &sys.AgentNamespace},
		{WorkflowNameKey, &sys.WorkflowName},
	}
	for _, field := range fields {
		value, ok := params[field.key].(string)
		if !ok || value == "" {
			return SystemParams{}, nil, &ConfigError{Field: field.key}
		}
		*field.dst = value
	}
	cleaned := make(Params, len(params)-len(fields))
	for key, value := range params {
		switch key {
		case AgentNameKey, AgentNamespaceKey, WorkflowNameKey:
			continue
		}
		cleaned[key] = value
	}
	return sys, cleaned, nil
}
