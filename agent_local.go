package agentbridge

import (
	"context"
	"fmt"
	"sync"
)

// LocalAgent is an in-process AgentHandle for tests, examples, and
// single-process deployments. It records delivered callbacks, maintains its
// own state map, and fans callbacks out to subscribers in place of a real
// agent's broadcast mechanism.
type LocalAgent struct {
	name        string
	mutex       sync.RWMutex
	state       map[string]any
	callbacks   []*Callback
	subscribers []chan *Callback
}

// NewLocalAgent creates a LocalAgent with the given instance name.
func NewLocalAgent(name string) *LocalAgent {
	return &LocalAgent{
		name:  name,
		state: map[string]any{},
	}
}

// Name returns the agent instance name.
func (a *LocalAgent) Name() string {
	return a.name
}

// DeliverCallback records the callback and broadcasts it to subscribers.
func (a *LocalAgent) DeliverCallback(ctx context.Context, callback *Callback) error {
	a.mutex.Lock()
	a.callbacks = append(a.callbacks, callback)
	subscribers := make([]chan *Callback, len(a.subscribers))
	copy(subscribers, a.subscribers)
	a.mutex.Unlock()

	for _, subscriber := range subscribers {
		select {
		case subscriber <- callback:
		default:
			// Slow subscribers miss callbacks rather than block the run.
		}
	}
	return nil
}

// SetState replaces the agent state.
func (a *LocalAgent) SetState(ctx context.Context, state map[string]any) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.state = copyMap(state)
	return nil
}

// MergeState merges the given fields into the agent state.
func (a *LocalAgent) MergeState(ctx context.Context, partial map[string]any) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	for key, value := range partial {
		a.state[key] = value
	}
	return nil
}

// ResetState clears the agent state.
func (a *LocalAgent) ResetState(ctx context.Context) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.state = map[string]any{}
	return nil
}

// State returns a copy of the agent's current state.
func (a *LocalAgent) State() map[string]any {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return copyMap(a.state)
}

// Callbacks returns the callbacks delivered so far, in order.
func (a *LocalAgent) Callbacks() []*Callback {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	callbacks := make([]*Callback, len(a.callbacks))
	copy(callbacks, a.callbacks)
	return callbacks
}

// CallbacksOfType returns the delivered callbacks matching the given type.
func (a *LocalAgent) CallbacksOfType(callbackType CallbackType) []*Callback {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	var matched []*Callback
	for _, callback := range a.callbacks {
		if callback.Type == callbackType {
			matched = append(matched, callback)
		}
	}
	return matched
}

// Subscribe returns a channel receiving future callbacks. The channel is
// buffered; callbacks are dropped rather than delivered late when the buffer
// is full.
func (a *LocalAgent) Subscribe() <-chan *Callback {
	subscriber := make(chan *Callback, 64)
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.subscribers = append(a.subscribers, subscriber)
	return subscriber
}

// LocalResolver resolves agent handles registered in-process, keyed by
// namespace and instance name.
type LocalResolver struct {
	mutex  sync.RWMutex
	agents map[string]AgentHandle
}

// NewLocalResolver creates an empty LocalResolver.
func NewLocalResolver() *LocalResolver {
	return &LocalResolver{agents: map[string]AgentHandle{}}
}

func resolverKey(namespace, name string) string {
	return namespace + "/" + name
}

// Register makes an agent resolvable under the given namespace and name.
func (r *LocalResolver) Register(namespace, name string, handle AgentHandle) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.agents[resolverKey(namespace, name)] = handle
}

// Resolve returns the handle registered under the namespace and name.
func (r *LocalResolver) Resolve(ctx context.Context, namespace, name string) (AgentHandle, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	handle, ok := r.agents[resolverKey(namespace, name)]
	if !ok {
		return nil, fmt.Errorf("no agent registered for %s/%s", namespace, name)
	}
	return handle, nil
}

// copyMap returns a shallow copy of a map.
func copyMap(m map[string]any) map[string]any {
	copied := make(map[string]any, len(m))
	for key, value := range m {
		copied[key] = value
	}
	return copied
}
