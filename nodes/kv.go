package nodes

import (
	"context"
	"fmt"

	"vortex"
	"vortex/kv"
)

// NewKVReadNode builds a node that pulls a value from the store and writes
// it into the component under outputKey.
func NewKVReadNode(name string, store kv.Store, key, outputKey string) *vortex.Node {
	component := name
	return vortex.NewNode(vortex.NodeConfig{
		Name:      name,
		Component: component,
		Dispatch: func(_ context.Context, _ any, _ map[string]any) (any, error) {
			if store == nil {
				return nil, fmt.Errorf("kv store not configured for node %s", name)
			}
			value, err := store.Get(key)
			if err != nil {
				return nil, err
			}
			return string(value), nil
		},
		Postlude: func(_ context.Context, shared *vortex.SharedContext, _, execRes any, _ map[string]any) (string, error) {
			shared.Component(component)[outputKey] = execRes
			return "", nil
		},
	})
}

// NewKVWriteNode builds a node that persists the component value under
// inputKey into the store at key.
func NewKVWriteNode(name string, store kv.Store, key, inputKey string) *vortex.Node {
	component := name
	return vortex.NewNode(vortex.NodeConfig{
		Name:      name,
		Component: component,
		Prelude: func(_ context.Context, shared *vortex.SharedContext, _ map[string]any) (any, error) {
			value, ok := shared.Component(component)[inputKey]
			if !ok {
				return nil, fmt.Errorf("input key %s missing for node %s", inputKey, name)
			}
			return fmt.Sprintf("%v", value), nil
		},
		Dispatch: func(_ context.Context, prepRes any, _ map[string]any) (any, error) {
			if store == nil {
				return nil, fmt.Errorf("kv store not configured for node %s", name)
			}
			str, _ := prepRes.(string)
			return nil, store.Put(key, []byte(str))
		},
	})
}

func init() {
	Register(Definition{
		ID:          "kv_read",
		Description: "Pulls a string from a KV store into the node's component.",
		Example:     `nodes.NewKVReadNode("load", store, "key", "loaded")`,
	})
	Register(Definition{
		ID:          "kv_write",
		Description: "Persists a component value into the KV store.",
		Example:     `nodes.NewKVWriteNode("persist", store, "key", "value")`,
	})
}
