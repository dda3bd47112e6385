package main

import (
	"fmt"

	"github.com/chazu/slotbridge/bridge"
	"github.com/chazu/slotbridge/layout"
	"github.com/chazu/slotbridge/manifest"
	"github.com/chazu/slotbridge/server"
)

// runServe registers the builtin modules, pinned to any stored plans, and
// serves them until the listener fails.
func runServe(m *manifest.Manifest) error {
	b, err := newServeBridge(m)
	if err != nil {
		return err
	}
	srv := server.New(b)
	defer srv.Stop()
	return srv.ListenAndServe(m.Server.Addr)
}

func newServeBridge(m *manifest.Manifest) (*bridge.Bridge, error) {
	plans, err := storedPlans(m, builtinPackages)
	if err != nil {
		return nil, err
	}
	b := bridge.New(bridge.WithPlan(plans...))
	if err := registerBuiltins(b); err != nil {
		return nil, fmt.Errorf("registering builtins: %w", err)
	}
	return b, nil
}

// storedPlans loads the plans that exist for packages.
func storedPlans(m *manifest.Manifest, packages []string) ([]*layout.Plan, error) {
	store, err := m.OpenStore()
	if err != nil {
		return nil, fmt.Errorf("opening plan store: %w", err)
	}
	defer store.Close()

	var plans []*layout.Plan
	for _, pkg := range packages {
		p, err := layout.LoadOrEmpty(store, pkg)
		if err != nil {
			return nil, fmt.Errorf("loading plan for %s: %w", pkg, err)
		}
		if p != nil {
			plans = append(plans, p)
		}
	}
	return plans, nil
}
