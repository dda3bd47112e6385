package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/chazu/slotbridge/layout"
	"github.com/chazu/slotbridge/manifest"
)

// runPlan processes the `slotbridge plan` subcommand.
// Usage:
//
//	slotbridge plan                # all [[wrap]] packages from slotbridge.toml
//	slotbridge plan encoding/json  # single package, ad-hoc
//
// Each package is planned against its stored plan so existing members keep
// their slots.
func runPlan(m *manifest.Manifest, packages []string, verbose bool, w io.Writer) error {
	if len(packages) == 0 {
		packages = m.Packages()
	}
	if len(packages) == 0 {
		return errors.New("no packages given and no [[wrap]] entries in slotbridge.toml")
	}

	store, err := m.OpenStore()
	if err != nil {
		return fmt.Errorf("opening plan store: %w", err)
	}
	defer store.Close()

	for _, pkg := range packages {
		model, err := layout.Introspect(pkg, m.Include(pkg))
		if err != nil {
			return fmt.Errorf("introspecting %s: %w", pkg, err)
		}
		previous, err := layout.LoadOrEmpty(store, model.ImportPath)
		if err != nil {
			return fmt.Errorf("loading previous plan for %s: %w", pkg, err)
		}
		plan, err := layout.PlanPackage(model, previous)
		if err != nil {
			return fmt.Errorf("planning %s: %w", pkg, err)
		}
		if err := store.Save(plan); err != nil {
			return fmt.Errorf("saving plan for %s: %w", pkg, err)
		}

		fmt.Fprintf(w, "%s: %d functions, %d types\n", plan.Package, len(model.Functions), len(model.Types))
		if verbose {
			printPlan(w, plan)
		}
	}
	return nil
}

// runShow prints the stored plan for pkg.
func runShow(m *manifest.Manifest, pkg string, w io.Writer) error {
	store, err := m.OpenStore()
	if err != nil {
		return fmt.Errorf("opening plan store: %w", err)
	}
	defer store.Close()

	plan, err := store.Load(pkg)
	if errors.Is(err, layout.ErrPlanNotFound) {
		return fmt.Errorf("no plan for %s (run `slotbridge plan %s` first)", pkg, pkg)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s\n", plan.Package)
	printPlan(w, plan)
	return nil
}

func printPlan(w io.Writer, plan *layout.Plan) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, tl := range plan.Types {
		fmt.Fprintf(tw, "  %s\n", tl.Name)
		for _, a := range tl.Slots {
			fmt.Fprintf(tw, "    %s\t%s\t%s\t%s\n", a.ID, a.Kind, a.HostName, a.Signature)
		}
	}
	tw.Flush()
}
