// slotbridge CLI - plans slot layouts for Go packages and serves a bridge
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/slotbridge/manifest"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	dir := flag.String("C", ".", "Directory to search for slotbridge.toml")
	addr := flag.String("addr", "", "Server address (overrides [server] addr, used with serve)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: slotbridge [options] <command> [args...]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  plan [packages...]   Assign slots to the types of Go packages and store the plans\n")
		fmt.Fprintf(os.Stderr, "  show <package>       Print a stored plan\n")
		fmt.Fprintf(os.Stderr, "  serve                Serve the builtin modules over Connect\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  slotbridge plan                  # all [[wrap]] packages from slotbridge.toml\n")
		fmt.Fprintf(os.Stderr, "  slotbridge -v plan encoding/json # single package, ad-hoc\n")
		fmt.Fprintf(os.Stderr, "  slotbridge show strings\n")
		fmt.Fprintf(os.Stderr, "  slotbridge -addr :8080 serve\n")
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	m, err := loadManifest(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading manifest: %v\n", err)
		os.Exit(1)
	}

	verbosity := m.Log.Verbosity
	if *verbose && verbosity < 2 {
		verbosity = 2
	}
	commonlog.Configure(verbosity, m.LogPath())

	switch args[0] {
	case "plan":
		err = runPlan(m, args[1:], *verbose, os.Stdout)
	case "show":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "Usage: slotbridge show <package>")
			os.Exit(2)
		}
		err = runShow(m, args[1], os.Stdout)
	case "serve":
		if *addr != "" {
			m.Server.Addr = *addr
		}
		err = runServe(m)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", args[0])
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadManifest finds slotbridge.toml at or above dir, falling back to the
// defaults rooted at dir.
func loadManifest(dir string) (*manifest.Manifest, error) {
	m, err := manifest.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return manifest.Default(dir)
	}
	return m, nil
}
