package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/deskgrid/internal/config"
	"github.com/1broseidon/deskgrid/internal/daemon"
	"github.com/1broseidon/deskgrid/internal/ipc"
	"gopkg.in/yaml.v3"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "icons":
		os.Exit(runIcons(os.Args[2:]))
	case "grid":
		os.Exit(runGrid(os.Args[2:]))
	case "rescan":
		os.Exit(runSimple("rescan", "Re-read the desktop directory.", os.Args[2:], ipc.NewClient().Rescan))
	case "move":
		os.Exit(runMove(os.Args[2:]))
	case "drop":
		os.Exit(runDrop(os.Args[2:]))
	case "select":
		os.Exit(runSelect(os.Args[2:]))
	case "copy":
		os.Exit(runCount("copy", "Copy icons (default: the selection) to the clipboard.", os.Args[2:], ipc.NewClient().Copy))
	case "cut":
		os.Exit(runCount("cut", "Cut icons (default: the selection) to the clipboard.", os.Args[2:], ipc.NewClient().Cut))
	case "paste":
		os.Exit(runPaste(os.Args[2:]))
	case "trash":
		os.Exit(runCount("trash", "Move icons (default: the selection) to the trash.", os.Args[2:], ipc.NewClient().Trash))
	case "open":
		os.Exit(runCount("open", "Open icons (default: the selection) with their default handler.", os.Args[2:], ipc.NewClient().Open))
	case "properties":
		os.Exit(runCount("properties", "Show the file manager's properties dialog.", os.Args[2:], ipc.NewClient().Properties))
	case "show":
		os.Exit(runShow(os.Args[2:]))
	case "undo":
		os.Exit(runSimple("undo", "Undo the last file operation.", os.Args[2:], ipc.NewClient().Undo))
	case "redo":
		os.Exit(runSimple("redo", "Redo the last undone file operation.", os.Args[2:], ipc.NewClient().Redo))
	case "new-folder":
		os.Exit(runNewFolder(os.Args[2:]))
	case "terminal":
		os.Exit(runSimple("terminal", "Open a terminal in the desktop directory.", os.Args[2:], ipc.NewClient().OpenTerminal))
	case "reload":
		os.Exit(runSimple("reload", "Reload the daemon configuration.", os.Args[2:], ipc.NewClient().Reload))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: deskgrid <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the deskgrid daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  reload              Reload the daemon configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  icons               List desktop icons and their cells")
	fmt.Fprintln(w, "  grid                Draw the icon grid of every monitor")
	fmt.Fprintln(w, "  rescan              Re-read the desktop directory")
	fmt.Fprintln(w, "  move                Move icons to screen points")
	fmt.Fprintln(w, "  drop                Move icons as a group by an offset")
	fmt.Fprintln(w, "  select              Select icons by URI or rectangle")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  copy                Copy icons to the clipboard")
	fmt.Fprintln(w, "  cut                 Cut icons to the clipboard")
	fmt.Fprintln(w, "  paste               Paste clipboard files onto the desktop")
	fmt.Fprintln(w, "  trash               Move icons to the trash")
	fmt.Fprintln(w, "  open                Open icons")
	fmt.Fprintln(w, "  show                Reveal icons in the file manager")
	fmt.Fprintln(w, "  properties          Show file properties")
	fmt.Fprintln(w, "  new-folder          Create a folder on the desktop")
	fmt.Fprintln(w, "  undo                Undo the last file operation")
	fmt.Fprintln(w, "  redo                Redo the last undone file operation")
	fmt.Fprintln(w, "  terminal            Open a terminal in the desktop directory")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'deskgrid <command> --help' for command-specific options.")
}

// newFlagSet returns a flag set whose usage prints usage and about.
func newFlagSet(name, usage, about string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: deskgrid "+usage)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, about)
		fs.PrintDefaults()
	}
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

func runDaemon(args []string) int {
	fs := newFlagSet("daemon", "daemon [--config PATH]", "Run the desktop icon daemon in the foreground.")
	path := fs.String("config", "", "Config file path (default: ~/.config/deskgrid/config.yaml)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	d, err := daemon.New(daemon.Options{ConfigPath: *path})
	if err != nil {
		log.Printf("Failed to start daemon: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := d.Run(ctx); err != nil {
		log.Printf("Daemon error: %v", err)
		return 1
	}
	return 0
}

func runStatus(args []string) int {
	fs := newFlagSet("status", "status", "Show daemon status via IPC.")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("daemon_running: %v\n", status.DaemonRunning)
	fmt.Printf("desktop_dir:    %s\n", status.DesktopDir)
	fmt.Printf("icon_count:     %d\n", status.IconCount)
	fmt.Printf("placed_count:   %d\n", status.PlacedCount)
	fmt.Printf("surface_count:  %d\n", status.SurfaceCount)
	fmt.Printf("cell_size:      %d\n", status.CellSize)
	fmt.Printf("selected_count: %d\n", status.SelectedCount)
	fmt.Printf("undo_status:    %s\n", status.UndoStatus)
	fmt.Printf("uptime_seconds: %d\n", status.UptimeSeconds)
	for _, uri := range status.Unplaced {
		fmt.Printf("unplaced:       %s\n", uri)
	}
	return 0
}

// runSimple runs an IPC command that takes no arguments and returns nothing.
func runSimple(name, about string, args []string, fn func() error) int {
	fs := newFlagSet(name, name, about)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "%s takes no arguments\n", name)
		fs.Usage()
		return 2
	}
	if err := fn(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func printJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func loadResult(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  deskgrid config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  deskgrid config print [--path PATH] [--defaults|--sources]")
		fmt.Fprintln(os.Stderr, "  deskgrid config explain [--path PATH] <yaml.path>")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/deskgrid/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if _, err := loadResult(*path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/deskgrid/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		printSources := fs.Bool("sources", false, "Print every setting with where it came from")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		if *printDefaults {
			return printYAML(config.DefaultConfig())
		}
		res, err := loadResult(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if *printSources {
			for _, p := range config.Paths() {
				value, src, err := config.Explain(res, p)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					return 1
				}
				fmt.Printf("%-28s %-40v # %s\n", p, value, config.FormatSource(src))
			}
			return 0
		}
		for _, f := range res.Files {
			fmt.Printf("# file: %s\n", f)
		}
		return printYAML(res.Config)

	case "explain":
		fs := flag.NewFlagSet("explain", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/deskgrid/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "explain requires <yaml.path>")
			return 2
		}
		queryPath := fs.Arg(0)

		res, err := loadResult(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		value, src, err := config.Explain(res, queryPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		out, err := yaml.Marshal(value)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("path: %s\n", queryPath)
		fmt.Printf("source: %s\n", config.FormatSource(src))
		fmt.Printf("value:\n%s", string(out))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func printYAML(v any) int {
	data, err := yaml.Marshal(v)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Print(string(data))
	return 0
}
