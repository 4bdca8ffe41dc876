package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/1broseidon/deskgrid/internal/ipc"
	"github.com/1broseidon/deskgrid/internal/registry"
)

func runIcons(args []string) int {
	fs := newFlagSet("icons", "icons [--json]", "List desktop icons with their surface, cell and screen position.")
	asJSON := fs.Bool("json", false, "Print JSON")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	data, err := ipc.NewClient().ListIcons()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		return printJSON(data)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tCELL\tPOSITION\tSEL")
	for _, icon := range data.Icons {
		cell, pos := "-", "-"
		if icon.Placed {
			cell = fmt.Sprintf("%d:%d,%d", icon.Surface, icon.Col, icon.Row)
			pos = fmt.Sprintf("%d,%d", icon.X, icon.Y)
		}
		sel := ""
		if icon.Selected {
			sel = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", icon.Name, icon.Kind, cell, pos, sel)
	}
	w.Flush()
	return 0
}

// parseMoves reads repeated "<uri> <x> <y>" triples.
func parseMoves(args []string) ([]ipc.IconMove, error) {
	if len(args) == 0 || len(args)%3 != 0 {
		return nil, fmt.Errorf("expected <uri> <x> <y> triples")
	}
	moves := make([]ipc.IconMove, 0, len(args)/3)
	for i := 0; i < len(args); i += 3 {
		x, err := strconv.Atoi(args[i+1])
		if err != nil {
			return nil, fmt.Errorf("invalid x %q: %w", args[i+1], err)
		}
		y, err := strconv.Atoi(args[i+2])
		if err != nil {
			return nil, fmt.Errorf("invalid y %q: %w", args[i+2], err)
		}
		moves = append(moves, ipc.IconMove{URI: toURI(args[i]), X: x, Y: y})
	}
	return moves, nil
}

// parsePoint reads "x,y".
func parsePoint(s string) (ipc.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return ipc.Point{}, fmt.Errorf("invalid point %q: want x,y", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return ipc.Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return ipc.Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	return ipc.Point{X: x, Y: y}, nil
}

// toURI accepts URIs as-is and turns paths into file URIs.
func toURI(s string) string {
	if strings.Contains(s, "://") {
		return s
	}
	if abs, err := filepath.Abs(s); err == nil {
		return registry.FileURI(abs)
	}
	return s
}

func printDrop(data *ipc.DropData) {
	for _, p := range data.Placed {
		fmt.Printf("placed   %s -> %d:%d,%d\n", p.URI, p.Surface, p.Col, p.Row)
	}
	for _, uri := range data.Unmoved {
		fmt.Printf("unmoved  %s\n", uri)
	}
	for _, uri := range data.Failed {
		fmt.Printf("failed   %s\n", uri)
	}
	for _, uri := range data.Skipped {
		fmt.Printf("skipped  %s\n", uri)
	}
}

func runMove(args []string) int {
	fs := newFlagSet("move", "move <uri|path> <x> <y> [<uri|path> <x> <y>...]",
		"Move icons to the cells under the given screen points.")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	moves, err := parseMoves(fs.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return 2
	}
	data, err := ipc.NewClient().MoveIcons(moves)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	printDrop(data)
	return 0
}

func runDrop(args []string) int {
	fs := newFlagSet("drop", "drop --from X,Y --to X,Y [uri|path...]",
		"Move icons (default: the selection) as a group by the offset between two points.")
	from := fs.String("from", "0,0", "Drag start point")
	to := fs.String("to", "", "Drop point")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	start, err := parsePoint(*from)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	end, err := parsePoint(*to)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	data, err := ipc.NewClient().Drop(toURIs(fs.Args()), start, end)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	printDrop(data)
	return 0
}

func toURIs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = toURI(a)
	}
	return out
}

func runSelect(args []string) int {
	fs := newFlagSet("select", "select [--add] <uri|path...> | select --rect X,Y,W,H",
		"Replace or extend the icon selection.")
	add := fs.Bool("add", false, "Add to the current selection")
	rect := fs.String("rect", "", "Select icons intersecting the rectangle x,y,width,height")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	client := ipc.NewClient()
	var (
		uris []string
		err  error
	)
	if *rect != "" {
		parts := strings.Split(*rect, ",")
		if len(parts) != 4 {
			fmt.Fprintln(os.Stderr, "--rect wants x,y,width,height")
			return 2
		}
		var n [4]int
		for i, p := range parts {
			if n[i], err = strconv.Atoi(strings.TrimSpace(p)); err != nil {
				fmt.Fprintf(os.Stderr, "invalid --rect value %q\n", p)
				return 2
			}
		}
		uris, err = client.SelectRect(n[0], n[1], n[2], n[3])
	} else {
		uris, err = client.Select(toURIs(fs.Args()), *add)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	for _, uri := range uris {
		fmt.Println(uri)
	}
	return 0
}

// runCount runs an IPC command over icons that reports how many it touched.
func runCount(name, about string, args []string, fn func([]string) (int, error)) int {
	fs := newFlagSet(name, name+" [uri|path...]", about)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	n, err := fn(toURIs(fs.Args()))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("%s: %d item(s)\n", name, n)
	return 0
}

func runPaste(args []string) int {
	fs := newFlagSet("paste", "paste [--into FOLDER]", "Paste clipboard files onto the desktop or into a desktop folder.")
	into := fs.String("into", "", "Destination folder icon (URI or path)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	folder := ""
	if *into != "" {
		folder = toURI(*into)
	}
	data, err := ipc.NewClient().Paste(folder)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !data.Valid {
		fmt.Println("clipboard holds no files")
		return 0
	}
	verb := "copied"
	if data.IsCut {
		verb = "moved"
	}
	fmt.Printf("%s %d item(s)\n", verb, len(data.URIs))
	return 0
}

func runShow(args []string) int {
	fs := newFlagSet("show", "show [uri|path...]", "Reveal icons (default: the desktop folder) in the file manager.")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if err := ipc.NewClient().ShowInFiles(toURIs(fs.Args())); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runNewFolder(args []string) int {
	fs := newFlagSet("new-folder", "new-folder [name]", "Create a folder on the desktop, picking a free name.")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "new-folder takes at most one name")
		return 2
	}
	uri, err := ipc.NewClient().NewFolder(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(uri)
	return 0
}
