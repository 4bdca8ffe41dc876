package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/1broseidon/deskgrid/internal/ipc"
)

const (
	minCellWidth = 4
	maxCellWidth = 14
)

var (
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	fileStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	folderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	specialStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	selectedStyle = lipgloss.NewStyle().Reverse(true)
)

func runGrid(args []string) int {
	fs := newFlagSet("grid", "grid [--width N]", "Draw the icon grid of every monitor surface.")
	width := fs.Int("width", 0, "Output width in columns (default: terminal width)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	client := ipc.NewClient()
	surfaces, err := client.GetSurfaces()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	icons, err := client.ListIcons()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	w := *width
	if w <= 0 {
		w = terminalWidth()
	}
	fmt.Print(renderGrid(surfaces, icons.Icons, w))
	return 0
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 120
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

// cellWidth fits cols cells (plus separators) into width.
func cellWidth(cols, width int) int {
	if cols <= 0 {
		return maxCellWidth
	}
	w := width/cols - 1
	if w < minCellWidth {
		return minCellWidth
	}
	if w > maxCellWidth {
		return maxCellWidth
	}
	return w
}

// truncate shortens s to n display runes, marking the cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

type gridKey struct {
	surface, col, row int
}

// renderGrid draws one block per surface with a label in every occupied
// cell, followed by the icons that found no cell.
func renderGrid(data *ipc.SurfacesData, icons []ipc.IconInfo, width int) string {
	at := make(map[gridKey]ipc.IconInfo, len(icons))
	var unplaced []string
	for _, icon := range icons {
		if !icon.Placed {
			unplaced = append(unplaced, icon.Name)
			continue
		}
		at[gridKey{icon.Surface, icon.Col, icon.Row}] = icon
	}

	var blocks []string
	for _, s := range data.Surfaces {
		title := fmt.Sprintf("%s  %dx%d+%d+%d  %d×%d cells", s.Name, s.Width, s.Height, s.X, s.Y, s.Columns, s.Rows)
		if s.Primary {
			title += "  (primary)"
		}
		cw := cellWidth(s.Columns, width)
		cell := lipgloss.NewStyle().Width(cw).MarginRight(1)

		rows := []string{headerStyle.Render(title)}
		for row := 0; row < s.Rows; row++ {
			cells := make([]string, 0, s.Columns)
			for col := 0; col < s.Columns; col++ {
				icon, ok := at[gridKey{s.ID, col, row}]
				if !ok {
					cells = append(cells, cell.Render(dimStyle.Render("·")))
					continue
				}
				label := styleFor(icon).Render(truncate(icon.Name, cw))
				if icon.Selected {
					label = selectedStyle.Render(label)
				}
				cells = append(cells, cell.Render(label))
			}
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		}
		blocks = append(blocks, lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	out := strings.Join(blocks, "\n\n") + "\n"
	if len(unplaced) > 0 {
		out += "\n" + dimStyle.Render("unplaced: "+strings.Join(unplaced, ", ")) + "\n"
	}
	return out
}

func styleFor(icon ipc.IconInfo) lipgloss.Style {
	switch {
	case icon.Special:
		return specialStyle
	case icon.IsDir:
		return folderStyle
	default:
		return fileStyle
	}
}
