package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/treeline-labs/treeline/internal/cli/output"
	"github.com/treeline-labs/treeline/internal/loader"
	"github.com/treeline-labs/treeline/pkg/core"
)

// TreeInfo is the JSON shape for one catalog entry.
type TreeInfo struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Nodes          int    `json:"nodes"`
	Edges          int    `json:"edges"`
	ReachableEdges int    `json:"reachable_edges"`
	HasEntry       bool   `json:"has_entry"`
}

// NewTreesCommand creates the trees command.
func NewTreesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "trees",
		Short: "List tree snapshots",
		Long:  `List the navigation tree snapshots found in the trees directory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig()
			mode := output.Mode(cfg.OutputFormat)
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

			catalog, err := openCatalog(cfg)
			if err != nil {
				return err
			}

			infos := make([]TreeInfo, 0, len(catalog.List()))
			for _, tree := range catalog.List() {
				_, reachable := loader.Reachable(tree)
				infos = append(infos, TreeInfo{
					ID:             tree.ID,
					Name:           tree.Name,
					Nodes:          len(tree.Nodes),
					Edges:          len(tree.Edges),
					ReachableEdges: len(reachable),
					HasEntry:       tree.EntryNode() != nil,
				})
			}

			if r.Mode() == output.ModeJSON {
				return r.JSON(infos)
			}

			r.Header(1, fmt.Sprintf("Trees (%d total)", len(infos)))
			if len(infos) == 0 {
				r.Println(r.Styles().Muted.Render("no tree snapshots in " + cfg.TreesDir))
				return nil
			}

			t := table.NewWriter()
			t.AppendHeader(table.Row{"ID", "Name", "Nodes", "Edges", "Reachable", "Entry"})
			for _, info := range infos {
				entry := "yes"
				if !info.HasEntry {
					entry = "no"
				}
				t.AppendRow(table.Row{info.ID, info.Name, info.Nodes, info.Edges, info.ReachableEdges, entry})
			}
			renderTable(r, t)
			return nil
		},
	}
}

// renderTable writes a go-pretty table in the renderer's mode.
func renderTable(r *output.Renderer, t table.Writer) {
	if r.Mode() == output.ModeMarkdown {
		r.Println(t.RenderMarkdown())
		return
	}
	t.SetStyle(table.StyleLight)
	r.Println(t.Render())
}

// statusStyle maps a confidence status to its renderer style.
func statusStyle(r *output.Renderer, s core.Status) string {
	switch s {
	case core.StatusHigh:
		return r.Styles().StatusHigh.Render(string(s))
	case core.StatusMedium:
		return r.Styles().StatusMedium.Render(string(s))
	case core.StatusLow:
		return r.Styles().StatusLow.Render(string(s))
	default:
		return r.Styles().Muted.Render(string(s))
	}
}
