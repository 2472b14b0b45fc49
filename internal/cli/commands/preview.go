package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/treeline-labs/treeline/internal/cli/output"
	"github.com/treeline-labs/treeline/internal/loader"
	"github.com/treeline-labs/treeline/pkg/core"
)

// PreviewOptions holds options for the preview command.
type PreviewOptions struct {
	Offline bool
}

// PreviewOutput is the JSON shape of a preview result.
type PreviewOutput struct {
	TreeID         string   `json:"tree_id"`
	TotalNodes     int      `json:"total_nodes"`
	TotalEdges     int      `json:"total_edges"`
	ReachableNodes []string `json:"reachable_nodes"`
	ReachableEdges []string `json:"reachable_edges"`
	EstimatedTime  int      `json:"estimated_time_seconds"`
	Source         string   `json:"source"`
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand() *cobra.Command {
	opts := &PreviewOptions{}

	cmd := &cobra.Command{
		Use:   "preview <tree-id>",
		Short: "Preview a validation run",
		Long: `Show which nodes and edges a validation run would cover.

By default the preview is computed by the host backend, which knows the
device's actual pathfinding. With --offline the preview is derived locally
from the snapshot's entry-node reachability instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Offline, "offline", false, "Compute the preview locally without a host")

	return cmd
}

func runPreview(cmd *cobra.Command, treeID string, opts *PreviewOptions) error {
	cfg := getConfig()
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	catalog, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	tree, err := findTree(catalog, treeID)
	if err != nil {
		return err
	}

	var preview *core.ValidationPreview
	source := "host"
	if opts.Offline {
		preview = loader.OfflinePreview(tree)
		source = "offline"
	} else {
		profiles, err := loadProfiles(cfg)
		if err != nil {
			return err
		}
		host, _, err := resolveHost(profiles, cfg)
		if err != nil {
			return err
		}
		c, err := newHostClient(cmd, host)
		if err != nil {
			return err
		}
		preview, err = c.Preview(cmd.Context(), tree.ID)
		if err != nil {
			return fmt.Errorf("preview from %s failed: %w", host.Name, err)
		}
	}

	out := PreviewOutput{
		TreeID:         tree.ID,
		TotalNodes:     preview.TotalNodes,
		TotalEdges:     preview.TotalEdges,
		ReachableNodes: preview.ReachableNodes,
		ReachableEdges: preview.ReachableEdges,
		EstimatedTime:  preview.EstimatedTime,
		Source:         source,
	}

	if r.Mode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, "Validation Preview: "+tree.ID)
	r.Printf("Nodes:     %d/%d reachable\n", len(out.ReachableNodes), out.TotalNodes)
	r.Printf("Edges:     %d/%d reachable\n", len(out.ReachableEdges), out.TotalEdges)
	r.Printf("Estimated: %s (%s)\n", (time.Duration(out.EstimatedTime) * time.Second).String(), source)
	if len(out.ReachableEdges) > 0 {
		r.Println()
		r.Println(r.Styles().Muted.Render("edges: " + strings.Join(out.ReachableEdges, ", ")))
	}
	return nil
}
