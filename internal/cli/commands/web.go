package commands

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/treeline-labs/treeline/internal/browser"
	"github.com/treeline-labs/treeline/internal/cli/output"
	"github.com/treeline-labs/treeline/internal/client"
)

// NewWebCommand creates the web command group.
func NewWebCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "web",
		Short: "Drive the host browser",
		Long: `Issue browser automation commands against the selected host.

One-shot subcommands cover navigation and interaction; "repl" opens an
interactive console with history and completion.`,
		Example: `  treeline web navigate https://example.com
  treeline web click "#login"
  treeline web input "#user" admin
  treeline web elements
  treeline web repl`,
	}

	cmd.AddCommand(
		newWebNavigateCommand(),
		newWebClickCommand(),
		newWebInputCommand(),
		newWebTapCommand(),
		newWebElementsCommand(),
		newWebInfoCommand(),
		newWebCaptureCommand(),
		newWebREPLCommand(),
	)
	return cmd
}

// webAutomation resolves the host and builds a browser automation handle.
func webAutomation(cmd *cobra.Command) (*browser.Automation, *output.Renderer, error) {
	cfg := getConfig()
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	profiles, err := loadProfiles(cfg)
	if err != nil {
		return nil, nil, err
	}
	host, _, err := resolveHost(profiles, cfg)
	if err != nil {
		return nil, nil, err
	}
	c, err := newHostClient(cmd, host)
	if err != nil {
		return nil, nil, err
	}
	return browser.New(c), r, nil
}

func printWebResponse(r *output.Renderer, resp *client.WebResponse) {
	if resp == nil {
		return
	}
	if resp.URL != "" {
		r.Printf("URL:   %s\n", resp.URL)
	}
	if resp.Title != "" {
		r.Printf("Title: %s\n", resp.Title)
	}
	r.Printf("Time:  %s\n", time.Duration(resp.ExecutionTime*float64(time.Second)).Round(time.Millisecond))
}

func newWebNavigateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "navigate <url>",
		Short: "Load a URL in the host browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, r, err := webAutomation(cmd)
			if err != nil {
				return err
			}
			resp, err := a.NavigateToURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			r.Success("navigated")
			printWebResponse(r, resp)
			return nil
		},
	}
}

func newWebClickCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "click <selector>",
		Short: "Click the element matching a selector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, r, err := webAutomation(cmd)
			if err != nil {
				return err
			}
			resp, err := a.ClickElement(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			r.Success("clicked " + args[0])
			printWebResponse(r, resp)
			return nil
		},
	}
}

func newWebInputCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "input <selector> <text>",
		Short: "Type text into the element matching a selector",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, r, err := webAutomation(cmd)
			if err != nil {
				return err
			}
			resp, err := a.InputText(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			r.Success("text entered")
			printWebResponse(r, resp)
			return nil
		},
	}
}

func newWebTapCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tap <x> <y>",
		Short: "Tap at page coordinates",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid x coordinate %q", args[0])
			}
			y, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid y coordinate %q", args[1])
			}
			a, r, err := webAutomation(cmd)
			if err != nil {
				return err
			}
			resp, err := a.TapXY(cmd.Context(), x, y)
			if err != nil {
				return err
			}
			r.Success(fmt.Sprintf("tapped %d,%d", x, y))
			printWebResponse(r, resp)
			return nil
		},
	}
}

func newWebElementsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "elements",
		Short: "List interactive elements on the current page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, r, err := webAutomation(cmd)
			if err != nil {
				return err
			}
			els, err := a.DumpElements(cmd.Context())
			if err != nil {
				return err
			}
			if r.Mode() == output.ModeJSON {
				return r.JSON(els)
			}
			renderElements(r, els)
			return nil
		},
	}
}

func renderElements(r *output.Renderer, els []browser.Element) {
	if len(els) == 0 {
		r.Println(r.Styles().Muted.Render("no interactive elements"))
		return
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Tag", "Selector", "Text", "Visible"})
	for _, el := range els {
		t.AppendRow(table.Row{el.Tag, el.Selector, el.Text, el.Visible})
	}
	renderTable(r, t)
}

func newWebInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the current page's URL and title",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, r, err := webAutomation(cmd)
			if err != nil {
				return err
			}
			info, err := a.GetPageInfo(cmd.Context())
			if err != nil {
				return err
			}
			if r.Mode() == output.ModeJSON {
				return r.JSON(info)
			}
			r.Printf("URL:   %s\n", info.URL)
			r.Printf("Title: %s\n", info.Title)
			return nil
		},
	}
}

func newWebCaptureCommand() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture the current page as markdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, r, err := webAutomation(cmd)
			if err != nil {
				return err
			}
			capture, err := a.CapturePage(cmd.Context())
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := os.WriteFile(outPath, []byte(capture.Markdown), 0o644); err != nil {
					return err
				}
				r.Success("capture written to " + outPath)
				return nil
			}
			r.Println(capture.Markdown)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "O", "", "Write the capture to a file")
	return cmd
}
