package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/treeline-labs/treeline/internal/browser"
	"github.com/treeline-labs/treeline/internal/cli/output"
)

func newWebREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive browser automation console",
		Long: `Open an interactive console for browser automation commands.

Commands mirror the one-shot subcommands:
  navigate <url>          load a URL
  click <selector>        click an element
  input <selector> <text> type into an element
  tap <x> <y>             tap at coordinates
  elements                list interactive elements
  info                    show current URL and title
  capture [file]          capture the page as markdown
  .help                   show this help
  .quit                   exit`,
		Args: cobra.NoArgs,
		RunE: runWebREPL,
	}
}

func runWebREPL(cmd *cobra.Command, _ []string) error {
	cfg := getConfig()

	a, r, err := webAutomation(cmd)
	if err != nil {
		return err
	}

	historyFile := filepath.Join(filepath.Dir(cfg.StatePath), "web_history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "treeline> ",
		HistoryFile:     historyFile,
		AutoComplete:    webCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Treeline browser console")
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == ".quit" || line == ".exit" {
			break
		}
		if line == ".help" {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cmd.Long)
			continue
		}

		if err := dispatchWebCommand(cmd.Context(), a, r, line); err != nil {
			r.Error(err.Error())
		}
	}
	return nil
}

func webCompleter() readline.AutoCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("navigate"),
		readline.PcItem("click"),
		readline.PcItem("input"),
		readline.PcItem("tap"),
		readline.PcItem("elements"),
		readline.PcItem("info"),
		readline.PcItem("capture"),
		readline.PcItem(".help"),
		readline.PcItem(".quit"),
	)
}

func dispatchWebCommand(ctx context.Context, a *browser.Automation, r *output.Renderer, line string) error {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case "navigate":
		if len(args) != 1 {
			return fmt.Errorf("usage: navigate <url>")
		}
		resp, err := a.NavigateToURL(ctx, args[0])
		if err != nil {
			return err
		}
		printWebResponse(r, resp)

	case "click":
		if len(args) != 1 {
			return fmt.Errorf("usage: click <selector>")
		}
		resp, err := a.ClickElement(ctx, args[0])
		if err != nil {
			return err
		}
		r.Success("clicked")
		printWebResponse(r, resp)

	case "input":
		if len(args) < 2 {
			return fmt.Errorf("usage: input <selector> <text>")
		}
		resp, err := a.InputText(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		r.Success("text entered")
		printWebResponse(r, resp)

	case "tap":
		if len(args) != 2 {
			return fmt.Errorf("usage: tap <x> <y>")
		}
		x, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid x coordinate %q", args[0])
		}
		y, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid y coordinate %q", args[1])
		}
		resp, err := a.TapXY(ctx, x, y)
		if err != nil {
			return err
		}
		printWebResponse(r, resp)

	case "elements":
		els, err := a.DumpElements(ctx)
		if err != nil {
			return err
		}
		renderElements(r, els)

	case "info":
		info, err := a.GetPageInfo(ctx)
		if err != nil {
			return err
		}
		r.Printf("URL:   %s\nTitle: %s\n", info.URL, info.Title)

	case "capture":
		capture, err := a.CapturePage(ctx)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			if err := os.WriteFile(args[0], []byte(capture.Markdown), 0o644); err != nil {
				return err
			}
			r.Success("capture written to " + args[0])
			return nil
		}
		r.Println(capture.Markdown)

	default:
		return fmt.Errorf("unknown command %q (try .help)", name)
	}
	return nil
}
