package commands

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"git.home.luguber.info/inful/jsdocpreview/internal/paths"
)

// GenerateCmd regenerates documentation once, without the preview server.
type GenerateCmd struct {
	WorkspaceFlag
	Source string `arg:"" optional:"" help:"File or directory to document (default: workspace root)"`
}

func (c *GenerateCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return c.run(ctx, g, root, runtimeOptions{relay: true})
}

func (c *GenerateCmd) run(ctx context.Context, g *Global, root *CLI, ro runtimeOptions) error {
	rt, err := newRuntime(g, root, c.WorkspaceFlag, ro)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	source := rt.workspace
	if c.Source != "" {
		if source, err = filepath.Abs(c.Source); err != nil {
			return fmt.Errorf("resolve source: %w", err)
		}
	}
	if err := rt.controller.Regenerate(ctx, source); err != nil {
		return err
	}

	out, err := rt.controller.OutputRoot()
	if err != nil {
		return err
	}
	fmt.Printf("Documentation written to %s\n", paths.NewOutputPaths(out).WWW())
	return nil
}
