package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/jsdocpreview/internal/config"
	"git.home.luguber.info/inful/jsdocpreview/internal/history"
)

// HistoryCmd prints recent regeneration runs.
type HistoryCmd struct {
	WorkspaceFlag
	Limit int `short:"n" name:"limit" default:"20" help:"Number of runs to show"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	workspace, err := h.Root()
	if err != nil {
		return err
	}
	settingsPath, err := root.SettingsPath(workspace)
	if err != nil {
		return err
	}
	settings, err := config.Load(settingsPath)
	if err != nil {
		return err
	}
	path, err := historyPath(settings, workspace)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Println("No runs recorded")
		return nil
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.Recent(context.Background(), h.Limit)
	if err != nil {
		return err
	}
	return printRuns(os.Stdout, runs)
}

func printRuns(w io.Writer, runs []history.RunRecord) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tOUTCOME\tDURATION\tCOALESCED\tTARGET\tERROR")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime),
			r.Outcome,
			r.Duration().Round(time.Millisecond),
			r.Coalesced,
			r.Target,
			r.Error,
		)
	}
	return tw.Flush()
}
