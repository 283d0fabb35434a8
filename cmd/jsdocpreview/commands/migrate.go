package commands

import (
	"fmt"

	"git.home.luguber.info/inful/jsdocpreview/internal/config"
	"git.home.luguber.info/inful/jsdocpreview/internal/jsdocconf"
	"git.home.luguber.info/inful/jsdocpreview/internal/paths"
)

// MigrateCmd moves the deprecated inline conf setting into a conf file and
// removes layout overrides injected by older releases.
type MigrateCmd struct {
	WorkspaceFlag
	Layout string `name:"layout" help:"Bundled layout path to strip (default: layout.tmpl next to the executable)"`
}

func (m *MigrateCmd) Run(g *Global, root *CLI) error {
	workspace, err := m.Root()
	if err != nil {
		return err
	}
	settingsPath, err := root.SettingsPath(workspace)
	if err != nil {
		return err
	}
	store, err := config.OpenStore(settingsPath)
	if err != nil {
		return err
	}

	changed := false
	settings := store.Get()
	if len(settings.Conf) > 0 {
		out, err := paths.ResolveOutputRoot(settings.Output, workspace)
		if err != nil {
			return err
		}
		target, migrated, err := jsdocconf.NewMigrator(store, g.Logger).MigrateInlineConfig(settings.Conf, out)
		if err != nil {
			return err
		}
		if migrated {
			fmt.Printf("Moved inline generator config to %s\n", target)
			changed = true
		}
	}

	if confFile := store.Get().ConfFile; confFile != "" {
		layout := m.Layout
		if layout == "" {
			layout = jsdocconf.BundledLayoutPath()
		}
		confFile = paths.AsAbsolute(confFile, workspace)
		stripped, err := jsdocconf.StripInjectedLayoutOverride(confFile, paths.AsAbsolute(layout, workspace), workspace, g.Logger)
		if err != nil {
			return err
		}
		if stripped {
			fmt.Printf("Removed bundled layout override from %s\n", confFile)
			changed = true
		}
	}

	if !changed {
		fmt.Println("Nothing to migrate")
	}
	return nil
}
