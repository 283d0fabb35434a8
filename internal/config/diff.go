package config

import (
	"reflect"
	"slices"
)

// Changes lists which settings groups differ between two snapshots.
type Changes struct {
	Output    bool
	Port      bool
	ConfFile  bool
	Conf      bool
	Tutorials bool
	Other     bool
}

// Any reports whether anything changed.
func (c Changes) Any() bool {
	return c.Output || c.Port || c.ConfFile || c.Conf || c.Tutorials || c.Other
}

// Diff compares old and next.
func Diff(old, next Settings) Changes {
	c := Changes{
		Output:    old.Output != next.Output,
		Port:      old.Port != next.Port,
		ConfFile:  old.ConfFile != next.ConfFile,
		Conf:      !reflect.DeepEqual(old.Conf, next.Conf),
		Tutorials: !slices.Equal(old.Tutorials, next.Tutorials),
	}
	c.Other = old.WithPrivate != next.WithPrivate ||
		old.AutoOpenBrowser != next.AutoOpenBrowser ||
		old.Generator != next.Generator ||
		old.History != next.History ||
		old.HistoryRetention != next.HistoryRetention ||
		old.NATS != next.NATS ||
		old.Logging != next.Logging
	return c
}
