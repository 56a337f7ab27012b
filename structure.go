package main

import "time"

// Config holds data parsed from the config.yml
type Config struct {
	Token          string        `fig:"token" validate:"required"`
	Driver         string        `fig:"driver" default:"file"`
	DSN            string        `fig:"datasourcename"`
	DataDir        string        `fig:"datadir" default:"./suggestions"`
	LogLevel       string        `fig:"loglevel" default:"error"`
	LogFile        string        `fig:"logfile"`
	StickyWindow   time.Duration `fig:"stickywindow" default:"5s"`
	StickyText     string        `fig:"stickytext"`
	PinApproved    bool          `fig:"pinapproved"`
	MetricsAddress string        `fig:"metricsaddress"`
	PruneInterval  time.Duration `fig:"pruneinterval" default:"10m"`
}
