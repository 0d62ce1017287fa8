package main

import (
	"flag"
	"log"
	"os"
	"strconv"
)

// RunConfig holds the demo CLI's configuration.
type RunConfig struct {
	Addr         string
	Parallelism  int
	SchedulerCap int
	LogLevel     string
	ProgramFile  string
	Program      string
}

// configResolver defines how to resolve a single configuration value from a
// flag, falling back to an environment variable, falling back to a
// default. Adapted verbatim from cmd/achemdb-server/config.go's resolver
// table, renamed for the new binary's option set.
type configResolver struct {
	flagName    string
	envVarName  string
	defaultVal  string
	description string
	setter      func(*RunConfig, string)
}

func loadRunConfig() RunConfig {
	cfg := RunConfig{}

	resolvers := []configResolver{
		{
			flagName:    "addr",
			envVarName:  "JOINRUN_ADDR",
			defaultVal:  ":8090",
			description: "HTTP listen address for the debug soup endpoint (e.g. :8090)",
			setter:      func(c *RunConfig, v string) { c.Addr = v },
		},
		{
			flagName:    "parallelism",
			envVarName:  "JOINRUN_PARALLELISM",
			defaultVal:  "4",
			description: "default worker pool parallelism",
			setter: func(c *RunConfig, v string) {
				if val, err := strconv.Atoi(v); err == nil {
					c.Parallelism = val
				} else {
					log.Printf("invalid value for parallelism: %s, using default 4", v)
					c.Parallelism = 4
				}
			},
		},
		{
			flagName:    "scheduler-cap",
			envVarName:  "JOINRUN_SCHEDULER_CAP",
			defaultVal:  "4096",
			description: "scheduler queue depth before RunScheduler blocks the emitting goroutine",
			setter: func(c *RunConfig, v string) {
				if val, err := strconv.Atoi(v); err == nil {
					c.SchedulerCap = val
				} else {
					log.Printf("invalid value for scheduler-cap: %s, using default 4096", v)
					c.SchedulerCap = 4096
				}
			},
		},
		{
			flagName:    "log-level",
			envVarName:  "JOINRUN_LOG_LEVEL",
			defaultVal:  "info",
			description: "log level: debug, info, warn, error",
			setter:      func(c *RunConfig, v string) { c.LogLevel = v },
		},
		{
			flagName:    "program-file",
			envVarName:  "JOINRUN_PROGRAM_FILE",
			defaultVal:  "",
			description: "optional path to a JSON file naming which example program to run; hot-reloaded while the process runs",
			setter:      func(c *RunConfig, v string) { c.ProgramFile = v },
		},
		{
			flagName:    "program",
			envVarName:  "JOINRUN_PROGRAM",
			defaultVal:  "counter",
			description: "example program to run: counter, rendezvous, selfdeadlock",
			setter:      func(c *RunConfig, v string) { c.Program = v },
		},
	}

	flagVars := make(map[string]*string)
	for _, resolver := range resolvers {
		flagVars[resolver.flagName] = flag.String(resolver.flagName, "", resolver.description)
	}
	flag.Parse()

	for _, resolver := range resolvers {
		var value string
		if *flagVars[resolver.flagName] != "" {
			value = *flagVars[resolver.flagName]
		} else if envValue := os.Getenv(resolver.envVarName); envValue != "" {
			value = envValue
		} else {
			value = resolver.defaultVal
		}
		resolver.setter(&cfg, value)
	}

	return cfg
}

// ProgramConfig is the shape of the optional hot-reloaded program file.
type ProgramConfig struct {
	Program string `json:"program"`
}
