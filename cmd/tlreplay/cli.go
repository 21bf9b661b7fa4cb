// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package main

import "flag"

var (
	flagGops, flagServer, flagDumpMetrics bool
	flagConfigFile, flagInputDir, flagLogLevel string
	flagInputListFile, flagPluginDir string
)

func cliInit() {
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.BoolVar(&flagServer, "server", false, "After the initial ingest, keep running and reload on config.reload-interval")
	flag.BoolVar(&flagDumpMetrics, "dump-metrics", false, "Print the current Prometheus metric registry as text and exit")
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Path to `config.json`")
	flag.StringVar(&flagInputDir, "input-dir", "", "Directory to scan for capture files, overriding config.input-dir")
	flag.StringVar(&flagInputListFile, "input-list", "", "Path to a newline-delimited list of capture files, overriding config.input-list-file")
	flag.StringVar(&flagPluginDir, "plugin-dir", "", "Directory of Go plugin (.so) files applied after every reload, overriding config.plugin-dir")
	flag.StringVar(&flagLogLevel, "loglevel", "info", "Sets the logging level: `[debug, info, warn, err, crit]`")
	flag.Parse()
}
