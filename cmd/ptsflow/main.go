// Command ptsflow runs the interprocedural points-to analysis over a single
// textual IR module and prints, for every call site with a resolved callee
// (direct or indirect), the set of functions it may invoke.
package main

import (
	"context"
	"flag"
	"os"
	"runtime/pprof"

	"github.com/dataflow-ir/ptsflow/analysis"
	"github.com/dataflow-ir/ptsflow/config"
	"github.com/dataflow-ir/ptsflow/irasm"
	"github.com/dataflow-ir/ptsflow/report"
	"github.com/sirupsen/logrus"
)

var (
	cpuprofile    = flag.String("cpuprofile", "", "write cpu profile to `file`")
	configPath    = flag.String("config", "", "path to a YAML config file (see config.Config)")
	entryFunction = flag.String("entry", "", "override the selected entry function")
	color         = flag.Bool("color", false, "colorize text output")
	callgraphDot  = flag.String("callgraph-dot", "", "write a Graphviz DOT call graph to `file`")
	verbose       = flag.Bool("v", false, "enable debug logging")
)

func main() {
	flag.Parse()
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if flag.NArg() != 1 {
		logrus.Fatal("usage: ptsflow [flags] <source.ir>")
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			logrus.WithError(err).Fatal("could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			logrus.WithError(err).Fatal("could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logrus.WithError(err).Fatal("failed to load config")
		}
		cfg = loaded
	}
	if *entryFunction != "" {
		cfg.EntryFunction = *entryFunction
	}

	m, err := irasm.ParseFile(flag.Arg(0))
	if err != nil {
		logrus.WithError(err).Fatal("failed to assemble module")
	}

	res, err := analysis.Run(context.Background(), m, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("analysis failed")
	}

	report.WriteText(os.Stdout, res, report.Options{Color: *color})

	if *callgraphDot != "" {
		f, err := os.Create(*callgraphDot)
		if err != nil {
			logrus.WithError(err).Fatal("could not create call graph file")
		}
		defer f.Close()
		if err := report.WriteCallGraphDOT(f, res); err != nil {
			logrus.WithError(err).Fatal("failed to render call graph")
		}
	}
}
