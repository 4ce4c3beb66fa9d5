// Package analysis is the module driver: it selects an entry point, runs
// the points-to solver over it, and hands back the accumulated call
// results. It plays the role the source project's top-level pointer.Analyze
// plays for its unification-based analysis.
package analysis

import (
	"context"
	"fmt"

	"github.com/dataflow-ir/ptsflow/config"
	"github.com/dataflow-ir/ptsflow/ir"
	"github.com/dataflow-ir/ptsflow/pointsto"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "analysis")

// Result is the outcome of analyzing one module.
type Result struct {
	Entry       *ir.Function
	CallResults pointsto.CallResults
}

// Run selects an entry point in m (per cfg.EntryFunction, or the default
// rule below) and analyzes it.
func Run(ctx context.Context, m *ir.Module, cfg config.Config) (Result, error) {
	entry, err := selectEntry(m, cfg)
	if err != nil {
		return Result{}, err
	}

	log.WithField("entry", entry.Name()).Info("starting analysis")

	a := pointsto.NewAnalyzer(m, cfg)
	cr := a.Run(ctx, entry)

	return Result{Entry: entry, CallResults: cr}, nil
}

// selectEntry honors cfg.EntryFunction when set, otherwise falls back to
// the last non-opaque, non-empty function in module order.
func selectEntry(m *ir.Module, cfg config.Config) (*ir.Function, error) {
	if cfg.EntryFunction != "" {
		f := m.FuncByName(cfg.EntryFunction)
		if f == nil {
			return nil, fmt.Errorf("analysis: entry function %q not found", cfg.EntryFunction)
		}
		return f, nil
	}

	for i := len(m.Functions) - 1; i >= 0; i-- {
		f := m.Functions[i]
		if !f.Opaque && f.Entry != nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("analysis: no non-opaque function found to serve as entry point")
}
