package analysis_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/dataflow-ir/ptsflow/analysis"
	"github.com/dataflow-ir/ptsflow/config"
	"github.com/dataflow-ir/ptsflow/ir"
)

var blackHole any

// buildChainModule mirrors the benchmark command's synthetic generator: n
// opaque leaf functions, a dispatcher invoked through a function-pointer
// parameter, and a driver that feeds it a different leaf at each of n call
// sites.
func buildChainModule(n int) (*ir.Module, string) {
	m := ir.NewModule()

	leaves := make([]*ir.Function, n)
	for i := range leaves {
		leaves[i] = m.NewFunction(fmt.Sprintf("leaf%d", i), true, false)
	}

	dispatch := m.NewFunction("dispatch", false, false)
	fpParam := dispatch.NewParam(m, "fp", true)
	db := dispatch.NewBlock("entry")
	db.Instrs = append(db.Instrs, &ir.CallInst{
		Callee: fpParam, AllocCell: m.NewLocal("dispatch$heap", false),
	})
	db.Instrs = append(db.Instrs, &ir.ReturnInst{})

	driver := m.NewFunction("main", false, false)
	eb := driver.NewBlock("entry")
	for i, leaf := range leaves {
		aliasDst := m.NewLocal(fmt.Sprintf("fp%d", i), true)
		eb.Instrs = append(eb.Instrs, &ir.BitCastInst{Src: leaf, Dst: aliasDst})
		eb.Instrs = append(eb.Instrs, ir.NewCall(m, "", dispatch, []ir.Value{aliasDst}, i+1))
	}
	eb.Instrs = append(eb.Instrs, &ir.ReturnInst{})

	return m, driver.Name()
}

// BenchmarkChainAnalysis measures analysis.Run over the synthetic chain
// generator at increasing scale.
func BenchmarkChainAnalysis(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		m, _ := buildChainModule(n)
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				res, err := analysis.Run(context.Background(), m, config.Default())
				if err != nil {
					b.Fatal(err)
				}
				blackHole = res
			}
		})
	}
}
