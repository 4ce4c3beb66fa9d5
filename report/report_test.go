package report_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/dataflow-ir/ptsflow/analysis"
	"github.com/dataflow-ir/ptsflow/config"
	"github.com/dataflow-ir/ptsflow/irasm"
	"github.com/dataflow-ir/ptsflow/report"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

const src = `
func f() opaque { }
func g() opaque { }
func main() {
block entry:
	cond = bitcast f ;
	br cond, bt, bf ;
block bt:
	fp1 = bitcast f ;
	jump merge ;
block bf:
	fp2 = bitcast g ;
	jump merge ;
block merge:
	fp = phi fp1, fp2 ;
	call fp() ;
	ret ;
}
`

func TestWriteText(t *testing.T) {
	m, err := irasm.ParseString(t.Name(), src)
	require.NoError(t, err)

	res, err := analysis.Run(context.Background(), m, config.Default())
	require.NoError(t, err)

	var out bytes.Buffer
	report.WriteText(&out, res, report.Options{})

	goldie.New(t).Assert(t, t.Name(), out.Bytes())
}
