package analysis_test

import (
	"context"
	"testing"

	"github.com/dataflow-ir/ptsflow/analysis"
	"github.com/dataflow-ir/ptsflow/config"
	"github.com/dataflow-ir/ptsflow/irasm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSelectsLastNonOpaqueFunction(t *testing.T) {
	src := `
func helper() opaque { }
func second() {
block entry:
	ret ;
}
`
	m, err := irasm.ParseString(t.Name(), src)
	require.NoError(t, err)

	res, err := analysis.Run(context.Background(), m, config.Default())
	require.NoError(t, err)
	assert.Equal(t, "second", res.Entry.Name())
}

func TestRunHonorsEntryFunctionOverride(t *testing.T) {
	src := `
func helper() {
block entry:
	ret ;
}
func second() {
block entry:
	ret ;
}
`
	m, err := irasm.ParseString(t.Name(), src)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.EntryFunction = "helper"

	res, err := analysis.Run(context.Background(), m, cfg)
	require.NoError(t, err)
	assert.Equal(t, "helper", res.Entry.Name())
}

func TestRunUnknownEntryFunctionErrors(t *testing.T) {
	m, err := irasm.ParseString(t.Name(), "func main() { block entry: ret ; }")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.EntryFunction = "missing"

	_, err = analysis.Run(context.Background(), m, cfg)
	assert.Error(t, err)
}
