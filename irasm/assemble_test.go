package irasm_test

import (
	"testing"

	"github.com/dataflow-ir/ptsflow/ir"
	"github.com/dataflow-ir/ptsflow/irasm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStringBuildsModule(t *testing.T) {
	src := `
global g ;
func f() opaque { }
func main() {
block entry:
	p = alloca ;
	store p, g ;
	*q = load p ;
	call f() ;
	ret ;
}
`
	m, err := irasm.ParseString(t.Name(), src)
	require.NoError(t, err)

	f := m.FuncByName("f")
	require.NotNil(t, f)
	assert.True(t, f.Opaque)

	main := m.FuncByName("main")
	require.NotNil(t, main)
	require.Len(t, main.Blocks, 1)

	entry := main.Blocks[0]
	require.Len(t, entry.Instrs, 5)

	_, ok := entry.Instrs[0].(*ir.AllocaInst)
	assert.True(t, ok)
	_, ok = entry.Instrs[1].(*ir.StoreInst)
	assert.True(t, ok)
	load, ok := entry.Instrs[2].(*ir.LoadInst)
	assert.True(t, ok)
	assert.True(t, load.PointeeIsPointer)
	_, ok = entry.Instrs[3].(*ir.CallInst)
	assert.True(t, ok)
	_, ok = entry.Instrs[4].(*ir.ReturnInst)
	assert.True(t, ok)
}

func TestParseStringRejectsUndefinedValue(t *testing.T) {
	_, err := irasm.ParseString(t.Name(), `
func main() {
block entry:
	store nosuchvalue, nosuchvalue ;
	ret ;
}
`)
	assert.Error(t, err)
}
