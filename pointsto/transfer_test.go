package pointsto_test

import (
	"context"
	"testing"

	"github.com/dataflow-ir/ptsflow/config"
	"github.com/dataflow-ir/ptsflow/irasm"
	"github.com/dataflow-ir/ptsflow/pointsto"
	"github.com/dataflow-ir/ptsflow/slices"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, src string, cfg config.Config) pointsto.CallResults {
	t.Helper()
	m, err := irasm.ParseString(t.Name(), src)
	require.NoError(t, err)

	entry := m.FuncByName("main")
	require.NotNil(t, entry, "module must define main")

	a := pointsto.NewAnalyzer(m, cfg)
	return a.Run(context.Background(), entry)
}

// TestDirectIndirectCall: a function pointer is aliased straight from a
// named function and invoked through it.
func TestDirectIndirectCall(t *testing.T) {
	src := `
func f() opaque { }
func main() {
block entry:
	fp = bitcast f ;
	call fp() ;
	ret ;
}
`
	cr := analyze(t, src, config.Default())
	lines := cr.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, []string{"f"}, cr.Callees(lines[0]))
}

// TestConditionalAssignment: a phi merging two branch-local aliases yields
// both callees at the merged call site.
func TestConditionalAssignment(t *testing.T) {
	src := `
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
	cr := analyze(t, src, config.Default())
	lines := cr.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, []string{"f", "g"}, cr.Callees(lines[0]))
}

// TestFunctionPointerThroughParameter: the caller passes a function value
// as an argument; the callee invokes it through the formal parameter.
func TestFunctionPointerThroughParameter(t *testing.T) {
	src := `
func f() opaque { }
func helper(*fp) {
block entry:
	call fp() ;
	ret ;
}
func main() {
block entry:
	call helper(f) ;
	ret ;
}
`
	cr := analyze(t, src, config.Default())
	var allCallees []string
	for _, l := range cr.Lines() {
		allCallees = append(allCallees, cr.Callees(l)...)
	}
	assert.True(t, slices.Subset([]string{"helper", "f"}, allCallees))
}

// TestReturnedFunctionPointer: a factory function returns a function
// pointer that the caller then invokes.
func TestReturnedFunctionPointer(t *testing.T) {
	src := `
func f() opaque { }
func factory() returns {
block entry:
	r = bitcast f ;
	ret r ;
}
func main() {
block entry:
	fp = call factory() ;
	call fp() ;
	ret ;
}
`
	cr := analyze(t, src, config.Default())
	var allCallees []string
	for _, l := range cr.Lines() {
		allCallees = append(allCallees, cr.Callees(l)...)
	}
	assert.True(t, slices.Subset([]string{"factory", "f"}, allCallees))
}

// TestMallocStoreLoadFunctionPointer: a function pointer is stashed in a
// heap cell returned by an opaque allocator, then loaded back out and
// invoked.
func TestMallocStoreLoadFunctionPointer(t *testing.T) {
	src := `
func f() opaque { }
func malloc() opaque { }
func main() {
block entry:
	h = call malloc() ;
	srcfp = bitcast f ;
	store h, srcfp ;
	*loaded = load h ;
	call loaded() ;
	ret ;
}
`
	cr := analyze(t, src, config.Default())
	var allCallees []string
	for _, l := range cr.Lines() {
		allCallees = append(allCallees, cr.Callees(l)...)
	}
	assert.True(t, slices.Subset([]string{"malloc", "f"}, allCallees))
}

// TestMutualRecursion: two functions call each other through static
// (direct) call sites; the inline-recursive engine must terminate under
// the call-depth guard instead of looping forever.
func TestMutualRecursion(t *testing.T) {
	src := `
func a() {
block entry:
	call b() ;
	ret ;
}
func b() {
block entry:
	call a() ;
	ret ;
}
func main() {
block entry:
	call a() ;
	ret ;
}
`
	cfg := config.Default()
	cfg.MaxCallDepth = 3

	// The call-depth guard bounds descent into a/b's mutual recursion;
	// without it this call would never return.
	cr := analyze(t, src, cfg)

	var allCallees []string
	for _, l := range cr.Lines() {
		allCallees = append(allCallees, cr.Callees(l)...)
	}
	assert.True(t, slices.Subset([]string{"a", "b"}, allCallees))
}
