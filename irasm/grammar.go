// Package irasm is a minimal textual assembler for the ir package: it turns
// a small line-oriented instruction language into an *ir.Module. Loading a
// module from a real frontend (an LLVM pass, a compiler IR dump, ...) is
// explicitly out of scope for the analysis itself; this package exists only
// so the analysis and its tests have something runnable to drive through
// end to end, in the spirit of the source project's own synthetic
// go/packages-loaded test fixtures.
package irasm

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var irLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `#[^\n]*`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_.$]*`, nil},
		{"Punctuation", `[{}():,;=*]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})

// Program is the root grammar node: a module's globals followed by its
// functions.
type Program struct {
	Pos       lexer.Position
	Globals   []*GlobalDecl `@@*`
	Functions []*FuncDecl   `@@*`
}

// GlobalDecl declares a module-level storage cell, always pointer-like.
type GlobalDecl struct {
	Pos  lexer.Position
	Name string `"global" @Ident ";"`
}

// FuncDecl declares one function. A function with zero blocks (an empty
// "{ }" body) is opaque by construction when marked so; Returns controls
// whether callers install a return-binding slot.
type FuncDecl struct {
	Pos     lexer.Position
	Name    string       `"func" @Ident`
	Params  []*ParamDecl `"(" [ @@ { "," @@ } ] ")"`
	Returns bool         `[ @"returns" ]`
	Opaque  bool         `[ @"opaque" ]`
	Blocks  []*BlockDecl `"{" @@* "}"`
}

// ParamDecl is a formal parameter; a leading "*" marks it pointer-typed.
type ParamDecl struct {
	Pos     lexer.Position
	Pointer bool   `[ @"*" ]`
	Name    string `@Ident`
}

// BlockDecl is a named straight-line instruction sequence.
type BlockDecl struct {
	Pos    lexer.Position
	Name   string   `"block" @Ident ":"`
	Instrs []*Instr `@@*`
}

// DstIdent is an instruction's defined value. A leading "*" on a Load's or
// Phi's destination marks the defined value as pointer-typed (for a Load it
// also sets PointeeIsPointer); on an Alloca it is ignored, since an
// alloca's result is always pointer-typed.
type DstIdent struct {
	Pos     lexer.Position
	Pointer bool   `[ @"*" ]`
	Name    string `@Ident`
}

// Operand is any value reference: the literal "null", or an identifier
// resolved against the enclosing function's symbol table.
type Operand struct {
	Pos  lexer.Position
	Null bool   `  @"null"`
	Name string `| @Ident`
}

// Instr is the union of every instruction form; exactly one field is
// non-nil after a successful parse.
type Instr struct {
	Pos    lexer.Position
	Store  *StoreStmt  `  @@`
	Load   *LoadStmt   `| @@`
	Alloca *AllocaStmt `| @@`
	Gep    *GepStmt    `| @@`
	Cast   *CastStmt   `| @@`
	MemCpy *MemCpyStmt `| @@`
	MemSet *MemSetStmt `| @@`
	Phi    *PhiStmt    `| @@`
	Call   *CallStmt   `| @@`
	Ret    *RetStmt    `| @@`
	Jump   *JumpStmt   `| @@`
	Branch *BranchStmt `| @@`
	Other  *OtherStmt  `| @@`
}

// PhiStmt merges several incoming values into one: "dst = phi v1, v2 ;".
type PhiStmt struct {
	Pos      lexer.Position
	Dst      *DstIdent  `@@ "=" "phi"`
	Incoming []*Operand `@@ { "," @@ } ";"`
}

type AllocaStmt struct {
	Pos lexer.Position
	Dst *DstIdent `@@ "=" "alloca" ";"`
}

type LoadStmt struct {
	Pos lexer.Position
	Dst *DstIdent `@@ "=" "load"`
	Src *Operand  `@@ ";"`
}

type StoreStmt struct {
	Pos lexer.Position
	Ptr *Operand `"store" @@ ","`
	Val *Operand `@@ ";"`
}

type GepStmt struct {
	Pos  lexer.Position
	Dst  string   `@Ident "=" "gep"`
	Base *Operand `@@ ";"`
}

type CastStmt struct {
	Pos lexer.Position
	Dst string   `@Ident "=" "bitcast"`
	Src *Operand `@@ ";"`
}

type MemCpyStmt struct {
	Pos lexer.Position
	Dst *Operand `"memcpy" @@ ","`
	Src *Operand `@@ ";"`
}

type MemSetStmt struct {
	Pos lexer.Position
	Dst *Operand `"memset" @@ ";"`
}

type CallStmt struct {
	Pos    lexer.Position
	Dst    *string    `[ @Ident "=" ]`
	Callee string     `"call" @Ident "("`
	Args   []*Operand `[ @@ { "," @@ } ] ")" ";"`
}

type RetStmt struct {
	Pos lexer.Position
	Val *Operand `"ret" [ @@ ] ";"`
}

type JumpStmt struct {
	Pos    lexer.Position
	Target string `"jump" @Ident ";"`
}

type BranchStmt struct {
	Pos   lexer.Position
	Cond  *Operand `"br" @@ ","`
	True  string   `@Ident ","`
	False string   `@Ident ";"`
}

// OtherStmt is the catch-all for instructions irrelevant to pointer flow
// (arithmetic, comparisons, ...): "[dst =] op use, use, ... ;".
type OtherStmt struct {
	Pos  lexer.Position
	Dst  *string    `[ @Ident "=" ]`
	Op   string     `@Ident`
	Uses []*Operand `[ @@ { "," @@ } ] ";"`
}
