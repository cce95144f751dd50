package template

import (
	"github.com/go-cppc/cppc/internal/ast"
	"github.com/go-cppc/cppc/internal/symbols"
	"github.com/go-cppc/cppc/internal/types"
)

// primitiveShape is the fixed size/width/signedness for one spelling of a
// built-in type-specifier run, keyed by the canonical space-joined
// spelling parseBuiltinBase produces (internal/parser/type.go).
type primitiveShape struct {
	kind                          types.Kind
	sizeBits, alignBits, intWidth uint32
	unsigned                      bool
}

// builtinPrimitives covers every built-in spelling the parser can
// produce. Sizes follow the LP64 (SysV x86-64) model: long is 64-bit,
// matching Linux/SysV, for both output formats; nothing in the backend
// narrows `long` to 32 bits for the Windows/COFF path.
var builtinPrimitives = map[string]primitiveShape{
	"void":                {types.Void, 0, 8, 0, false},
	"bool":                {types.Bool, 8, 8, 0, false},
	"char":                {types.Int, 8, 8, 8, false},
	"signed char":         {types.Int, 8, 8, 8, false},
	"unsigned char":       {types.Int, 8, 8, 8, true},
	"wchar_t":             {types.Int, 32, 32, 32, false},
	"short":               {types.Int, 16, 16, 16, false},
	"short int":           {types.Int, 16, 16, 16, false},
	"unsigned short":      {types.Int, 16, 16, 16, true},
	"unsigned short int":  {types.Int, 16, 16, 16, true},
	"int":                 {types.Int, 32, 32, 32, false},
	"signed":              {types.Int, 32, 32, 32, false},
	"signed int":          {types.Int, 32, 32, 32, false},
	"unsigned":            {types.Int, 32, 32, 32, true},
	"unsigned int":        {types.Int, 32, 32, 32, true},
	"long":                {types.Int, 64, 64, 64, false},
	"long int":            {types.Int, 64, 64, 64, false},
	"unsigned long":       {types.Int, 64, 64, 64, true},
	"unsigned long int":   {types.Int, 64, 64, 64, true},
	"long long":           {types.Int, 64, 64, 64, false},
	"long long int":       {types.Int, 64, 64, 64, false},
	"unsigned long long":  {types.Int, 64, 64, 64, true},
	"unsigned long long int": {types.Int, 64, 64, 64, true},
	"float":               {types.Float32, 32, 32, 0, false},
	"double":              {types.Float64, 64, 64, 0, false},
	"long double":         {types.Float64, 64, 64, 0, false}, // 80-bit x87 extended precision is out of scope; widened to double rather than silently truncated without a note
	"auto":                {types.Void, 0, 8, 0, false},       // a bare unresolved `auto` placeholder; real deduction fills TypeExpr.Resolved before this is ever consulted
}

// Resolve turns a parsed TypeExpr into a concrete TypeIndex, instantiating
// a class template along the way when TemplateArgs are present (spec.md
// §4.3: template-argument resolution is just ordinary type resolution
// once the instantiation is cached — `vector<int>` resolves exactly like
// any other named type).
func (in *Instantiator) Resolve(te *ast.TypeExpr) types.TypeIndex {
	if te == nil {
		return 0
	}
	idx := in.resolveBase(te)
	for i := 0; i < te.PointerDepth; i++ {
		idx = in.Types.InternPointer(idx, types.CVNone, false)
	}
	if te.IsReference || te.IsRvalueRef {
		idx = in.Types.InternPointer(idx, types.CVNone, true)
	}
	if te.HasArrayBrackets {
		length := int64(-1)
		if te.ArraySize != nil {
			if v, ok := in.evalConstInt(te.ArraySize); ok {
				length = v
			}
		}
		info := in.Types.Lookup(idx)
		idx = in.Types.InternArray(idx, length, info.SizeBits, info.AlignBits)
	}
	return idx
}

func (in *Instantiator) evalConstInt(e ast.Expr) (int64, bool) {
	if in.EvalConstInt != nil {
		return in.EvalConstInt(e)
	}
	if lit, ok := e.(*ast.IntLiteral); ok {
		return lit.Value, true
	}
	return 0, false
}

func (in *Instantiator) resolveBase(te *ast.TypeExpr) types.TypeIndex {
	if te.Resolved != 0 {
		return te.Resolved // e.g. a template parameter substituted by cloneTypeExpr
	}
	if shape, ok := builtinPrimitives[te.Name]; ok {
		return in.Types.InternPrimitive(shape.kind, shape.sizeBits, shape.alignBits, shape.intWidth, shape.unsigned, te.CV&types.CVConst)
	}

	sym, ok := in.Syms.LookupQualified(te.QualID.Namespace, te.QualID.Name)
	if !ok {
		sym, ok = in.Syms.LookupUnqualified(te.QualID.Name)
	}
	if !ok {
		return 0 // unknown name — a diagnostic is raised by whichever pass required this resolution to succeed
	}

	if sym.Kind != symbols.Template {
		return sym.Type
	}

	typeArgs := make([]types.TypeIndex, len(te.TemplateArgs))
	for i, a := range te.TemplateArgs {
		typeArgs[i] = in.Resolve(a)
	}
	var nonTypeArgs []int64
	for _, a := range te.NonTypeArgs {
		if v, ok := in.evalConstInt(a); ok {
			nonTypeArgs = append(nonTypeArgs, v)
		}
	}
	idx, err := in.InstantiateType(sym.Name, typeArgs, nonTypeArgs)
	if err != nil {
		return 0
	}
	return idx
}
