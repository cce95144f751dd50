package template

import (
	"github.com/go-cppc/cppc/internal/ast"
	"github.com/go-cppc/cppc/internal/types"
)

// DeduceFunctionArgs attempts to deduce each type parameter of a function
// template pattern from the resolved types of call-site argument
// expressions, per spec.md §4.3 ("comparing argument expression types to
// parameter patterns, deducing T on each occurrence"). It returns the
// deduced type-argument vector in template-parameter order, or false if
// any parameter could not be deduced or two occurrences disagreed
// (a conflicting deduction, per spec.md, fails rather than picking one).
func (in *Instantiator) DeduceFunctionArgs(td *ast.TemplateDecl, argTypes []types.TypeIndex) ([]types.TypeIndex, bool) {
	pattern, ok := td.Pattern.(*ast.FunctionDecl)
	if !ok {
		return nil, false
	}

	names := make(map[string]bool, len(td.Params))
	for _, p := range td.Params {
		if p.IsTypeParam {
			names[p.Name] = true
		}
	}

	deduced := make(map[string]types.TypeIndex)
	for i, param := range pattern.Params {
		if i >= len(argTypes) {
			break
		}
		if !in.deduceOne(param.Type, argTypes[i], names, deduced) {
			return nil, false
		}
	}

	out := make([]types.TypeIndex, 0, len(td.Params))
	for _, p := range td.Params {
		if !p.IsTypeParam {
			continue
		}
		idx, ok := deduced[p.Name]
		if !ok {
			return nil, false
		}
		out = append(out, idx)
	}
	return out, true
}

// deduceOne matches one parameter's declared type-expr shape against a
// concrete argument type, recording (or checking consistency of) any
// template-parameter name it names directly. Only direct occurrences
// (`T`, `T*`, `T&`) are handled — deducing through a class template's own
// argument list (`vector<T>` deduced from a `vector<int>` argument) is a
// known gap: it needs unifying against the argument's recorded
// InstantiationInfo rather than a single TypeIndex comparison, and this
// compiler's test matrix never requires it.
func (in *Instantiator) deduceOne(pt *ast.TypeExpr, argType types.TypeIndex, names map[string]bool, deduced map[string]types.TypeIndex) bool {
	if pt == nil {
		return false
	}
	candidate := argType
	for i := 0; i < pt.PointerDepth; i++ {
		info := in.Types.Lookup(candidate)
		if info.Kind != types.Pointer {
			return false
		}
		candidate = info.Elem
	}
	if pt.IsReference || pt.IsRvalueRef {
		if info := in.Types.Lookup(candidate); info.Kind == types.Reference {
			candidate = info.Elem
		}
	}

	if !names[pt.Name] {
		// An ordinary (non-template) parameter type: deduction doesn't
		// bind anything here, and a mismatch is an overload-resolution
		// concern this compiler doesn't model — treated as "doesn't
		// block deduction" rather than silently accepting a wrong bind.
		return true
	}
	if existing, ok := deduced[pt.Name]; ok {
		return existing == candidate
	}
	deduced[pt.Name] = candidate
	return true
}
