package xlate

import (
	"github.com/anvil-lang/c2z/internal/scope"
	"github.com/anvil-lang/c2z/internal/target"
)

// finalize implements component H (spec.md §4.H): it prepends the
// builtins preamble, rewrites macro-to-function-pointer aliases into
// callable wrappers (spec.md §4.F–G's "Macro → function-alias
// detection"), and leaves the root node list ready for a renderer.
func finalize(root *scope.RootScope) {
	root.Nodes = rewriteFunctionPointerAliases(root.Nodes)
	root.Nodes = append([]target.Decl{target.UsingNamespaceDecl{ImportPath: "builtins"}}, root.Nodes...)
}

// rewriteFunctionPointerAliases implements: "After all macros are
// translated, for each macro whose value is a reference to a global
// variable of function-pointer type, replace the alias with a generated
// inline wrapper that dereferences the non-null pointer and forwards all
// arguments." A macro that aliases a function pointer global translates
// (via internal/macro) to a bare `pub const NAME = target;` ConstDecl
// whose Value is a plain Ident; this pass finds those and replaces them.
func rewriteFunctionPointerAliases(nodes []target.Decl) []target.Decl {
	fnPtrVars := make(map[string]target.FnType)
	for _, n := range nodes {
		vd, ok := n.(target.VarDecl)
		if !ok {
			continue
		}
		opt, ok := vd.Typ.(target.Optional)
		if !ok {
			continue
		}
		fn, ok := opt.Elem.(target.FnType)
		if ok {
			fnPtrVars[vd.Name] = fn
		}
	}
	if len(fnPtrVars) == 0 {
		return nodes
	}

	out := make([]target.Decl, len(nodes))
	for i, n := range nodes {
		c, ok := n.(target.ConstDecl)
		if !ok {
			out[i] = n
			continue
		}
		ref, ok := c.Value.(target.Ident)
		if !ok {
			out[i] = n
			continue
		}
		fn, ok := fnPtrVars[ref.Name]
		if !ok {
			out[i] = n
			continue
		}
		out[i] = wrapFunctionPointerAlias(c.Name, ref.Name, fn)
	}
	return out
}

// wrapFunctionPointerAlias builds `pub inline fn NAME(p0: T0, ...) R {
// return TARGET.?(p0, ...); }`, forwarding every parameter after
// unwrapping the pointer's non-null optional.
func wrapFunctionPointerAlias(name, target_ string, fn target.FnType) target.FuncDecl {
	params := make([]target.Param, len(fn.Params))
	args := make([]target.Expr, len(fn.Params))
	for i, pt := range fn.Params {
		pname := paramName(i)
		params[i] = target.Param{Name: pname, Typ: pt}
		args[i] = target.Ident{Name: pname}
	}
	call := target.CallExpr{
		Callee: target.OptionalUnwrap{Ptr: target.Ident{Name: target_}},
		Args:   args,
	}
	body := &target.BlockStmt{Stmts: []target.Stmt{target.ReturnStmt{Value: call}}}
	return target.FuncDecl{
		Name: name, Pub: true, Inline: true,
		Params: params, Return: fn.Return, Variadic: fn.Variadic, Body: body,
	}
}

func paramName(i int) string {
	letters := "abcdefghijklmnopqrstuvwxyz"
	if i < len(letters) {
		return string(letters[i])
	}
	return "p" + itoaSmall(i)
}

func itoaSmall(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
