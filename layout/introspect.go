package layout

import (
	"fmt"
	"go/types"

	"golang.org/x/tools/go/packages"
)

// Introspect loads a Go package by import path and returns the parts of its
// exported API that can be placed in slots: struct types with their fields
// and pointer method sets, and free functions.
// The include filter, if non-nil, restricts which exported names are included.
func Introspect(importPath string, include map[string]bool) (*PackageModel, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes,
	}

	pkgs, err := packages.Load(cfg, importPath)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", importPath, err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found for %s", importPath)
	}
	if len(pkgs[0].Errors) > 0 {
		return nil, fmt.Errorf("package errors: %v", pkgs[0].Errors)
	}

	pkg := pkgs[0]
	if pkg.Types == nil {
		return nil, fmt.Errorf("type information not available for %s", importPath)
	}

	model := &PackageModel{
		ImportPath: importPath,
		Name:       pkg.Name,
	}

	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		if include != nil && !include[name] {
			continue
		}

		obj := scope.Lookup(name)
		if !obj.Exported() {
			continue
		}

		switch o := obj.(type) {
		case *types.Func:
			sig := o.Type().(*types.Signature)
			if sig.TypeParams().Len() > 0 {
				continue
			}
			model.Functions = append(model.Functions, functionModel(o.Name(), sig, pkg.Types))

		case *types.TypeName:
			if tm := structModel(o, pkg.Types); tm != nil {
				model.Types = append(model.Types, *tm)
			}
		}
	}

	return model, nil
}

func structModel(tn *types.TypeName, pkg *types.Package) *TypeModel {
	if tn.IsAlias() {
		return nil
	}
	named, ok := tn.Type().(*types.Named)
	if !ok || named.TypeParams().Len() > 0 {
		return nil
	}
	st, ok := named.Underlying().(*types.Struct)
	if !ok {
		return nil
	}

	tm := &TypeModel{
		Name:   tn.Name(),
		GoType: tn.Type(),
	}
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if f.Exported() && !f.Embedded() {
			tm.Fields = append(tm.Fields, FieldModel{
				Name:    f.Name(),
				TypeStr: types.TypeString(f.Type(), qualifier(pkg)),
			})
		}
	}

	// The pointer method set includes value-receiver methods, matching what
	// reflect reports for *T.
	mset := types.NewMethodSet(types.NewPointer(named))
	for i := 0; i < mset.Len(); i++ {
		sel := mset.At(i)
		fn, ok := sel.Obj().(*types.Func)
		if !ok || !fn.Exported() {
			continue
		}
		// Only methods declared on this type, not promoted ones.
		if len(sel.Index()) > 1 {
			continue
		}
		sig := fn.Type().(*types.Signature)
		tm.Methods = append(tm.Methods, functionModel(fn.Name(), sig, pkg))
	}

	return tm
}

func functionModel(name string, sig *types.Signature, pkg *types.Package) FunctionModel {
	q := qualifier(pkg)
	fm := FunctionModel{
		Name:      name,
		Signature: types.TypeString(types.NewSignatureType(nil, nil, nil, sig.Params(), sig.Results(), sig.Variadic()), q),
	}

	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		p := params.At(i)
		fm.Params = append(fm.Params, ParamModel{
			Name:    p.Name(),
			TypeStr: types.TypeString(p.Type(), q),
		})
	}

	results := sig.Results()
	for i := 0; i < results.Len(); i++ {
		r := results.At(i)
		fm.Results = append(fm.Results, ParamModel{
			Name:    r.Name(),
			TypeStr: types.TypeString(r.Type(), q),
		})
	}

	if results.Len() > 0 && isErrorType(results.At(results.Len()-1).Type()) {
		fm.ReturnsErr = true
	}

	return fm
}

func isErrorType(t types.Type) bool {
	return types.Identical(t, types.Universe.Lookup("error").Type())
}

func qualifier(pkg *types.Package) types.Qualifier {
	return func(other *types.Package) string {
		if other == pkg {
			return ""
		}
		return other.Name()
	}
}
