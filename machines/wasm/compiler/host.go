package compiler

import (
	"context"
	"fmt"

	extismSDK "github.com/extism/go-sdk"
	"github.com/tetratelabs/wabin/wasm"
)

func extismValueTypes(types []wasm.ValueType) ([]extismSDK.ValueType, error) {
	out := make([]extismSDK.ValueType, 0, len(types))
	for _, vt := range types {
		switch vt {
		case wasm.ValueTypeI32:
			out = append(out, extismSDK.ValueTypeI32)
		case wasm.ValueTypeI64:
			out = append(out, extismSDK.ValueTypeI64)
		case wasm.ValueTypeF32:
			out = append(out, extismSDK.ValueTypeF32)
		case wasm.ValueTypeF64:
			out = append(out, extismSDK.ValueTypeF64)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, wasm.ValueTypeName(vt))
		}
	}
	return out, nil
}

// hostFunctions turns resolver-resolved imports into Extism host functions. Each returns the
// resolved address as its first integer result and zero for every other result.
func hostFunctions(imports []hostImport) ([]extismSDK.HostFunction, error) {
	funcs := make([]extismSDK.HostFunction, 0, len(imports))
	for _, imp := range imports {
		params, err := extismValueTypes(imp.typ.Params)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", imp.module, imp.name, err)
		}
		results, err := extismValueTypes(imp.typ.Results)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", imp.module, imp.name, err)
		}

		addr := imp.addr
		resultTypes := imp.typ.Results
		fn := extismSDK.NewHostFunctionWithStack(
			imp.name,
			func(_ context.Context, _ *extismSDK.CurrentPlugin, stack []uint64) {
				for i, rt := range resultTypes {
					stack[i] = 0
					if i == 0 && rt == wasm.ValueTypeI64 {
						stack[i] = addr
					} else if i == 0 && rt == wasm.ValueTypeI32 {
						stack[i] = uint64(uint32(addr))
					}
				}
			},
			params,
			results,
		)
		fn.SetNamespace(imp.module)
		funcs = append(funcs, fn)
	}
	return funcs, nil
}
