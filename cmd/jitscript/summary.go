package main

import (
	"fmt"
	"strings"

	"github.com/robbyt/go-jitscript/execution/script"
)

// renderSummary lists the metadata of a prepared script.
func renderSummary(s *script.Script) string {
	var summary strings.Builder

	fmt.Fprintf(&summary, "State: %s\n", s.State())
	fmt.Fprintf(&summary, "Object: %s (%d bytes)\n", s.ObjectKind(), len(s.Image()))
	fmt.Fprintf(&summary, "Export funcs: %s\n", list(s.ExportFuncNames()))
	fmt.Fprintf(&summary, "Export vars: %s\n", list(s.ExportVarNames()))
	fmt.Fprintf(&summary, "For-each kernels: %s\n", list(s.ExportForEachNames()))
	fmt.Fprintf(&summary, "Object slots: %d\n", s.ObjectSlotCount())

	pragmas := make([]string, 0, s.PragmaCount())
	for _, p := range s.PragmaList() {
		pragmas = append(pragmas, p.Key+"="+p.Value)
	}
	fmt.Fprintf(&summary, "Pragmas: %s\n", list(pragmas))

	summary.WriteString("Functions:\n")
	for _, f := range s.FuncInfoList() {
		fmt.Fprintf(&summary, "- %s @%#x, %d bytes\n", f.Name, f.Addr, f.Size)
	}
	return summary.String()
}

func list(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}
