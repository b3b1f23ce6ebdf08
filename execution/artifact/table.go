package artifact

import (
	"slices"
)

// Metadata is the serialisable description of a prepared code image.
type Metadata struct {
	ExportVars    []Symbol   `cbor:"1,keyasint,omitempty"`
	ExportFuncs   []Symbol   `cbor:"2,keyasint,omitempty"`
	ExportForEach []Symbol   `cbor:"3,keyasint,omitempty"`
	Pragmas       []Pragma   `cbor:"4,keyasint,omitempty"`
	Funcs         []FuncInfo `cbor:"5,keyasint,omitempty"`
	ObjectSlots   []uint32   `cbor:"6,keyasint,omitempty"`

	// Symbols holds every resolvable name, including ones that are not exported.
	Symbols []Symbol `cbor:"7,keyasint,omitempty"`
}

// Table answers Backend queries from an image and its Metadata.
type Table struct {
	image   []byte
	meta    Metadata
	symbols map[string]uint64
}

var _ Backend = (*Table)(nil)

// NewTable indexes the metadata for lookups. Exported names take precedence over entries in
// Metadata.Symbols, and earlier entries over later ones.
func NewTable(image []byte, meta Metadata) *Table {
	t := &Table{
		image:   image,
		meta:    meta,
		symbols: make(map[string]uint64),
	}
	for _, list := range [][]Symbol{meta.ExportFuncs, meta.ExportVars, meta.ExportForEach, meta.Symbols} {
		for _, s := range list {
			if _, ok := t.symbols[s.Name]; !ok {
				t.symbols[s.Name] = s.Addr
			}
		}
	}
	return t
}

// Metadata returns a copy of the indexed metadata.
func (t *Table) Metadata() Metadata {
	return Metadata{
		ExportVars:    slices.Clone(t.meta.ExportVars),
		ExportFuncs:   slices.Clone(t.meta.ExportFuncs),
		ExportForEach: slices.Clone(t.meta.ExportForEach),
		Pragmas:       slices.Clone(t.meta.Pragmas),
		Funcs:         slices.Clone(t.meta.Funcs),
		ObjectSlots:   slices.Clone(t.meta.ObjectSlots),
		Symbols:       slices.Clone(t.meta.Symbols),
	}
}

func (t *Table) Image() []byte { return t.image }

func (t *Table) Lookup(name string) (uint64, bool) {
	addr, ok := t.symbols[name]
	return addr, ok
}

func (t *Table) ExportVars() []Symbol    { return slices.Clone(t.meta.ExportVars) }
func (t *Table) ExportFuncs() []Symbol   { return slices.Clone(t.meta.ExportFuncs) }
func (t *Table) ExportForEach() []Symbol { return slices.Clone(t.meta.ExportForEach) }
func (t *Table) Pragmas() []Pragma       { return slices.Clone(t.meta.Pragmas) }
func (t *Table) Funcs() []FuncInfo       { return slices.Clone(t.meta.Funcs) }
func (t *Table) ObjectSlots() []uint32   { return slices.Clone(t.meta.ObjectSlots) }

// MetadataOf extracts the metadata from any backend through its query methods.
func MetadataOf(b Backend) Metadata {
	if t, ok := b.(interface{ Metadata() Metadata }); ok {
		return t.Metadata()
	}
	return Metadata{
		ExportVars:    b.ExportVars(),
		ExportFuncs:   b.ExportFuncs(),
		ExportForEach: b.ExportForEach(),
		Pragmas:       b.Pragmas(),
		Funcs:         b.Funcs(),
		ObjectSlots:   b.ObjectSlots(),
	}
}

// Names returns the names of the given symbols in order.
func Names(symbols []Symbol) []string {
	if len(symbols) == 0 {
		return nil
	}
	out := make([]string, len(symbols))
	for i, s := range symbols {
		out[i] = s.Name
	}
	return out
}
