// Package artifact defines the query contract shared by every representation of a prepared
// script: the freshly compiled executable held in memory and the one reconstructed from a
// cache entry. Both are built around the same Metadata value so that they answer every query
// identically.
package artifact

// Symbol is an exported name and its address in the code image.
type Symbol struct {
	Name string `cbor:"1,keyasint"`
	Addr uint64 `cbor:"2,keyasint"`
}

// Pragma is a key/value annotation carried by the main source.
type Pragma struct {
	Key   string `cbor:"1,keyasint"`
	Value string `cbor:"2,keyasint"`
}

// FuncInfo describes one function defined in the code image.
type FuncInfo struct {
	Name string `cbor:"1,keyasint"`
	Addr uint64 `cbor:"2,keyasint"`
	Size uint32 `cbor:"3,keyasint"`
}

// Backend is the capability set every active representation must provide: symbol lookup,
// export enumeration, pragma enumeration, function-info enumeration and object-slot
// enumeration.
type Backend interface {
	// Image returns the position independent code image.
	Image() []byte

	// Lookup resolves a symbol name to its address.
	Lookup(name string) (uint64, bool)

	ExportVars() []Symbol
	ExportFuncs() []Symbol
	ExportForEach() []Symbol
	Pragmas() []Pragma
	Funcs() []FuncInfo

	// ObjectSlots lists the indices of exported variables that hold object references.
	ObjectSlots() []uint32
}

// Address kinds used when encoding symbol addresses.
const (
	KindFunc   uint8 = 1
	KindGlobal uint8 = 2
)

// Address builds a stable symbol address: the module index in the upper 32 bits, the kind in
// the next 8 and the index within the module below that.
func Address(module uint8, kind uint8, index uint32) uint64 {
	return uint64(module)<<32 | uint64(kind)<<24 | uint64(index&0xFFFFFF)
}

// SplitAddress reverses Address.
func SplitAddress(addr uint64) (module uint8, kind uint8, index uint32) {
	return uint8(addr >> 32), uint8(addr >> 24), uint32(addr & 0xFFFFFF)
}
