package compiler

import (
	"fmt"

	"github.com/tetratelabs/wabin/binary"
	"github.com/tetratelabs/wabin/wasm"
)

func isImageSection(name string) bool {
	return name == LibrarySection || name == LibraryNameSection
}

// encodeImage produces the position independent code image: the main module with the library
// and its link name embedded as custom sections. Sections from an earlier image are replaced.
func encodeImage(main, lib *Module) []byte {
	image := *main.decoded
	image.CustomSections = nil
	for _, cs := range main.decoded.CustomSections {
		if !isImageSection(cs.Name) {
			image.CustomSections = append(image.CustomSections, cs)
		}
	}
	if lib != nil {
		image.CustomSections = append(image.CustomSections,
			&wasm.CustomSection{Name: LibrarySection, Data: lib.code},
			&wasm.CustomSection{Name: LibraryNameSection, Data: []byte(lib.LinkName())},
		)
	}
	return binary.EncodeModule(&image)
}

// SplitImage reverses encodeImage, returning the main module and the embedded library, which is
// nil when the image has none.
func SplitImage(image []byte) (main, lib []byte, err error) {
	main, lib, _, err = splitImage(image)
	return main, lib, err
}

func splitImage(image []byte) (main, lib []byte, libName string, err error) {
	m, err := binary.DecodeModule(image, Features)
	if err != nil {
		return nil, nil, "", fmt.Errorf("%w: %w", ErrInvalidModule, err)
	}
	kept := m.CustomSections[:0]
	for _, cs := range m.CustomSections {
		switch cs.Name {
		case LibrarySection:
			lib = cs.Data
		case LibraryNameSection:
			libName = string(cs.Data)
		default:
			kept = append(kept, cs)
		}
	}
	m.CustomSections = kept
	return binary.EncodeModule(m), lib, libName, nil
}

// decodeImage restores the modules of a code image for loading.
func decodeImage(image []byte) (main, lib *Module, err error) {
	mainCode, libCode, libName, err := splitImage(image)
	if err != nil {
		return nil, nil, err
	}
	if main, err = decode("image", mainCode); err != nil {
		return nil, nil, err
	}
	if libCode == nil {
		return main, nil, nil
	}
	if lib, err = decode("image-library", libCode); err != nil {
		return nil, nil, err
	}
	lib.linkName = libName
	return main, lib, nil
}
