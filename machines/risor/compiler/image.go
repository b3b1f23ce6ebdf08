package compiler

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// image is the serialised form of a compiled script. Risor bytecode has no stable encoding,
// so the image keeps the sources and Load compiles them again. Hosts lists the names bound
// by the symbol resolver, sorted.
type image struct {
	MainName string   `cbor:"1,keyasint"`
	Main     []byte   `cbor:"2,keyasint"`
	LibName  string   `cbor:"3,keyasint,omitempty"`
	Lib      []byte   `cbor:"4,keyasint,omitempty"`
	Hosts    []string `cbor:"5,keyasint,omitempty"`
}

var imageEncMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

func encodeImage(main, lib *Module, hosts []string) ([]byte, error) {
	img := image{MainName: main.name, Main: main.code, Hosts: hosts}
	if lib != nil {
		img.LibName, img.Lib = lib.name, lib.code
	}
	data, err := imageEncMode.Marshal(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecCreationFailed, err)
	}
	return data, nil
}

func decodeImage(data []byte) (image, error) {
	var img image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return img, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if len(img.Main) == 0 {
		return img, fmt.Errorf("%w: missing main source", ErrInvalidImage)
	}
	return img, nil
}
