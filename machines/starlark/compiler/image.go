package compiler

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	starlarkLib "go.starlark.net/starlark"
)

// image is the serialised form of the compiled programs. Hosts lists the names bound by the
// symbol resolver and LibGlobals the library globals visible to main, both sorted.
type image struct {
	Main       []byte   `cbor:"1,keyasint"`
	Lib        []byte   `cbor:"2,keyasint,omitempty"`
	Hosts      []string `cbor:"3,keyasint,omitempty"`
	LibGlobals []string `cbor:"4,keyasint,omitempty"`
}

var imageEncMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

func encodeImage(main, lib *starlarkLib.Program, hosts, libGlobals []string) ([]byte, error) {
	img := image{Hosts: hosts, LibGlobals: libGlobals}
	var buf bytes.Buffer
	if err := main.Write(&buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecCreationFailed, err)
	}
	img.Main = bytes.Clone(buf.Bytes())
	if lib != nil {
		buf.Reset()
		if err := lib.Write(&buf); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExecCreationFailed, err)
		}
		img.Lib = bytes.Clone(buf.Bytes())
	}
	return imageEncMode.Marshal(img)
}

// DecodeImage restores the compiled programs of a code image. lib is nil when the image was
// compiled without a library.
func DecodeImage(data []byte) (main, lib *starlarkLib.Program, err error) {
	_, main, lib, err = decodeImage(data)
	return main, lib, err
}

func decodeImage(data []byte) (img image, main, lib *starlarkLib.Program, err error) {
	if err := cbor.Unmarshal(data, &img); err != nil {
		return img, nil, nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if len(img.Main) == 0 {
		return img, nil, nil, fmt.Errorf("%w: missing main program", ErrInvalidImage)
	}
	if main, err = starlarkLib.CompiledProgram(bytes.NewReader(img.Main)); err != nil {
		return img, nil, nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if len(img.Lib) > 0 {
		if lib, err = starlarkLib.CompiledProgram(bytes.NewReader(img.Lib)); err != nil {
			return img, nil, nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
		}
	}
	return img, main, lib, nil
}
