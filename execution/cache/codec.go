package cache

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/fxamacker/cbor/v2"

	"github.com/robbyt/go-jitscript/execution/artifact"
	"github.com/robbyt/go-jitscript/execution/dependency"
	"github.com/robbyt/go-jitscript/internal/helpers"
)

const (
	infoMagic   = "jitscript-cache"
	infoVersion = 1

	// maxInfoSize bounds the metadata record read from disk.
	maxInfoSize = 16 << 20
	// maxImageSize bounds the recorded object size.
	maxImageSize = 1 << 32
)

type record struct {
	Magic      string             `cbor:"1,keyasint"`
	Version    uint16             `cbor:"2,keyasint"`
	Slot       string             `cbor:"3,keyasint"`
	Deps       []dependency.Entry `cbor:"4,keyasint"`
	ImageSize  uint64             `cbor:"5,keyasint"`
	ImageHash  helpers.Digest     `cbor:"6,keyasint"`
	Threadable bool               `cbor:"7,keyasint"`
	Meta       artifact.Metadata  `cbor:"8,keyasint"`
}

// Codec is the default Serializer. Metadata is written as canonical CBOR so that identical
// inputs produce byte-identical info files.
type Codec struct {
	logger *slog.Logger
	em     cbor.EncMode
}

var _ Serializer = (*Codec)(nil)

// NewCodec creates a Codec logging to the given handler.
func NewCodec(handler slog.Handler) (*Codec, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR enc mode: %w", err)
	}
	_, logger := helpers.SetupLogger(handler, "cache", "Codec")
	return &Codec{logger: logger, em: em}, nil
}

func (c *Codec) Read(
	obj, info io.Reader,
	slot string,
	deps *dependency.Set,
) (*Backend, bool, error) {
	logger := c.logger.With("slot", slot)

	raw, err := io.ReadAll(io.LimitReader(info, maxInfoSize+1))
	if err != nil {
		return nil, false, fmt.Errorf("%w: reading info: %w", ErrCorrupt, err)
	}
	if len(raw) > maxInfoSize {
		return nil, false, fmt.Errorf("%w: info exceeds %d bytes", ErrCorrupt, maxInfoSize)
	}

	var rec record
	if err := cbor.Unmarshal(raw, &rec); err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if rec.Magic != infoMagic || rec.Version != infoVersion {
		return nil, false, fmt.Errorf(
			"%w: unexpected header %q v%d", ErrCorrupt, rec.Magic, rec.Version)
	}

	if rec.Slot != slot {
		logger.Debug("Cache entry written for another context slot", "recorded", rec.Slot)
		return nil, false, fmt.Errorf(
			"%w: entry is for %s", ErrContextSlotNotAvail, rec.Slot)
	}

	recorded := dependency.NewSet(rec.Deps...)
	if !recorded.Equal(deps) {
		stale, fresh := recorded.Diff(deps)
		logger.Debug("Cache entry dependencies changed", "stale", stale, "fresh", fresh)
		return nil, false, fmt.Errorf(
			"%w: %d stale, %d new", ErrDependencyMismatch, len(stale), len(fresh))
	}

	if rec.ImageSize > maxImageSize {
		return nil, false, fmt.Errorf("%w: object size %d out of range", ErrCorrupt, rec.ImageSize)
	}
	image, err := io.ReadAll(io.LimitReader(obj, int64(rec.ImageSize)+1))
	if err != nil {
		return nil, false, fmt.Errorf("%w: reading object: %w", ErrCorrupt, err)
	}
	if uint64(len(image)) != rec.ImageSize {
		return nil, false, fmt.Errorf(
			"%w: object has %d bytes, expected %d", ErrCorrupt, len(image), rec.ImageSize)
	}
	if helpers.DigestBytes(image) != rec.ImageHash {
		return nil, false, fmt.Errorf("%w: object digest mismatch", ErrCorrupt)
	}

	logger.Debug("Cache entry validated", "deps", len(rec.Deps), "imageSize", len(image))
	return &Backend{
		Table: artifact.NewTable(image, rec.Meta),
		slot:  rec.Slot,
		deps:  recorded,
	}, rec.Threadable, nil
}

func (c *Codec) Write(
	obj, info io.Writer,
	slot string,
	deps *dependency.Set,
	backend artifact.Backend,
	threadable bool,
) error {
	if backend == nil {
		return fmt.Errorf("%w: backend is nil", ErrWrite)
	}
	image := backend.Image()

	rec := record{
		Magic:      infoMagic,
		Version:    infoVersion,
		Slot:       slot,
		Deps:       deps.Entries(),
		ImageSize:  uint64(len(image)),
		ImageHash:  helpers.DigestBytes(image),
		Threadable: threadable,
		Meta:       artifact.MetadataOf(backend),
	}
	encoded, err := c.em.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	if _, err := io.Copy(obj, bytes.NewReader(image)); err != nil {
		return fmt.Errorf("%w: object: %w", ErrWrite, err)
	}
	if _, err := info.Write(encoded); err != nil {
		return fmt.Errorf("%w: info: %w", ErrWrite, err)
	}

	c.logger.Debug("Cache entry written",
		"slot", slot, "deps", deps.Len(), "imageSize", len(image), "infoSize", len(encoded))
	return nil
}
