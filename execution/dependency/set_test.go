package dependency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robbyt/go-jitscript/internal/helpers"
)

func TestSetEqual(t *testing.T) {
	t.Parallel()

	main := NewEntry(KindBuffer, "main", helpers.DigestBytes([]byte("main")))
	lib := NewEntry(KindFile, "/lib.wasm", helpers.DigestBytes([]byte("lib")))
	driver := NewEntry(KindLibrary, DriverName, helpers.DigestBytes([]byte("driver")))

	tests := []struct {
		name  string
		a     *Set
		b     *Set
		equal bool
	}{
		{
			name:  "same order",
			a:     NewSet(driver, main, lib),
			b:     NewSet(driver, main, lib),
			equal: true,
		},
		{
			name:  "reordered",
			a:     NewSet(driver, main, lib),
			b:     NewSet(lib, driver, main),
			equal: true,
		},
		{
			name:  "missing entry",
			a:     NewSet(driver, main, lib),
			b:     NewSet(driver, main),
			equal: false,
		},
		{
			name:  "extra entry",
			a:     NewSet(driver),
			b:     NewSet(driver, main),
			equal: false,
		},
		{
			name:  "changed hash",
			a:     NewSet(driver, main),
			b:     NewSet(driver, NewEntry(KindBuffer, "main", helpers.DigestBytes([]byte("main2")))),
			equal: false,
		},
		{
			name:  "changed kind",
			a:     NewSet(main),
			b:     NewSet(NewEntry(KindFile, main.Name, main.Hash)),
			equal: false,
		},
		{
			name:  "duplicates are counted",
			a:     NewSet(main, main, lib),
			b:     NewSet(main, lib, lib),
			equal: false,
		},
		{
			name:  "both empty",
			a:     NewSet(),
			b:     nil,
			equal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.equal, tt.a.Equal(tt.b))
		})
	}
}

func TestSetEntriesKeepInsertionOrder(t *testing.T) {
	t.Parallel()

	s := NewSet()
	s.AddDependency(KindModule, "b", helpers.DigestBytes([]byte("b")))
	s.AddDependency(KindBuffer, "a", helpers.DigestBytes([]byte("a")))

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].Name)
	assert.Equal(t, "a", entries[1].Name)

	// returned slice is a copy
	entries[0].Name = "mutated"
	assert.Equal(t, "b", s.Entries()[0].Name)
}

func TestSetDiff(t *testing.T) {
	t.Parallel()

	shared := NewEntry(KindLibrary, DriverName, helpers.DigestBytes([]byte("d")))
	oldMain := NewEntry(KindBuffer, "main", helpers.DigestBytes([]byte("v1")))
	newMain := NewEntry(KindBuffer, "main", helpers.DigestBytes([]byte("v2")))

	onlyHere, onlyThere := NewSet(shared, oldMain).Diff(NewSet(newMain, shared))
	assert.Equal(t, []Entry{oldMain}, onlyHere)
	assert.Equal(t, []Entry{newMain}, onlyThere)

	onlyHere, onlyThere = NewSet(shared).Diff(NewSet(shared))
	assert.Empty(t, onlyHere)
	assert.Empty(t, onlyThere)
}

func TestKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "file", KindFile.String())
	assert.Equal(t, "buffer", KindBuffer.String())
	assert.Equal(t, "module", KindModule.String())
	assert.Equal(t, "library", KindLibrary.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}

func TestDriverLibrary(t *testing.T) {
	t.Run("stable across calls", func(t *testing.T) {
		a, b := DriverLibrary(), DriverLibrary()
		assert.Equal(t, a, b)
		assert.Equal(t, KindLibrary, a.Kind)
		assert.Equal(t, DriverName, a.Name)
	})

	t.Run("pinned digest", func(t *testing.T) {
		want := helpers.DigestBytes([]byte("pinned"))
		orig := driverDigest
		driverDigest = want.String()
		t.Cleanup(func() { driverDigest = orig })

		assert.Equal(t, want, DriverLibrary().Hash)
	})

	t.Run("malformed pin falls back", func(t *testing.T) {
		orig := driverDigest
		driverDigest = "not-hex"
		t.Cleanup(func() { driverDigest = orig })

		assert.Equal(t, helpers.DigestBytes([]byte(buildFingerprint())), DriverLibrary().Hash)
	})
}

func TestModuleLibrary(t *testing.T) {
	t.Parallel()

	a := ModuleLibrary("wazero", "example.invalid/not-linked", "v0")
	b := ModuleLibrary("wazero", "example.invalid/not-linked", "v1")
	assert.Equal(t, KindLibrary, a.Kind)
	assert.Equal(t, "wazero", a.Name)
	assert.NotEqual(t, a.Hash, b.Hash)
}
