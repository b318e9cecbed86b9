package objfile_test

import (
	"bytes"
	"testing"

	"github.com/vmtoolchain/vmasm/objfile"
)

func TestObjectRoundTrip(t *testing.T) {
	obj := &objfile.Object{
		Text: []byte{0x0F, 0, 0, 0, 0, 0, 0, 0},
		Data: []byte{1, 2, 3, 4},
		Symbols: []objfile.Symbol{
			{Name: "main", Section: objfile.Text, Value: 0, Global: true},
		},
		Relocs: []objfile.Reloc{
			{Section: objfile.Data, Type: objfile.Absolute32, Offset: 0, Name: "main"},
		},
	}
	raw := obj.WriteTo()

	got, err := objfile.ReadObject("test.vmo", raw)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.Text, obj.Text) {
		t.Errorf("text = %v, want %v", got.Text, obj.Text)
	}
	if !bytes.Equal(got.Data, obj.Data) {
		t.Errorf("data = %v, want %v", got.Data, obj.Data)
	}
	if len(got.Symbols) != 1 || got.Symbols[0] != obj.Symbols[0] {
		t.Errorf("symbols = %+v", got.Symbols)
	}
	if len(got.Relocs) != 1 || got.Relocs[0] != obj.Relocs[0] {
		t.Errorf("relocs = %+v", got.Relocs)
	}
}

func TestObjectWriteIsDeterministic(t *testing.T) {
	obj := &objfile.Object{Text: []byte{1, 2, 3, 4, 5, 6, 7, 8}}
	a := obj.WriteTo()
	b := obj.WriteTo()
	if !bytes.Equal(a, b) {
		t.Error("WriteTo is not deterministic")
	}
}

func TestReadObjectBadMagic(t *testing.T) {
	raw := make([]byte, objfile.HeaderSize)
	_, err := objfile.ReadObject("bad.vmo", raw)
	if err == nil {
		t.Fatal("expected bad magic error")
	}
}

func TestReadObjectTruncated(t *testing.T) {
	_, err := objfile.ReadObject("short.vmo", []byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected truncated error")
	}
}

func TestExecutableRoundTrip(t *testing.T) {
	exe := &objfile.Executable{
		Text:       []byte{0x0F, 0, 0, 0, 0, 0, 0, 0},
		Data:       []byte{9, 9},
		Symbols:    []objfile.Symbol{{Name: "main", Section: objfile.Text, Value: 0, Global: true}},
		EntryPoint: 0,
	}
	raw := exe.WriteTo()

	got, err := objfile.ReadExecutable("test.vmc", raw)
	if err != nil {
		t.Fatal(err)
	}
	if got.EntryPoint != 0 {
		t.Errorf("entry = %d, want 0", got.EntryPoint)
	}
	if !bytes.Equal(got.Text, exe.Text) || !bytes.Equal(got.Data, exe.Data) {
		t.Errorf("got text=%v data=%v", got.Text, got.Data)
	}
	if len(got.Symbols) != 1 || got.Symbols[0] != exe.Symbols[0] {
		t.Errorf("symbols = %+v", got.Symbols)
	}
}

func TestExecutableHasNoRelocations(t *testing.T) {
	exe := &objfile.Executable{EntryPoint: 42}
	raw := exe.WriteTo()
	relCount, _ := relocCountAt(raw)
	if relCount != 0 {
		t.Errorf("rel_count = %d, want 0", relCount)
	}
}

func relocCountAt(raw []byte) (uint32, error) {
	return uint32(raw[36]) | uint32(raw[37])<<8 | uint32(raw[38])<<16 | uint32(raw[39])<<24, nil
}

func TestReadExecutableMissingTrailer(t *testing.T) {
	exe := &objfile.Executable{Text: []byte{1, 2, 3, 4, 5, 6, 7, 8}}
	raw := exe.WriteTo()
	raw = raw[:len(raw)-8] // strip trailer
	_, err := objfile.ReadExecutable("notrailer.vmc", raw)
	if err == nil {
		t.Fatal("expected missing trailer error")
	}
}
