package linker_test

import (
	"testing"

	"github.com/vmtoolchain/vmasm/linker"
	"github.com/vmtoolchain/vmasm/objfile"
)

func TestLinkTwoObjects(t *testing.T) {
	objA := &objfile.Object{
		Text: make([]byte, 16),
		Symbols: []objfile.Symbol{
			{Name: "main", Section: objfile.Text, Value: 0, Global: true},
		},
	}
	objB := &objfile.Object{
		Text: make([]byte, 8),
		Symbols: []objfile.Symbol{
			{Name: "helper", Section: objfile.Text, Value: 0, Global: true},
		},
		Relocs: []objfile.Reloc{
			{Section: objfile.Text, Type: objfile.Absolute32, Offset: 4, Name: "main"},
		},
	}

	exe, err := linker.Link([]string{"a.vmo", "b.vmo"}, []*objfile.Object{objA, objB})
	if err != nil {
		t.Fatal(err)
	}
	if len(exe.Text) != 24 {
		t.Fatalf("text len = %d, want 24", len(exe.Text))
	}
	if exe.EntryPoint != 0 {
		t.Errorf("entry = %d, want 0", exe.EntryPoint)
	}
	got := exe.Text[20:24]
	want := []byte{0, 0, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("patched bytes = %v, want %v", got, want)
		}
	}

	names := map[string]objfile.Symbol{}
	for _, s := range exe.Symbols {
		names[s.Name] = s
	}
	if names["helper"].Value != 16 {
		t.Errorf("helper = %+v, want value 16", names["helper"])
	}
	if names["main"].Value != 0 {
		t.Errorf("main = %+v, want value 0", names["main"])
	}
}

func TestLinkDuplicateSymbolNamesBothPaths(t *testing.T) {
	mkObj := func() *objfile.Object {
		return &objfile.Object{
			Text:    make([]byte, 8),
			Symbols: []objfile.Symbol{{Name: "main", Section: objfile.Text, Value: 0, Global: true}},
		}
	}
	_, err := linker.Link([]string{"a.vmo", "b.vmo"}, []*objfile.Object{mkObj(), mkObj()})
	if err == nil {
		t.Fatal("expected duplicate symbol error")
	}
	msg := err.Error()
	if !contains(msg, "a.vmo") || !contains(msg, "b.vmo") {
		t.Errorf("error %q does not name both objects", msg)
	}
}

func TestLinkUndefinedSymbol(t *testing.T) {
	obj := &objfile.Object{
		Text: make([]byte, 8),
		Relocs: []objfile.Reloc{
			{Section: objfile.Text, Type: objfile.Absolute32, Offset: 4, Name: "main"},
		},
	}
	_, err := linker.Link([]string{"b.vmo"}, []*objfile.Object{obj})
	if err == nil {
		t.Fatal("expected undefined symbol error")
	}
	if !contains(err.Error(), "main") {
		t.Errorf("error %q does not name 'main'", err.Error())
	}
}

func TestLinkEntryPointDefaultsToZero(t *testing.T) {
	obj := &objfile.Object{Text: make([]byte, 8)}
	exe, err := linker.Link([]string{"a.vmo"}, []*objfile.Object{obj})
	if err != nil {
		t.Fatal(err)
	}
	if exe.EntryPoint != 0 {
		t.Errorf("entry = %d, want 0", exe.EntryPoint)
	}
}

func TestLinkDataRelocation(t *testing.T) {
	objData := &objfile.Object{
		Data: make([]byte, 4),
		Symbols: []objfile.Symbol{
			{Name: "ptr", Section: objfile.Data, Value: 0},
		},
		Relocs: []objfile.Reloc{
			{Section: objfile.Data, Type: objfile.Absolute32, Offset: 0, Name: "main"},
		},
	}
	objMain := &objfile.Object{
		Text: make([]byte, 8),
		Symbols: []objfile.Symbol{
			{Name: "main", Section: objfile.Text, Value: 0, Global: true},
		},
	}

	exe, err := linker.Link([]string{"data.vmo", "main.vmo"}, []*objfile.Object{objData, objMain})
	if err != nil {
		t.Fatal(err)
	}
	if len(exe.Data) != 4 {
		t.Fatalf("data len = %d", len(exe.Data))
	}
	for i, b := range exe.Data {
		if b != 0 {
			t.Errorf("data[%d] = %d, want 0 (main resolves to absolute address 0)", i, b)
		}
	}
}

func TestLinkIsDeterministic(t *testing.T) {
	mk := func() []*objfile.Object {
		return []*objfile.Object{
			{Text: make([]byte, 8), Symbols: []objfile.Symbol{{Name: "main", Section: objfile.Text, Global: true}}},
		}
	}
	a, err := linker.Link([]string{"a.vmo"}, mk())
	if err != nil {
		t.Fatal(err)
	}
	b, err := linker.Link([]string{"a.vmo"}, mk())
	if err != nil {
		t.Fatal(err)
	}
	if string(a.WriteTo()) != string(b.WriteTo()) {
		t.Error("link output is not deterministic")
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
