package byteio_test

import (
	"testing"

	"github.com/vmtoolchain/vmasm/byteio"
)

func TestPutGetU32RoundTrip(t *testing.T) {
	var buf []byte
	buf = byteio.PutU32(buf, 0xdeadbeef)
	v, err := byteio.GetU32(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0xdeadbeef {
		t.Errorf("got %#x, want %#x", v, 0xdeadbeef)
	}
}

func TestGetU32Truncated(t *testing.T) {
	_, err := byteio.GetU32([]byte{1, 2, 3}, 0)
	if err != byteio.ErrTruncated {
		t.Errorf("got %v, want ErrTruncated", err)
	}
}

func TestNameRoundTrip(t *testing.T) {
	var buf []byte
	buf = byteio.PutBytes(buf, []byte("main"))
	name, next, err := byteio.GetName(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if name != "main" || next != len(buf) {
		t.Errorf("got name=%q next=%d, want main/%d", name, next, len(buf))
	}
}

func TestPutU32AtPatchesInPlace(t *testing.T) {
	buf := make([]byte, 8)
	byteio.PutU32At(buf, 4, 0x2A)
	v, _ := byteio.GetU32(buf, 4)
	if v != 0x2A {
		t.Errorf("got %#x, want 0x2A", v)
	}
}
