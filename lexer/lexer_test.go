package lexer_test

import (
	"testing"

	"github.com/vmtoolchain/vmasm/lexer"
)

func kinds(toks []lexer.Token) []lexer.Kind {
	ks := make([]lexer.Kind, len(toks))
	for i, t := range toks {
		ks[i] = t.Kind
	}
	return ks
}

func TestLexEndsWithExactlyOneEof(t *testing.T) {
	toks, err := lexer.Lex("ldi r1, 0x2A\nhalt\n")
	if err != nil {
		t.Fatal(err)
	}
	eofCount := 0
	for i, tok := range toks {
		if tok.Kind == lexer.Eof {
			eofCount++
			if i != len(toks)-1 {
				t.Errorf("Eof token not last")
			}
		}
	}
	if eofCount != 1 {
		t.Errorf("got %d Eof tokens, want 1", eofCount)
	}
}

func TestLexBasicInstruction(t *testing.T) {
	toks, err := lexer.Lex("ldi r1, 0x2A")
	if err != nil {
		t.Fatal(err)
	}
	want := []lexer.Kind{lexer.Ident, lexer.Register, lexer.Comma, lexer.HexInt, lexer.Eof}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLexLabel(t *testing.T) {
	toks, err := lexer.Lex("L: beq r0, r0, L\n")
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Kind != lexer.Label || toks[0].Lexeme != "L:" {
		t.Errorf("got %+v, want Label L:", toks[0])
	}
}

func TestLexCommentIsDiscarded(t *testing.T) {
	toks, err := lexer.Lex("halt ; comment\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(toks) != 3 || toks[0].Kind != lexer.Ident || toks[1].Kind != lexer.Newline {
		t.Errorf("got %v", kinds(toks))
	}
}

func TestLexMultipleNewlinesCollapse(t *testing.T) {
	toks, err := lexer.Lex("halt\n\n\nret\n")
	if err != nil {
		t.Fatal(err)
	}
	want := []lexer.Kind{lexer.Ident, lexer.Newline, lexer.Ident, lexer.Newline, lexer.Eof}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestLexRegisterOutOfRangeFallsBackToIdent(t *testing.T) {
	toks, err := lexer.Lex("r32")
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Kind != lexer.Ident {
		t.Errorf("got %v, want Ident", toks[0].Kind)
	}
}

func TestLexUnknownTokenError(t *testing.T) {
	_, err := lexer.Lex("halt @\n")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestLexDirectiveStartingWithDigitIsError(t *testing.T) {
	_, err := lexer.Lex(".5\n")
	if err == nil {
		t.Fatal("expected error for .5")
	}
}

func TestLexLineColTracking(t *testing.T) {
	toks, err := lexer.Lex("halt\nret\n")
	if err != nil {
		t.Fatal(err)
	}
	// toks[2] is "ret" on line 2, column 1
	if toks[2].Line != 2 || toks[2].Col != 1 {
		t.Errorf("got line=%d col=%d, want 2:1", toks[2].Line, toks[2].Col)
	}
}

func TestLexBinAndDecInt(t *testing.T) {
	toks, err := lexer.Lex("0b101 -7")
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Kind != lexer.BinInt || toks[1].Kind != lexer.DecInt {
		t.Errorf("got %v", kinds(toks))
	}
}

func TestLexString(t *testing.T) {
	toks, err := lexer.Lex(`"hello \"world\""`)
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Kind != lexer.String {
		t.Errorf("got %v, want String", toks[0].Kind)
	}
}
