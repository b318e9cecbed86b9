// Package asm implements the VM assembler's single-pass parser and section
// emitter. It consumes a macro-expanded, lexed token stream and produces an
// in-memory object: text bytes, data bytes, a symbol table, and a
// relocation table, ready for objfile.Object.WriteTo.
package asm

import (
	"errors"
	"fmt"

	"github.com/vmtoolchain/vmasm/byteio"
	"github.com/vmtoolchain/vmasm/isa"
	"github.com/vmtoolchain/vmasm/lexer"
	"github.com/vmtoolchain/vmasm/macro"
	"github.com/vmtoolchain/vmasm/objfile"
)

// errParse is the sentinel wrapped by every syntax error the parser
// reports: unexpected token kind, unknown mnemonic, register out of
// range, missing comma, or a symbolic operand where only a literal is
// allowed.
var errParse = errors.New("parse error")

// errSymbol is the sentinel wrapped when a symbol is defined twice within
// the same source file.
var errSymbol = errors.New("symbol error")

// Assemble runs the full assembler pipeline over source text: macro
// expansion, lexing, and single-pass parsing, producing a ready-to-write
// object. path is recorded on the result for error messages further down
// the toolchain; it plays no role in assembly itself.
func Assemble(path, src string) (*objfile.Object, error) {
	expanded, err := macro.Expand(src)
	if err != nil {
		return nil, err
	}

	toks, err := lexer.Lex(expanded)
	if err != nil {
		return nil, err
	}

	p := newParser(toks)
	if err := p.parse(); err != nil {
		return nil, err
	}

	var text []byte
	for _, in := range p.instrs {
		text = in.Encode(text)
	}

	return &objfile.Object{
		Path:    path,
		Text:    text,
		Data:    p.data,
		Symbols: p.symbols,
		Relocs:  p.relocs,
	}, nil
}

// parser holds the state of a single parse pass over a token stream.
type parser struct {
	toks []lexer.Token
	pos  int

	section objfile.Section // current section; Text or Data

	instrs  []isa.Instruction
	data    []byte
	symbols []objfile.Symbol
	relocs  []objfile.Reloc

	symIndex map[string]int // name -> index into symbols
}

func newParser(toks []lexer.Token) *parser {
	return &parser{
		toks:     toks,
		section:  objfile.Text,
		symIndex: map[string]int{},
	}
}

func (p *parser) cur() lexer.Token {
	return p.toks[p.pos]
}

func (p *parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if t.Kind != lexer.Eof {
		p.pos++
	}
	return t
}

func (p *parser) at(k lexer.Kind) bool {
	return p.cur().Kind == k
}

func (p *parser) expect(k lexer.Kind) (lexer.Token, error) {
	t := p.cur()
	if t.Kind != k {
		return t, fmt.Errorf("%w: expected %s, got %s at %d:%d", errParse, k, t.Kind, t.Line, t.Col)
	}
	return p.advance(), nil
}

// parse runs the single-pass parse over the entire token stream.
func (p *parser) parse() error {
	for !p.at(lexer.Eof) {
		switch {
		case p.at(lexer.Newline):
			p.advance()

		case p.at(lexer.Label):
			if err := p.parseLabel(); err != nil {
				return err
			}

		case p.at(lexer.Directive):
			if err := p.parseDirective(); err != nil {
				return err
			}

		case p.at(lexer.Ident):
			if p.section == objfile.Text {
				if err := p.parseInstruction(); err != nil {
					return err
				}
			} else {
				p.advance()
			}

		default:
			p.advance()
		}
	}
	return nil
}

// parseLabel handles a "NAME:" token, defining NAME in the current
// section at the section's current size.
func (p *parser) parseLabel() error {
	t := p.advance()
	name := t.Lexeme[:len(t.Lexeme)-1]
	return p.defineSymbol(name, p.sectionSize())
}

func (p *parser) sectionSize() uint32 {
	if p.section == objfile.Text {
		return uint32(len(p.instrs)) * isa.Width
	}
	return uint32(len(p.data))
}

// defineSymbol records name as defined in the current section at value.
// If name was previously declared via .global but never defined, the
// pending Undef entry is upgraded in place. A name already defined in a
// non-Undef section is a duplicate-definition error.
func (p *parser) defineSymbol(name string, value uint32) error {
	if idx, ok := p.symIndex[name]; ok {
		sym := &p.symbols[idx]
		if sym.Section != objfile.Undef {
			return fmt.Errorf("%w: duplicate definition of %q", errSymbol, name)
		}
		sym.Section = p.section
		sym.Value = value
		return nil
	}
	p.symIndex[name] = len(p.symbols)
	p.symbols = append(p.symbols, objfile.Symbol{Name: name, Section: p.section, Value: value})
	return nil
}

// declareGlobal marks name global, inserting a pending Undef entry if it
// has not been defined (or declared global) yet.
func (p *parser) declareGlobal(name string) {
	if idx, ok := p.symIndex[name]; ok {
		p.symbols[idx].Global = true
		return
	}
	p.symIndex[name] = len(p.symbols)
	p.symbols = append(p.symbols, objfile.Symbol{Name: name, Section: objfile.Undef, Global: true})
}

func (p *parser) parseDirective() error {
	t := p.advance()
	switch lowerDirective(t.Lexeme) {
	case ".text":
		p.section = objfile.Text
		return p.skipToNewline()

	case ".data":
		p.section = objfile.Data
		return p.skipToNewline()

	case ".global":
		return p.parseGlobal()

	case ".byte":
		return p.parseByte(t)

	case ".word":
		return p.parseWord(t)

	default:
		return p.skipToNewline()
	}
}

func (p *parser) skipToNewline() error {
	for !p.at(lexer.Newline) && !p.at(lexer.Eof) {
		p.advance()
	}
	return nil
}

func (p *parser) parseGlobal() error {
	for {
		name, err := p.expect(lexer.Ident)
		if err != nil {
			return err
		}
		p.declareGlobal(name.Lexeme)
		if p.at(lexer.Comma) {
			p.advance()
			continue
		}
		break
	}
	return nil
}

func (p *parser) parseByte(dir lexer.Token) error {
	if p.section != objfile.Data {
		return fmt.Errorf("%w: .byte only valid in .data section at %d:%d", errParse, dir.Line, dir.Col)
	}
	for {
		if p.at(lexer.Ident) {
			t := p.cur()
			return fmt.Errorf("%w: .byte does not support symbolic operands at %d:%d", errParse, t.Line, t.Col)
		}
		v, err := p.parseInt()
		if err != nil {
			return err
		}
		p.data = append(p.data, byte(v))
		if p.at(lexer.Comma) {
			p.advance()
			continue
		}
		break
	}
	return nil
}

func (p *parser) parseWord(dir lexer.Token) error {
	if p.section != objfile.Data {
		return fmt.Errorf("%w: .word only valid in .data section at %d:%d", errParse, dir.Line, dir.Col)
	}
	if p.at(lexer.Ident) {
		name := p.advance()
		offset := uint32(len(p.data))
		p.data = append(p.data, 0, 0, 0, 0)
		p.relocs = append(p.relocs, objfile.Reloc{
			Section: objfile.Data,
			Type:    objfile.Absolute32,
			Offset:  offset,
			Name:    name.Lexeme,
		})
		return nil
	}
	v, err := p.parseInt()
	if err != nil {
		return err
	}
	p.data = byteio.PutI32(p.data, v)
	return nil
}

// parseInt consumes a HexInt, BinInt, or DecInt token and returns its
// value.
func (p *parser) parseInt() (int32, error) {
	t := p.cur()
	switch t.Kind {
	case lexer.HexInt:
		p.advance()
		return parseBase(t, t.Lexeme[2:], 16)
	case lexer.BinInt:
		p.advance()
		return parseBase(t, t.Lexeme[2:], 2)
	case lexer.DecInt:
		p.advance()
		return parseBase(t, t.Lexeme, 10)
	default:
		return 0, fmt.Errorf("%w: expected integer, got %s at %d:%d", errParse, t.Kind, t.Line, t.Col)
	}
}

func parseBase(t lexer.Token, digits string, base int) (int32, error) {
	neg := false
	if base == 10 && len(digits) > 0 && digits[0] == '-' {
		neg = true
		digits = digits[1:]
	}
	var v int64
	for i := 0; i < len(digits); i++ {
		d, ok := digitValue(digits[i])
		if !ok || int(d) >= base {
			return 0, fmt.Errorf("%w: malformed integer %q at %d:%d", errParse, t.Lexeme, t.Line, t.Col)
		}
		v = v*int64(base) + int64(d)
	}
	if neg {
		v = -v
	}
	return int32(v), nil
}

func digitValue(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	default:
		return 0, false
	}
}

func lowerDirective(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
