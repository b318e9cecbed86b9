package asm

import (
	"fmt"
	"strings"

	"github.com/vmtoolchain/vmasm/isa"
	"github.com/vmtoolchain/vmasm/lexer"
	"github.com/vmtoolchain/vmasm/objfile"
)

// parseInstruction parses one instruction statement starting at an Ident
// token (the mnemonic) and appends the resulting isa.Instruction to
// p.instrs. If the instruction carries a symbolic operand, a Text
// relocation is appended at the 4-byte immediate field of its encoded
// record.
func (p *parser) parseInstruction() error {
	mnemTok := p.advance()
	op, ok := isa.Mnemonic[strings.ToLower(mnemTok.Lexeme)]
	if !ok {
		return fmt.Errorf("%w: unknown mnemonic %q at %d:%d", errParse, mnemTok.Lexeme, mnemTok.Line, mnemTok.Col)
	}

	in := isa.Instruction{Op: op, Line: mnemTok.Line}

	switch op {
	case isa.LDI:
		rd, err := p.parseReg()
		if err != nil {
			return err
		}
		if err := p.expectComma(); err != nil {
			return err
		}
		imm, err := p.parseInt()
		if err != nil {
			return err
		}
		in.Rd, in.Imm = rd, imm

	case isa.MOV:
		rd, err := p.parseReg()
		if err != nil {
			return err
		}
		if err := p.expectComma(); err != nil {
			return err
		}
		rs1, err := p.parseReg()
		if err != nil {
			return err
		}
		in.Rd, in.Rs1 = rd, rs1

	case isa.ADD, isa.SUB, isa.AND, isa.OR, isa.XOR:
		rd, err := p.parseReg()
		if err != nil {
			return err
		}
		if err := p.expectComma(); err != nil {
			return err
		}
		rs1, err := p.parseReg()
		if err != nil {
			return err
		}
		if err := p.expectComma(); err != nil {
			return err
		}
		rs2, err := p.parseReg()
		if err != nil {
			return err
		}
		in.Rd, in.Rs1, in.Rs2 = rd, rs1, rs2

	case isa.LW:
		rd, err := p.parseReg()
		if err != nil {
			return err
		}
		if err := p.expectComma(); err != nil {
			return err
		}
		rs1, err := p.parseBracketedReg()
		if err != nil {
			return err
		}
		in.Rd, in.Rs1 = rd, rs1

	case isa.SW:
		rs2, err := p.parseReg()
		if err != nil {
			return err
		}
		if err := p.expectComma(); err != nil {
			return err
		}
		rs1, err := p.parseBracketedReg()
		if err != nil {
			return err
		}
		in.Rs1, in.Rs2 = rs1, rs2

	case isa.JMP, isa.CALL:
		imm, label, err := p.parseLabelOrInt()
		if err != nil {
			return err
		}
		in.Imm, in.LabelRef = imm, label

	case isa.BEQ, isa.BNE:
		rs1, err := p.parseReg()
		if err != nil {
			return err
		}
		if err := p.expectComma(); err != nil {
			return err
		}
		rs2, err := p.parseReg()
		if err != nil {
			return err
		}
		if err := p.expectComma(); err != nil {
			return err
		}
		imm, label, err := p.parseLabelOrInt()
		if err != nil {
			return err
		}
		in.Rs1, in.Rs2, in.Imm, in.LabelRef = rs1, rs2, imm, label

	case isa.RET, isa.HALT:
		// no operands

	default:
		return fmt.Errorf("%w: unhandled opcode %s at %d:%d", errParse, op, mnemTok.Line, mnemTok.Col)
	}

	idx := len(p.instrs)
	p.instrs = append(p.instrs, in)
	if in.HasLabelRef() {
		p.relocs = append(p.relocs, objfile.Reloc{
			Section: objfile.Text,
			Type:    objfile.Absolute32,
			Offset:  uint32(idx)*isa.Width + 4,
			Name:    in.LabelRef,
		})
	}
	return nil
}

// parseReg consumes a Register token and returns its register number.
func (p *parser) parseReg() (uint8, error) {
	t, err := p.expect(lexer.Register)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := 1; i < len(t.Lexeme); i++ {
		n = n*10 + int(t.Lexeme[i]-'0')
	}
	if n > isa.MaxRegister {
		return 0, fmt.Errorf("%w: register out of range %q at %d:%d", errParse, t.Lexeme, t.Line, t.Col)
	}
	return uint8(n), nil
}

// parseBracketedReg consumes "[" REG "]".
func (p *parser) parseBracketedReg() (uint8, error) {
	if _, err := p.expect(lexer.LBrack); err != nil {
		return 0, err
	}
	reg, err := p.parseReg()
	if err != nil {
		return 0, err
	}
	if _, err := p.expect(lexer.RBrack); err != nil {
		return 0, err
	}
	return reg, nil
}

// parseLabelOrInt consumes either an identifier (a deferred symbol
// reference) or an integer literal.
func (p *parser) parseLabelOrInt() (int32, string, error) {
	if p.at(lexer.Ident) {
		t := p.advance()
		return 0, t.Lexeme, nil
	}
	v, err := p.parseInt()
	return v, "", err
}

func (p *parser) expectComma() error {
	_, err := p.expect(lexer.Comma)
	return err
}
