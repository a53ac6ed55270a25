package asm

import (
	"io"
	"os"

	pc "github.com/prataprc/goparsec"

	"github.com/n2t-toolchain/hackc/internal/diag"
)

// ----------------------------------------------------------------------------
// Parser Combinator(s)

// This section defines the Parser Combinator for every token & instruction of the Asm
// language. Each combinator either manages an instruction (A Inst, C Inst, Label Decl) or
// a piece of it: tokens and identifiers. Comments (line or inline, starting at the first
// '/') are recognized and dropped during the AST -> Program conversion.

// Top level object, generates the traversable AST based on the input plus the PCs below.
var ast = pc.NewAST("assembler", 0)

var (
	// Parser combinator for an entire Assembler program (a sequence of comments and instructions)
	pProgram = ast.ManyUntil("program", nil, ast.OrdChoice("item", nil, pComment, pInstruction), pc.End())

	// Parser combinator for a generic Assembler instruction (either C, A or Label declaration)
	pInstruction = ast.OrdChoice("instruction", nil, pAInst, pCInst, pLabelDecl)
	// Parser combinator for comments in the Assembler program
	pComment = ast.And("comment", nil, pc.Atom("/", "/"), pc.Token(`(?m).*$`, "COMMENT"))

	// Parser combinator for A Instructions
	pAInst = ast.And("a-inst", nil, pc.Atom("@", "@"), pLabel)
	// Parser combinator for a new label declaration
	pLabelDecl = ast.And("label-decl", nil, pc.Atom("(", "("), pLabel, pc.Atom(")", ")"))
	// Parser combinator for C Instructions
	pCInst = ast.And("c-inst", nil,
		ast.Maybe("maybe-assign", nil, ast.And("assign", nil, pDest, pc.Atom("=", "="))),
		pComp, // 'comp' should always be provided
		ast.Maybe("maybe-goto", nil, ast.And("goto", nil, pc.Atom(";", ";"), pJump)),
	)
)

var (
	// Generic label parser (A Instruction + Label declaration)
	// NOTE: A label can be any sequence of letters, digits, and symbols (_, ., $, :).
	// NOTE: A label cannot begin with a leading digit (a symbol is indeed allowed).
	pLabel = ast.OrdChoice("label", nil, pc.Int(), pc.Token(`[A-Za-z_.$:][0-9a-zA-Z_.$:]*`, "SYMBOL"))

	// Generic destination parser (C Instruction subsection)
	// NOTE: longer mnemonics are tried first, else the BFS ordchoice would match a prefix.
	pDest = ast.OrdChoice("dest", nil,
		pc.Atom("AMD", "AMD"), pc.Atom("AM", "AM"), pc.Atom("AD", "AD"), pc.Atom("MD", "MD"),
		pc.Atom("D", "D"), pc.Atom("A", "A"), pc.Atom("M", "M"),
	)

	// Generic computation parser (C Instruction subsection)
	// NOTE: multi-char mnemonics are tried before their single-char prefixes for the same reason.
	pComp = ast.OrdChoice("comp", nil,
		// - Bitwise register with register operations
		pc.Atom("D&A", "D&A"), pc.Atom("D&M", "D&M"),
		pc.Atom("D|A", "D|A"), pc.Atom("D|M", "D|M"),
		// - Register with register operations
		pc.Atom("D+A", "D+A"), pc.Atom("D+M", "D+M"),
		pc.Atom("D-A", "D-A"), pc.Atom("D-M", "D-M"),
		pc.Atom("A-D", "A-D"), pc.Atom("M-D", "M-D"),
		// - Increment and decrement operations
		pc.Atom("D+1", "D+1"), pc.Atom("A+1", "A+1"), pc.Atom("M+1", "M+1"),
		pc.Atom("D-1", "D-1"), pc.Atom("A-1", "A-1"), pc.Atom("M-1", "M-1"),
		// - Binary and numerical negations
		pc.Atom("!D", "!D"), pc.Atom("!A", "!A"), pc.Atom("!M", "!M"),
		pc.Atom("-1", "-1"), pc.Atom("-D", "-D"), pc.Atom("-A", "-A"), pc.Atom("-M", "-M"),
		// - Constants and identities
		pc.Atom("0", "0"), pc.Atom("1", "1"),
		pc.Atom("D", "D"), pc.Atom("A", "A"), pc.Atom("M", "M"),
	)

	// Generic jump parser (C Instruction subsection)
	pJump = ast.OrdChoice("jump", nil,
		pc.Atom("JNE", "JNE"), pc.Atom("JEQ", "JEQ"),
		pc.Atom("JGT", "JGT"), pc.Atom("JGE", "JGE"),
		pc.Atom("JLT", "JLT"), pc.Atom("JLE", "JLE"),
		pc.Atom("JMP", "JMP"),
	)
)

// ----------------------------------------------------------------------------
// Asm Parser

// Parser reads Hack assembly text and produces a flat 'asm.Program'. It uses parser
// combinators to obtain the AST from the source (the library reads the usual feature
// flags as env vars: PARSEC_DEBUG, EXPORT_AST, PRINT_AST), then does a single DFS pass
// over the (flat, one level deep) AST to extract the type-safe Program.
type Parser struct{ reader io.Reader }

// NewParser returns a Parser reading assembly source from 'r'.
func NewParser(r io.Reader) Parser {
	return Parser{reader: r}
}

// Parse drives the two steps of the parsing pipeline: Text -> AST using the combinators
// above, then AST -> Program by walking the (flat) tree.
func (p *Parser) Parse() (Program, error) {
	content, err := io.ReadAll(p.reader)
	if err != nil {
		return nil, diag.Errorf(diag.IO, "cannot read input: %s", err)
	}

	root, success := p.FromSource(content)
	if !success {
		return nil, diag.Errorf(diag.Syntax, "failed to parse assembly source")
	}

	return p.FromAST(root)
}

// FromSource scans the textual input and returns a traversable AST.
func (p *Parser) FromSource(source []byte) (pc.Queryable, bool) {
	if os.Getenv("PARSEC_DEBUG") != "" {
		ast.SetDebug()
	}

	root, scanner := ast.Parsewith(pProgram, pc.NewScanner(source))
	_, remainder := scanner.Match(`(?m)\s*\z`)

	return root, remainder != nil
}

// FromAST takes the root node of the parsed AST and extracts the flat 'asm.Program'.
func (p *Parser) FromAST(root pc.Queryable) (Program, error) {
	program := Program{}

	if root == nil || root.GetName() != "program" {
		return nil, diag.Errorf(diag.Syntax, "expected node 'program'")
	}

	for _, child := range root.GetChildren() {
		switch child.GetName() {
		case "a-inst":
			inst, err := p.HandleAInst(child)
			if err != nil {
				return nil, err
			}
			program = append(program, inst)

		case "c-inst":
			inst, err := p.HandleCInst(child)
			if err != nil {
				return nil, err
			}
			program = append(program, inst)

		case "label-decl":
			inst, err := p.HandleLabelDecl(child)
			if err != nil {
				return nil, err
			}
			program = append(program, inst)

		case "comment": // Comment nodes carry no semantic meaning, skip them
			continue

		default:
			return nil, diag.Errorf(diag.Syntax, "unrecognized node '%s'", child.GetName())
		}
	}

	return program, nil
}

// HandleAInst converts a "a-inst" node to an 'asm.AInstruction'.
func (Parser) HandleAInst(inst pc.Queryable) (Statement, error) {
	children := inst.GetChildren()
	if len(children) != 2 {
		return nil, diag.Errorf(diag.Syntax, "malformed A instruction")
	}

	symbol := children[1]
	if symbol.GetName() != "INT" && symbol.GetName() != "SYMBOL" {
		return nil, diag.Errorf(diag.Syntax, "expected 'SYMBOL' or 'INT', got %s", symbol.GetName())
	}

	return AInstruction{Location: symbol.GetValue()}, nil
}

// HandleCInst converts a "c-inst" node to an 'asm.CInstruction'.
func (Parser) HandleCInst(inst pc.Queryable) (Statement, error) {
	children := inst.GetChildren()
	if len(children) != 3 {
		return nil, diag.Errorf(diag.Syntax, "malformed C instruction")
	}

	maybeAssign, comp, maybeGoto := children[0], children[1], children[2]

	result := CInstruction{Comp: comp.GetValue()}
	if maybeAssign.GetName() == "assign" && len(maybeAssign.GetChildren()) == 2 {
		result.Dest = maybeAssign.GetChildren()[0].GetValue()
	}
	if maybeGoto.GetName() == "goto" && len(maybeGoto.GetChildren()) == 2 {
		result.Jump = maybeGoto.GetChildren()[1].GetValue()
	}

	if result.Dest == "" && result.Jump == "" {
		return nil, diag.Errorf(diag.Syntax, "C instruction missing both 'dest' and 'jump'")
	}

	return result, nil
}

// HandleLabelDecl converts a "label-decl" node to an 'asm.LabelDecl'.
func (Parser) HandleLabelDecl(decl pc.Queryable) (Statement, error) {
	children := decl.GetChildren()
	if len(children) != 3 {
		return nil, diag.Errorf(diag.Syntax, "malformed label declaration")
	}

	symbol := children[1]
	if symbol.GetName() != "SYMBOL" {
		return nil, diag.Errorf(diag.Syntax, "expected 'SYMBOL' label name, got %s", symbol.GetName())
	}

	return LabelDecl{Name: symbol.GetValue()}, nil
}
