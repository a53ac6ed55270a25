package vm

import (
	"io"
	"os"
	"strconv"

	pc "github.com/prataprc/goparsec"

	"github.com/n2t-toolchain/hackc/internal/diag"
)

// ----------------------------------------------------------------------------
// Parser Combinator(s)

// This section defines the Parser Combinator for every token & operation of the VM
// language. Each combinator either manages an operation (MemoryOp, ArithmeticOp, ...) or
// a piece of it (tokens, identifiers). Comments are recognized and dropped while walking
// the (flat, one level deep) AST into a 'vm.Module'.

// Top level object, generates the traversable AST based on the input plus the PCs below.
var ast = pc.NewAST("virtual_machine", 0)

var (
	// Parser combinator for a VM module: a sequence of comments and operations.
	pModule = ast.ManyUntil("module", nil, ast.OrdChoice("node", nil, pComment, pOperation), pc.End())

	// Parser combinator for comments in the VM program.
	pComment = ast.And("comment", nil, pc.Atom("//", "//"), pc.Token(`(?m).*$`, "COMMENT"))
	// Parser combinator for a generic VM operation.
	pOperation = ast.OrdChoice("operation", nil,
		pMemoryOp, pArithmeticOp, pLabelDecl, pGotoOp,
		pFuncDecl, pFuncCallOp, pReturnOp,
	)

	// Memory operation, compliant with the syntax: "{push|pop} {segment} {index}"
	pMemoryOp = ast.And("memory_op", nil, pMemOpType, pSegment, pc.Int())
	// Arithmetic/logical operation, unary or binary, acting on the stack's top.
	pArithmeticOp = ast.And("arithmetic_op", nil, pArithOpType)

	// Label declaration, compliant with the syntax: "label {symbol}"
	pLabelDecl = ast.And("label_decl", nil, pc.Atom("label", "LABEL"), pIdent)
	// Jump operation, compliant with the syntax: "{if-goto|goto} {symbol}"
	pGotoOp = ast.And("goto_op", nil, pJumpType, pIdent)

	// Function declaration, compliant with the syntax: "function {name} {n_locals}"
	pFuncDecl = ast.And("func_decl", nil, pc.Atom("function", "FUNC"), pIdent, pc.Int())
	// Function call operation, compliant with the syntax: "call {name} {n_args}"
	pFuncCallOp = ast.And("func_call", nil, pc.Atom("call", "CALL"), pIdent, pc.Int())
	// Return operation, compliant with the syntax: "return"
	pReturnOp = ast.And("return_op", nil, pc.Atom("return", "RETURN"))
)

var (
	// Generic identifier parser (for label and function names)
	// NOTE: an ident can be any sequence of letters, digits, and symbols (_, ., $, :).
	// NOTE: an ident cannot begin with a leading digit (a symbol is indeed allowed).
	pIdent = pc.Token(`[A-Za-z_.$:][0-9a-zA-Z_.$:]*`, "IDENT")

	// Available memory operation types (push and pop, the only two since it's stack based).
	pMemOpType = ast.OrdChoice("mem_op_type", nil, pc.Atom("push", "PUSH"), pc.Atom("pop", "POP"))
	// Available memory segments.
	pSegment = ast.OrdChoice("mem_segment", nil,
		pc.Atom("argument", "ARGUMENT"), pc.Atom("local", "LOCAL"),
		pc.Atom("static", "STATIC"), pc.Atom("constant", "CONSTANT"),
		pc.Atom("this", "THIS"), pc.Atom("that", "THAT"),
		pc.Atom("temp", "TEMP"), pc.Atom("pointer", "POINTER"),
	)

	// Available arithmetic/logical operation types.
	pArithOpType = ast.OrdChoice("operations", nil,
		pc.Atom("eq", "EQ"), pc.Atom("gt", "GT"), pc.Atom("lt", "LT"),
		pc.Atom("add", "ADD"), pc.Atom("sub", "SUB"), pc.Atom("neg", "NEG"),
		pc.Atom("not", "NOT"), pc.Atom("and", "AND"), pc.Atom("or", "OR"),
	)

	// Jump types: conditional (if-goto, tried first since it's a superstring of a prefix) or
	// unconditional (goto).
	pJumpType = ast.OrdChoice("jump_type", nil, pc.Atom("if-goto", "IF-GOTO"), pc.Atom("goto", "GOTO"))
)

// ----------------------------------------------------------------------------
// Vm Parser

// Parser reads VM source text and produces a 'vm.Module'. Like the Assembler, the VM
// grammar is flat and line-oriented, so an AST over a single 'module' node (rather than
// a deeply nested tree) is not the kind of persisted AST spec §9 rules out for Jack.
type Parser struct{ reader io.Reader }

// NewParser returns a Parser reading VM source from 'r'.
func NewParser(r io.Reader) Parser {
	return Parser{reader: r}
}

// Parse drives Text -> AST -> Module.
func (p *Parser) Parse() (Module, error) {
	content, err := io.ReadAll(p.reader)
	if err != nil {
		return nil, diag.Errorf(diag.IO, "cannot read input: %s", err)
	}

	root, success := p.FromSource(content)
	if !success {
		return nil, diag.Errorf(diag.Syntax, "failed to parse VM source")
	}

	return p.FromAST(root)
}

// FromSource scans the textual input and returns a traversable AST.
func (p *Parser) FromSource(source []byte) (pc.Queryable, bool) {
	if os.Getenv("PARSEC_DEBUG") != "" {
		ast.SetDebug()
	}

	root, scanner := ast.Parsewith(pModule, pc.NewScanner(source))
	_, remainder := scanner.Match(`(?m)\s*\z`)

	return root, remainder != nil
}

// FromAST takes the root node of the parsed AST and extracts the 'vm.Module'.
func (p *Parser) FromAST(root pc.Queryable) (Module, error) {
	module := Module{}

	if root == nil || root.GetName() != "module" {
		return nil, diag.Errorf(diag.Syntax, "expected node 'module'")
	}

	for _, child := range root.GetChildren() {
		var op Operation
		var err error

		switch child.GetName() {
		case "memory_op":
			op, err = p.HandleMemoryOp(child)
		case "arithmetic_op":
			op, err = p.HandleArithmeticOp(child)
		case "label_decl":
			op, err = p.HandleLabelDecl(child)
		case "goto_op":
			op, err = p.HandleGotoOp(child)
		case "func_decl":
			op, err = p.HandleFuncDecl(child)
		case "return_op":
			op, err = p.HandleReturnOp(child)
		case "func_call":
			op, err = p.HandleFuncCall(child)
		case "comment":
			continue
		default:
			err = diag.Errorf(diag.Syntax, "unrecognized node '%s'", child.GetName())
		}

		if err != nil {
			return nil, err
		}
		module = append(module, op)
	}

	return module, nil
}

// HandleMemoryOp converts a "memory_op" node to a 'vm.MemoryOp'.
func (Parser) HandleMemoryOp(node pc.Queryable) (Operation, error) {
	children := node.GetChildren()
	if len(children) != 3 {
		return nil, diag.Errorf(diag.Syntax, "malformed memory operation")
	}

	operation := OperationType(children[0].GetValue())
	segment := SegmentType(children[1].GetValue())
	offset, err := strconv.ParseUint(children[2].GetValue(), 10, 16)
	if err != nil {
		return nil, diag.Errorf(diag.Syntax, "invalid memory operation offset '%s'", children[2].GetValue())
	}

	return MemoryOp{Operation: operation, Segment: segment, Offset: uint16(offset)}, nil
}

// HandleArithmeticOp converts an "arithmetic_op" node to a 'vm.ArithmeticOp'.
func (Parser) HandleArithmeticOp(node pc.Queryable) (Operation, error) {
	children := node.GetChildren()
	if len(children) != 1 {
		return nil, diag.Errorf(diag.Syntax, "malformed arithmetic operation")
	}
	return ArithmeticOp{Operation: ArithOpType(children[0].GetValue())}, nil
}

// HandleLabelDecl converts a "label_decl" node to a 'vm.LabelDecl'.
func (Parser) HandleLabelDecl(node pc.Queryable) (Operation, error) {
	children := node.GetChildren()
	if len(children) != 2 {
		return nil, diag.Errorf(diag.Syntax, "malformed label declaration")
	}
	return LabelDecl{Name: children[1].GetValue()}, nil
}

// HandleGotoOp converts a "goto_op" node to a 'vm.GotoOp'.
func (Parser) HandleGotoOp(node pc.Queryable) (Operation, error) {
	children := node.GetChildren()
	if len(children) != 2 {
		return nil, diag.Errorf(diag.Syntax, "malformed goto operation")
	}
	return GotoOp{Jump: JumpType(children[0].GetValue()), Label: children[1].GetValue()}, nil
}

// HandleFuncDecl converts a "func_decl" node to a 'vm.FuncDecl'.
func (Parser) HandleFuncDecl(node pc.Queryable) (Operation, error) {
	children := node.GetChildren()
	if len(children) != 3 {
		return nil, diag.Errorf(diag.Syntax, "malformed function declaration")
	}
	nLocal, err := strconv.ParseUint(children[2].GetValue(), 10, 16)
	if err != nil {
		return nil, diag.Errorf(diag.Syntax, "invalid local count '%s'", children[2].GetValue())
	}
	return FuncDecl{Name: children[1].GetValue(), NLocal: uint16(nLocal)}, nil
}

// HandleReturnOp converts a "return_op" node to a 'vm.ReturnOp'.
func (Parser) HandleReturnOp(node pc.Queryable) (Operation, error) {
	return ReturnOp{}, nil
}

// HandleFuncCall converts a "func_call" node to a 'vm.FuncCallOp'.
func (Parser) HandleFuncCall(node pc.Queryable) (Operation, error) {
	children := node.GetChildren()
	if len(children) != 3 {
		return nil, diag.Errorf(diag.Syntax, "malformed function call")
	}
	nArgs, err := strconv.ParseUint(children[2].GetValue(), 10, 16)
	if err != nil {
		return nil, diag.Errorf(diag.Syntax, "invalid argument count '%s'", children[2].GetValue())
	}
	return FuncCallOp{Name: children[1].GetValue(), NArgs: uint16(nArgs)}, nil
}
