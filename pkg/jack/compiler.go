package jack

import (
	"strconv"
	"strings"

	"github.com/n2t-toolchain/hackc/internal/diag"
	"github.com/n2t-toolchain/hackc/pkg/vm"
)

// ----------------------------------------------------------------------------
// Compiler

// Compiler is a recursive-descent, single-pass compiler: every compileX method is both
// the grammar's recognizer and the VM emitter for that construct. No intermediate AST is
// ever built; 'Emitter' accumulates the output module directly as parsing descends
// (spec's single-pass design note for this stage).
//
// Two tokens of lookahead ('cur', 'next') are kept buffered so a bare identifier can be
// told apart from 'name(...)', 'name.sub(...)' and 'name[...]' without backtracking.
type Compiler struct {
	file   string
	lexer  *Lexer
	cur    Token
	next   Token
	scopes *ScopeTable
	em     *Emitter

	class      string
	returnType string
	strict     bool // --typecheck: enables arity checks against the standard library ABI
}

// Compile lexes and compiles one Jack source file (one class) into its VM module.
func Compile(file string, source []byte, strict bool) (vm.Module, error) {
	c := &Compiler{file: file, lexer: NewLexer(file, source), scopes: NewScopeTable(), em: NewEmitter(), strict: strict}

	if err := c.fill(); err != nil {
		return nil, err
	}
	if err := c.fill(); err != nil {
		return nil, err
	}

	if err := c.compileClass(); err != nil {
		return nil, err
	}
	return c.em.Module(), nil
}

// fill advances the two-token lookahead window by one.
func (c *Compiler) fill() error {
	c.cur = c.next
	tok, err := c.lexer.Next()
	if err != nil {
		return err
	}
	c.next = tok
	return nil
}

func (c *Compiler) errf(format string, args ...any) error {
	return diag.At(diag.Syntax, c.file, c.cur.Line, format, args...)
}

func (c *Compiler) isKeyword(kw string) bool { return c.cur.Type == TokenKeyword && c.cur.Keyword == kw }
func (c *Compiler) isSymbol(s byte) bool     { return c.cur.Type == TokenSymbol && c.cur.Symbol == s }

func (c *Compiler) expectKeyword(kw string) error {
	if !c.isKeyword(kw) {
		return c.errf("expected keyword '%s'", kw)
	}
	return c.fill()
}

func (c *Compiler) expectSymbol(s byte) error {
	if !c.isSymbol(s) {
		return c.errf("expected '%c'", s)
	}
	return c.fill()
}

func (c *Compiler) expectIdentifier() (string, error) {
	if c.cur.Type != TokenIdentifier {
		return "", c.errf("expected identifier")
	}
	name := c.cur.Ident
	return name, c.fill()
}

// compileType consumes a Jack type: one of 'int'/'char'/'boolean' or a class identifier.
func (c *Compiler) compileType() (string, error) {
	if c.cur.Type == TokenKeyword && (c.cur.Keyword == "int" || c.cur.Keyword == "char" || c.cur.Keyword == "boolean") {
		typ := c.cur.Keyword
		return typ, c.fill()
	}
	if c.cur.Type == TokenIdentifier {
		return c.expectIdentifier()
	}
	return "", c.errf("expected type")
}

// ----------------------------------------------------------------------------
// class := 'class' id '{' classVarDec* subroutineDec* '}'

func (c *Compiler) compileClass() error {
	if err := c.expectKeyword("class"); err != nil {
		return err
	}
	name, err := c.expectIdentifier()
	if err != nil {
		return err
	}
	c.class = name
	c.scopes.PushClassScope(name)
	defer c.scopes.PopClassScope()

	if err := c.expectSymbol('{'); err != nil {
		return err
	}

	for c.isKeyword("static") || c.isKeyword("field") {
		if err := c.compileClassVarDec(); err != nil {
			return err
		}
	}
	for c.isKeyword("constructor") || c.isKeyword("function") || c.isKeyword("method") {
		if err := c.compileSubroutine(); err != nil {
			return err
		}
	}

	return c.expectSymbol('}')
}

// classVarDec := ('static'|'field') type id (',' id)* ';'
func (c *Compiler) compileClassVarDec() error {
	kind := KindStatic
	if c.isKeyword("field") {
		kind = KindField
	}
	if err := c.fill(); err != nil { // consume 'static'/'field'
		return err
	}

	typ, err := c.compileType()
	if err != nil {
		return err
	}
	name, err := c.expectIdentifier()
	if err != nil {
		return err
	}
	c.scopes.Declare(name, typ, kind)

	for c.isSymbol(',') {
		if err := c.fill(); err != nil {
			return err
		}
		name, err := c.expectIdentifier()
		if err != nil {
			return err
		}
		c.scopes.Declare(name, typ, kind)
	}

	return c.expectSymbol(';')
}

// ----------------------------------------------------------------------------
// subroutineDec := ('constructor'|'function'|'method') ('void'|type) id
//                  '(' parameterList ')' subroutineBody

func (c *Compiler) compileSubroutine() error {
	subKind := c.cur.Keyword
	if err := c.fill(); err != nil { // consume 'constructor'/'function'/'method'
		return err
	}

	if c.isKeyword("void") {
		c.returnType = "void"
		if err := c.fill(); err != nil {
			return err
		}
	} else {
		typ, err := c.compileType()
		if err != nil {
			return err
		}
		c.returnType = typ
	}

	name, err := c.expectIdentifier()
	if err != nil {
		return err
	}

	c.scopes.PushSubroutineScope()
	defer c.scopes.PopSubroutineScope()
	c.em.ResetLabels()

	if subKind == "method" {
		c.scopes.Declare("this", c.class, KindArgument)
	}

	if err := c.expectSymbol('('); err != nil {
		return err
	}
	if err := c.compileParameterList(); err != nil {
		return err
	}
	if err := c.expectSymbol(')'); err != nil {
		return err
	}

	return c.compileSubroutineBody(subKind, name)
}

// parameterList := ε | type id (',' type id)*
func (c *Compiler) compileParameterList() error {
	if c.isSymbol(')') {
		return nil
	}

	for {
		typ, err := c.compileType()
		if err != nil {
			return err
		}
		name, err := c.expectIdentifier()
		if err != nil {
			return err
		}
		c.scopes.Declare(name, typ, KindArgument)

		if !c.isSymbol(',') {
			return nil
		}
		if err := c.fill(); err != nil {
			return err
		}
	}
}

// subroutineBody := '{' varDec* statements '}'
func (c *Compiler) compileSubroutineBody(subKind, name string) error {
	if err := c.expectSymbol('{'); err != nil {
		return err
	}

	for c.isKeyword("var") {
		if err := c.compileVarDec(); err != nil {
			return err
		}
	}

	fullName := c.class + "." + name
	c.em.Function(fullName, uint16(c.scopes.Count(KindVar)))

	switch subKind {
	case "constructor":
		// §4.3.4: allocate the object, bind 'this' to it, before any other statement.
		c.em.PushConstant(uint16(c.scopes.Count(KindField)))
		c.em.Call("Memory.alloc", 1)
		c.em.Pop(vm.Pointer, 0)
	case "method":
		c.em.Push(vm.Argument, 0)
		c.em.Pop(vm.Pointer, 0)
	}

	if err := c.compileStatements(); err != nil {
		return err
	}

	return c.expectSymbol('}')
}

// varDec := 'var' type id (',' id)* ';'
func (c *Compiler) compileVarDec() error {
	if err := c.expectKeyword("var"); err != nil {
		return err
	}
	typ, err := c.compileType()
	if err != nil {
		return err
	}
	name, err := c.expectIdentifier()
	if err != nil {
		return err
	}
	c.scopes.Declare(name, typ, KindVar)

	for c.isSymbol(',') {
		if err := c.fill(); err != nil {
			return err
		}
		name, err := c.expectIdentifier()
		if err != nil {
			return err
		}
		c.scopes.Declare(name, typ, KindVar)
	}

	return c.expectSymbol(';')
}

// ----------------------------------------------------------------------------
// statements := statement*
// statement  := let | if | while | do | return

func (c *Compiler) compileStatements() error {
	for c.cur.Type == TokenKeyword {
		var err error
		switch c.cur.Keyword {
		case "let":
			err = c.compileLet()
		case "if":
			err = c.compileIf()
		case "while":
			err = c.compileWhile()
		case "do":
			err = c.compileDo()
		case "return":
			err = c.compileReturn()
		default:
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// let := 'let' id ('[' expression ']')? '=' expression ';'
func (c *Compiler) compileLet() error {
	if err := c.expectKeyword("let"); err != nil {
		return err
	}
	name, err := c.expectIdentifier()
	if err != nil {
		return err
	}

	if c.isSymbol('[') {
		if err := c.fill(); err != nil {
			return err
		}
		if err := c.compileExpression(); err != nil {
			return err
		}
		if err := c.expectSymbol(']'); err != nil {
			return err
		}

		symbol, err := c.scopes.Resolve(name)
		if err != nil {
			return err
		}
		c.em.Push(segmentFor(symbol.Kind), symbol.Index)
		c.em.Arithmetic(vm.Add)

		if err := c.expectSymbol('='); err != nil {
			return err
		}
		if err := c.compileExpression(); err != nil {
			return err
		}
		if err := c.expectSymbol(';'); err != nil {
			return err
		}

		// This order keeps the RHS's own array accesses (which also use pointer 1/that)
		// from corrupting the LHS's already-computed destination address.
		c.em.Pop(vm.Temp, 0)
		c.em.Pop(vm.Pointer, 1)
		c.em.Push(vm.Temp, 0)
		c.em.Pop(vm.That, 0)
		return nil
	}

	if err := c.expectSymbol('='); err != nil {
		return err
	}
	if err := c.compileExpression(); err != nil {
		return err
	}
	if err := c.expectSymbol(';'); err != nil {
		return err
	}

	symbol, err := c.scopes.Resolve(name)
	if err != nil {
		return err
	}
	c.em.Pop(segmentFor(symbol.Kind), symbol.Index)
	return nil
}

// if := 'if' '(' expression ')' '{' statements '}' ('else' '{' statements '}')?
func (c *Compiler) compileIf() error {
	if err := c.expectKeyword("if"); err != nil {
		return err
	}
	if err := c.expectSymbol('('); err != nil {
		return err
	}
	if err := c.compileExpression(); err != nil {
		return err
	}
	if err := c.expectSymbol(')'); err != nil {
		return err
	}

	// The counter is claimed before recursing into either branch, so labels nested
	// statements might declare can never collide with this if's own labels.
	i := c.em.NextIf()
	trueLabel, falseLabel, endLabel := labelSet("IF", i)

	c.em.IfGoto(trueLabel)
	c.em.Goto(falseLabel)
	c.em.Label(trueLabel)

	if err := c.expectSymbol('{'); err != nil {
		return err
	}
	if err := c.compileStatements(); err != nil {
		return err
	}
	if err := c.expectSymbol('}'); err != nil {
		return err
	}

	if c.isKeyword("else") {
		c.em.Goto(endLabel)
		c.em.Label(falseLabel)

		if err := c.fill(); err != nil {
			return err
		}
		if err := c.expectSymbol('{'); err != nil {
			return err
		}
		if err := c.compileStatements(); err != nil {
			return err
		}
		if err := c.expectSymbol('}'); err != nil {
			return err
		}
		c.em.Label(endLabel)
		return nil
	}

	c.em.Label(falseLabel)
	return nil
}

func labelSet(prefix string, n int) (string, string, string) {
	return prefix + "_TRUE_" + strconv.Itoa(n), prefix + "_FALSE_" + strconv.Itoa(n), prefix + "_END_" + strconv.Itoa(n)
}

// while := 'while' '(' expression ')' '{' statements '}'
func (c *Compiler) compileWhile() error {
	if err := c.expectKeyword("while"); err != nil {
		return err
	}

	j := c.em.NextWhile()
	expLabel, endLabel := "WHILE_EXP_"+strconv.Itoa(j), "WHILE_END_"+strconv.Itoa(j)
	c.em.Label(expLabel)

	if err := c.expectSymbol('('); err != nil {
		return err
	}
	if err := c.compileExpression(); err != nil {
		return err
	}
	if err := c.expectSymbol(')'); err != nil {
		return err
	}

	c.em.Arithmetic(vm.Not)
	c.em.IfGoto(endLabel)

	if err := c.expectSymbol('{'); err != nil {
		return err
	}
	if err := c.compileStatements(); err != nil {
		return err
	}
	if err := c.expectSymbol('}'); err != nil {
		return err
	}

	c.em.Goto(expLabel)
	c.em.Label(endLabel)
	return nil
}

// do := 'do' subroutineCall ';'
func (c *Compiler) compileDo() error {
	if err := c.expectKeyword("do"); err != nil {
		return err
	}
	name, err := c.expectIdentifier()
	if err != nil {
		return err
	}
	if err := c.compileCall(name); err != nil {
		return err
	}
	if err := c.expectSymbol(';'); err != nil {
		return err
	}
	c.em.Pop(vm.Temp, 0)
	return nil
}

// return := 'return' expression? ';'
func (c *Compiler) compileReturn() error {
	if err := c.expectKeyword("return"); err != nil {
		return err
	}

	if c.isSymbol(';') {
		if c.returnType != "void" {
			return c.errf("missing return value for non-void subroutine")
		}
		c.em.PushConstant(0)
	} else {
		if err := c.compileExpression(); err != nil {
			return err
		}
	}

	if err := c.expectSymbol(';'); err != nil {
		return err
	}
	c.em.Return()
	return nil
}

// ----------------------------------------------------------------------------
// expression := term (op term)*   -- strictly left-to-right, no precedence (§9)

func (c *Compiler) compileExpression() error {
	if err := c.compileTerm(); err != nil {
		return err
	}

	for c.cur.Type == TokenSymbol && isOperator(c.cur.Symbol) {
		op := c.cur.Symbol
		if err := c.fill(); err != nil {
			return err
		}
		if err := c.compileTerm(); err != nil {
			return err
		}
		c.emitBinaryOp(op)
	}
	return nil
}

func (c *Compiler) emitBinaryOp(op byte) {
	switch op {
	case '+':
		c.em.Arithmetic(vm.Add)
	case '-':
		c.em.Arithmetic(vm.Sub)
	case '*':
		c.em.Call("Math.multiply", 2)
	case '/':
		c.em.Call("Math.divide", 2)
	case '&':
		c.em.Arithmetic(vm.And)
	case '|':
		c.em.Arithmetic(vm.Or)
	case '<':
		c.em.Arithmetic(vm.Lt)
	case '>':
		c.em.Arithmetic(vm.Gt)
	case '=':
		c.em.Arithmetic(vm.Eq)
	}
}

// term := intConst | strConst | keywordConst | id | id '[' expression ']'
//       | subroutineCall | '(' expression ')' | unaryOp term
func (c *Compiler) compileTerm() error {
	switch {
	case c.cur.Type == TokenIntConst:
		c.em.PushConstant(c.cur.IntVal)
		return c.fill()

	case c.cur.Type == TokenStrConst:
		c.compileStringLiteral(c.cur.StrVal)
		return c.fill()

	case c.isKeyword("true"):
		c.em.PushConstant(0)
		c.em.Arithmetic(vm.Not)
		return c.fill()

	case c.isKeyword("false") || c.isKeyword("null"):
		c.em.PushConstant(0)
		return c.fill()

	case c.isKeyword("this"):
		c.em.Push(vm.Pointer, 0)
		return c.fill()

	case c.isSymbol('('):
		if err := c.fill(); err != nil {
			return err
		}
		if err := c.compileExpression(); err != nil {
			return err
		}
		return c.expectSymbol(')')

	case c.isSymbol('-') || c.isSymbol('~'):
		negate := c.isSymbol('-')
		if err := c.fill(); err != nil {
			return err
		}
		if err := c.compileTerm(); err != nil {
			return err
		}
		if negate {
			c.em.Arithmetic(vm.Neg)
		} else {
			c.em.Arithmetic(vm.Not)
		}
		return nil

	case c.cur.Type == TokenIdentifier:
		return c.compileIdentifierTerm()

	default:
		return c.errf("unexpected token in expression")
	}
}

func (c *Compiler) compileStringLiteral(s string) {
	c.em.PushConstant(uint16(len(s)))
	c.em.Call("String.new", 1)
	for i := 0; i < len(s); i++ {
		c.em.PushConstant(uint16(s[i]))
		c.em.Call("String.appendChar", 2)
	}
}

func (c *Compiler) compileIdentifierTerm() error {
	name := c.cur.Ident

	if c.next.Type == TokenSymbol && (c.next.Symbol == '(' || c.next.Symbol == '.') {
		if err := c.fill(); err != nil { // consume name; cur is now '(' or '.'
			return err
		}
		return c.compileCall(name)
	}

	if c.next.Type == TokenSymbol && c.next.Symbol == '[' {
		if err := c.fill(); err != nil { // consume name
			return err
		}
		if err := c.fill(); err != nil { // consume '['
			return err
		}
		if err := c.compileExpression(); err != nil {
			return err
		}
		if err := c.expectSymbol(']'); err != nil {
			return err
		}

		symbol, err := c.scopes.Resolve(name)
		if err != nil {
			return err
		}
		c.em.Push(segmentFor(symbol.Kind), symbol.Index)
		c.em.Arithmetic(vm.Add)
		c.em.Pop(vm.Pointer, 1)
		c.em.Push(vm.That, 0)
		return nil
	}

	symbol, err := c.scopes.Resolve(name)
	if err != nil {
		return err
	}
	c.em.Push(segmentFor(symbol.Kind), symbol.Index)
	return c.fill()
}

// compileCall compiles a subroutine call assuming 'name' has already been consumed and
// 'c.cur' sits on the deciding token: '(' for an implicit method call on 'this', or '.'
// for a qualified call, resolved to one of the three forms of §4.3.5.
func (c *Compiler) compileCall(name string) error {
	if c.isSymbol('(') {
		c.em.Push(vm.Pointer, 0)
		if err := c.fill(); err != nil {
			return err
		}
		nArgs, err := c.compileExpressionList()
		if err != nil {
			return err
		}
		if err := c.expectSymbol(')'); err != nil {
			return err
		}
		fullName := c.class + "." + name
		c.em.Call(fullName, uint16(nArgs+1))
		return nil
	}

	if err := c.expectSymbol('.'); err != nil {
		return err
	}
	subName, err := c.expectIdentifier()
	if err != nil {
		return err
	}
	if err := c.expectSymbol('('); err != nil {
		return err
	}

	if symbol, rErr := c.scopes.Resolve(name); rErr == nil {
		c.em.Push(segmentFor(symbol.Kind), symbol.Index)
		nArgs, err := c.compileExpressionList()
		if err != nil {
			return err
		}
		if err := c.expectSymbol(')'); err != nil {
			return err
		}
		fullName := symbol.Type + "." + subName
		if c.strict {
			if err := c.checkArity(fullName, nArgs); err != nil {
				return err
			}
		}
		c.em.Call(fullName, uint16(nArgs+1))
		return nil
	}

	nArgs, err := c.compileExpressionList()
	if err != nil {
		return err
	}
	if err := c.expectSymbol(')'); err != nil {
		return err
	}
	fullName := name + "." + subName
	if c.strict {
		if err := c.checkArity(fullName, nArgs); err != nil {
			return err
		}
	}
	c.em.Call(fullName, uint16(nArgs))
	return nil
}

// expressionList := ε | expression (',' expression)*
func (c *Compiler) compileExpressionList() (int, error) {
	if c.isSymbol(')') {
		return 0, nil
	}

	count := 1
	if err := c.compileExpression(); err != nil {
		return 0, err
	}
	for c.isSymbol(',') {
		if err := c.fill(); err != nil {
			return 0, err
		}
		if err := c.compileExpression(); err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}

// checkArity validates a call against the embedded standard library ABI, when the callee
// is a known standard class; calls to user-defined classes are not cross-checked here,
// since a single-file single-pass compile never has the callee's own declaration loaded.
func (c *Compiler) checkArity(fullName string, nArgs int) error {
	parts := strings.SplitN(fullName, ".", 2)
	if len(parts) != 2 {
		return nil
	}
	methods, ok := StandardLibrary[parts[0]]
	if !ok {
		return nil
	}
	entry, ok := methods[parts[1]]
	if !ok {
		return nil
	}
	if entry.Arity != nArgs {
		return diag.At(diag.Resolution, c.file, c.cur.Line,
			"call to '%s' expects %d argument(s), got %d", fullName, entry.Arity, nArgs)
	}
	return nil
}

