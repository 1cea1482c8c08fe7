package rules

import (
	"strings"
)

// 允许在表达式中调用的函数
var builtinNames = map[string]bool{
	"abs":   true,
	"min":   true,
	"max":   true,
	"round": true,
}

var keywords = map[string]bool{
	"and":  true,
	"or":   true,
	"not":  true,
	"True": true, "False": true, "None": true,
	// 以下关键字不支持，出现即语法错误
	"in": true, "is": true, "if": true, "else": true, "lambda": true, "for": true,
}

type node interface {
	eval(env Context) (any, error)
}

type (
	literalNode struct {
		value any
	}
	nameNode struct {
		path []string // 点号分隔的各段
	}
	unaryNode struct {
		op      string
		operand node
	}
	binaryNode struct {
		op          string
		left, right node
	}
	// a < b <= c 等价于 a < b and b <= c，b 只求值一次
	compareNode struct {
		ops      []string
		operands []node
	}
	logicalNode struct {
		op          string // and / or
		left, right node
	}
	notNode struct {
		operand node
	}
	callNode struct {
		name string
		args []node
	}
)

type parser struct {
	src    string
	tokens []token
	pos    int
}

func parse(src string) (node, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, tokens: tokens}
	n, err := p.orTest()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf(tok, "多余的 %s", tok)
	}
	return n, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	lx := lexer{src: p.src}
	return lx.errorf(tok.pos, format, args...)
}

func (p *parser) isKeyword(word string) bool {
	tok := p.peek()
	return tok.kind == tokName && tok.text == word
}

func (p *parser) isOp(ops ...string) bool {
	tok := p.peek()
	if tok.kind != tokOp {
		return false
	}
	for _, op := range ops {
		if tok.text == op {
			return true
		}
	}
	return false
}

func (p *parser) orTest() (node, error) {
	left, err := p.andTest()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("or") {
		p.advance()
		right, err := p.andTest()
		if err != nil {
			return nil, err
		}
		left = &logicalNode{op: "or", left: left, right: right}
	}
	return left, nil
}

func (p *parser) andTest() (node, error) {
	left, err := p.notTest()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("and") {
		p.advance()
		right, err := p.notTest()
		if err != nil {
			return nil, err
		}
		left = &logicalNode{op: "and", left: left, right: right}
	}
	return left, nil
}

func (p *parser) notTest() (node, error) {
	if p.isKeyword("not") {
		p.advance()
		operand, err := p.notTest()
		if err != nil {
			return nil, err
		}
		return &notNode{operand: operand}, nil
	}
	return p.comparison()
}

func (p *parser) comparison() (node, error) {
	first, err := p.arith()
	if err != nil {
		return nil, err
	}
	cmp := &compareNode{operands: []node{first}}
	for p.isOp("==", "!=", "<", "<=", ">", ">=") {
		op := p.advance().text
		right, err := p.arith()
		if err != nil {
			return nil, err
		}
		cmp.ops = append(cmp.ops, op)
		cmp.operands = append(cmp.operands, right)
	}
	if len(cmp.ops) == 0 {
		return first, nil
	}
	return cmp, nil
}

func (p *parser) arith() (node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.isOp("+", "-") {
		op := p.advance().text
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) term() (node, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for p.isOp("*", "/", "//", "%") {
		op := p.advance().text
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) factor() (node, error) {
	if p.isOp("+", "-") {
		op := p.advance().text
		operand, err := p.factor()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: op, operand: operand}, nil
	}
	return p.power()
}

// power 右结合，优先级高于一元负号：-2**2 == -4
func (p *parser) power() (node, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if p.isOp("**") {
		p.advance()
		exp, err := p.factor()
		if err != nil {
			return nil, err
		}
		return &binaryNode{op: "**", left: base, right: exp}, nil
	}
	return base, nil
}

func (p *parser) primary() (node, error) {
	tok := p.peek()
	switch tok.kind {
	case tokNumber:
		p.advance()
		return &literalNode{value: tok.num}, nil
	case tokString:
		// 相邻字符串字面量自动拼接
		var b strings.Builder
		for p.peek().kind == tokString {
			b.WriteString(p.advance().text)
		}
		return &literalNode{value: b.String()}, nil
	case tokLParen:
		p.advance()
		inner, err := p.orTest()
		if err != nil {
			return nil, err
		}
		if closing := p.peek(); closing.kind != tokRParen {
			return nil, p.errorf(closing, "缺少右括号，遇到 %s", closing)
		}
		p.advance()
		return inner, nil
	case tokName:
		return p.name()
	case tokEOF:
		return nil, p.errorf(tok, "表达式不完整")
	}
	return nil, p.errorf(tok, "意外的 %s", tok)
}

func (p *parser) name() (node, error) {
	tok := p.advance()
	switch tok.text {
	case "True":
		return &literalNode{value: true}, nil
	case "False":
		return &literalNode{value: false}, nil
	case "None":
		return &literalNode{value: nil}, nil
	}
	if keywords[tok.text] {
		return nil, p.errorf(tok, "不支持的关键字 %s", tok)
	}

	path := []string{tok.text}
	for p.peek().kind == tokDot {
		p.advance()
		seg := p.peek()
		if seg.kind != tokName || keywords[seg.text] {
			return nil, p.errorf(seg, "点号后需要字段名，遇到 %s", seg)
		}
		path = append(path, p.advance().text)
	}

	if p.peek().kind != tokLParen {
		return &nameNode{path: path}, nil
	}

	fn := strings.Join(path, ".")
	if len(path) != 1 || !builtinNames[fn] {
		return nil, p.errorf(tok, "不允许调用函数 %s", fn)
	}
	p.advance()

	call := &callNode{name: fn}
	if p.peek().kind == tokRParen {
		p.advance()
		return call, nil
	}
	for {
		arg, err := p.orTest()
		if err != nil {
			return nil, err
		}
		call.args = append(call.args, arg)

		next := p.advance()
		switch next.kind {
		case tokRParen:
			return call, nil
		case tokComma:
			if p.peek().kind == tokRParen {
				p.advance()
				return call, nil
			}
		default:
			return nil, p.errorf(next, "函数参数之间需要逗号，遇到 %s", next)
		}
	}
}
