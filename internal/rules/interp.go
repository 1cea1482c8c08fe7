package rules

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/shopspring/decimal"
)

// Fielder 支持点号访问的对象，例如 streak_tracker.streak
type Fielder interface {
	Field(name string) (any, bool)
}

// Context 表达式求值时的变量表
type Context map[string]any

// EvalError 表达式求值错误（字段缺失、类型不匹配、除零等）
type EvalError struct {
	Msg string
}

func (e *EvalError) Error() string {
	return e.Msg
}

// ErrZeroDivision 除数为零
var ErrZeroDivision = errors.New("除数为零")

func evalErrorf(format string, args ...any) error {
	return &EvalError{Msg: fmt.Sprintf(format, args...)}
}

// Expr 编译后的表达式，可并发求值
type Expr struct {
	src  string
	root node
}

// Compile 编译表达式
func Compile(src string) (*Expr, error) {
	root, err := parse(src)
	if err != nil {
		return nil, err
	}
	return &Expr{src: src, root: root}, nil
}

// String 返回原始表达式
func (e *Expr) String() string {
	return e.src
}

// Eval 求值并返回结果
func (e *Expr) Eval(env Context) (any, error) {
	return e.root.eval(env)
}

// EvalBool 求值并按真值规则转换为 bool
func (e *Expr) EvalBool(env Context) (bool, error) {
	v, err := e.root.eval(env)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

// normalize 把各种整数/浮点类型统一成 float64
func normalize(v any) any {
	switch n := v.(type) {
	case float64, bool, string, nil:
		return v
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case decimal.Decimal:
		return n.InexactFloat64()
	}
	return v
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "None"
	case bool:
		return "bool"
	case float64:
		return "number"
	case string:
		return "str"
	}
	return fmt.Sprintf("%T", v)
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	}
	return true
}

func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func (n *literalNode) eval(Context) (any, error) {
	return n.value, nil
}

func (n *nameNode) eval(env Context) (any, error) {
	full := strings.Join(n.path, ".")
	if v, ok := env[full]; ok {
		return normalize(v), nil
	}

	v, ok := env[n.path[0]]
	if !ok {
		return nil, evalErrorf("未定义的字段 %q", n.path[0])
	}
	for i, seg := range n.path[1:] {
		var found bool
		switch obj := v.(type) {
		case Fielder:
			v, found = obj.Field(seg)
		case map[string]any:
			v, found = obj[seg]
		case Context:
			v, found = obj[seg]
		}
		if !found {
			return nil, evalErrorf("%q 没有字段 %q", strings.Join(n.path[:i+1], "."), seg)
		}
	}
	return normalize(v), nil
}

func (n *unaryNode) eval(env Context) (any, error) {
	v, err := n.operand.eval(env)
	if err != nil {
		return nil, err
	}
	x, ok := toNumber(v)
	if !ok {
		return nil, evalErrorf("一元运算 %s 不支持 %s", n.op, typeName(v))
	}
	if n.op == "-" {
		return -x, nil
	}
	return x, nil
}

func (n *notNode) eval(env Context) (any, error) {
	v, err := n.operand.eval(env)
	if err != nil {
		return nil, err
	}
	return !truthy(v), nil
}

// logicalNode 与 Python 一致，返回决定结果的操作数本身
func (n *logicalNode) eval(env Context) (any, error) {
	left, err := n.left.eval(env)
	if err != nil {
		return nil, err
	}
	if n.op == "and" {
		if !truthy(left) {
			return left, nil
		}
	} else if truthy(left) {
		return left, nil
	}
	return n.right.eval(env)
}

func (n *compareNode) eval(env Context) (any, error) {
	left, err := n.operands[0].eval(env)
	if err != nil {
		return nil, err
	}
	for i, op := range n.ops {
		right, err := n.operands[i+1].eval(env)
		if err != nil {
			return nil, err
		}
		ok, err := compare(op, left, right)
		if err != nil {
			return nil, err
		}
		if !ok {
			return false, nil
		}
		left = right
	}
	return true, nil
}

func compare(op string, a, b any) (bool, error) {
	switch op {
	case "==":
		return equal(a, b), nil
	case "!=":
		return !equal(a, b), nil
	}

	var c int
	if x, ok := toNumber(a); ok {
		y, ok := toNumber(b)
		if !ok {
			return false, evalErrorf("%s 与 %s 不能比较大小", typeName(a), typeName(b))
		}
		c = cmpFloat(x, y)
		if math.IsNaN(x) || math.IsNaN(y) {
			return false, nil
		}
	} else if x, ok := a.(string); ok {
		y, ok := b.(string)
		if !ok {
			return false, evalErrorf("%s 与 %s 不能比较大小", typeName(a), typeName(b))
		}
		c = strings.Compare(x, y)
	} else {
		return false, evalErrorf("%s 与 %s 不能比较大小", typeName(a), typeName(b))
	}

	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return false, evalErrorf("未知的比较运算 %s", op)
}

func cmpFloat(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func equal(a, b any) bool {
	if x, ok := toNumber(a); ok {
		y, ok := toNumber(b)
		return ok && x == y
	}
	switch x := a.(type) {
	case nil:
		return b == nil
	case string:
		y, ok := b.(string)
		return ok && x == y
	}
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

func (n *binaryNode) eval(env Context) (any, error) {
	left, err := n.left.eval(env)
	if err != nil {
		return nil, err
	}
	right, err := n.right.eval(env)
	if err != nil {
		return nil, err
	}
	return arithmetic(n.op, left, right)
}

func arithmetic(op string, a, b any) (any, error) {
	x, xok := toNumber(a)
	y, yok := toNumber(b)

	if !xok || !yok {
		sa, aStr := a.(string)
		sb, bStr := b.(string)
		switch {
		case op == "+" && aStr && bStr:
			return sa + sb, nil
		case op == "*" && aStr && yok:
			return repeat(sa, y)
		case op == "*" && bStr && xok:
			return repeat(sb, x)
		}
		return nil, evalErrorf("%s 不支持 %s 和 %s", op, typeName(a), typeName(b))
	}

	switch op {
	case "+":
		return x + y, nil
	case "-":
		return x - y, nil
	case "*":
		return x * y, nil
	case "/":
		if y == 0 {
			return nil, ErrZeroDivision
		}
		return x / y, nil
	case "//":
		if y == 0 {
			return nil, ErrZeroDivision
		}
		return math.Floor(x / y), nil
	case "%":
		if y == 0 {
			return nil, ErrZeroDivision
		}
		// 结果符号与除数一致
		r := math.Mod(x, y)
		if r != 0 && (r < 0) != (y < 0) {
			r += y
		}
		return r, nil
	case "**":
		if x == 0 && y < 0 {
			return nil, ErrZeroDivision
		}
		if x < 0 && y != math.Trunc(y) {
			return nil, evalErrorf("负数的非整数次幂")
		}
		return math.Pow(x, y), nil
	}
	return nil, evalErrorf("未知的运算符 %s", op)
}

// maxRepeatLen 字符串重复结果的长度上限
const maxRepeatLen = 1 << 20

func repeat(s string, n float64) (any, error) {
	if n != math.Trunc(n) {
		return nil, evalErrorf("字符串只能乘以整数")
	}
	if n <= 0 || s == "" {
		return "", nil
	}
	if n > maxRepeatLen || float64(len(s))*n > maxRepeatLen {
		return nil, evalErrorf("字符串重复结果过长")
	}
	return strings.Repeat(s, int(n)), nil
}

func (n *callNode) eval(env Context) (any, error) {
	args := make([]any, 0, len(n.args))
	for _, a := range n.args {
		v, err := a.eval(env)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	switch n.name {
	case "abs":
		if len(args) != 1 {
			return nil, evalErrorf("abs() 需要1个参数，实际%d个", len(args))
		}
		x, ok := toNumber(args[0])
		if !ok {
			return nil, evalErrorf("abs() 不支持 %s", typeName(args[0]))
		}
		return math.Abs(x), nil
	case "min", "max":
		return minMax(n.name, args)
	case "round":
		return round(args)
	}
	return nil, evalErrorf("不允许调用函数 %s", n.name)
}

func minMax(name string, args []any) (any, error) {
	if len(args) < 2 {
		return nil, evalErrorf("%s() 至少需要2个参数", name)
	}
	best := args[0]
	for _, v := range args[1:] {
		op := "<"
		if name == "max" {
			op = ">"
		}
		better, err := compare(op, v, best)
		if err != nil {
			return nil, err
		}
		if better {
			best = v
		}
	}
	return best, nil
}

const maxRoundPlaces = 1 << 15

// round 银行家舍入，可选小数位数
func round(args []any) (any, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, evalErrorf("round() 需要1到2个参数，实际%d个", len(args))
	}
	x, ok := toNumber(args[0])
	if !ok {
		return nil, evalErrorf("round() 不支持 %s", typeName(args[0]))
	}
	places := 0.0
	if len(args) == 2 && args[1] != nil {
		n, ok := args[1].(float64)
		if !ok || n != math.Trunc(n) {
			return nil, evalErrorf("round() 的小数位数必须是整数")
		}
		if math.Abs(n) > maxRoundPlaces {
			return nil, evalErrorf("round() 的小数位数超出范围")
		}
		places = n
	}
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return x, nil
	}
	return decimal.NewFromFloat(x).RoundBank(int32(places)).InexactFloat64(), nil
}
