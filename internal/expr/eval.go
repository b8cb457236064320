package expr

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/andreasjansson/cctr/internal/pattern"
	"github.com/andreasjansson/cctr/models"
)

// Env resolves identifiers to bound hole values during evaluation.
type Env struct {
	Bindings pattern.Bindings
	locals   map[string]models.Value
}

func NewEnv(b pattern.Bindings) *Env {
	return &Env{Bindings: b, locals: map[string]models.Value{}}
}

func (e *Env) withLocal(name string, v models.Value) *Env {
	locals := make(map[string]models.Value, len(e.locals)+1)
	for k, v2 := range e.locals {
		locals[k] = v2
	}
	locals[name] = v
	return &Env{Bindings: e.Bindings, locals: locals}
}

func (e *Env) lookup(name string) (models.Value, bool) {
	if v, ok := e.locals[name]; ok {
		return v, true
	}
	if b, ok := e.Bindings[name]; ok {
		return b.Val, true
	}
	return models.Value{}, false
}

// Eval evaluates a parsed expression to a models.Value.
func Eval(n Node, env *Env) (models.Value, error) {
	switch node := n.(type) {
	case NumberLit:
		return models.Number(node.Value), nil
	case StringLit:
		return models.String(node.Value), nil
	case BoolLit:
		return models.Bool(node.Value), nil
	case NullLit:
		return models.Null(), nil
	case RegexLit:
		return models.String(node.Pattern), nil
	case ArrayLit:
		vals := make([]models.Value, len(node.Elems))
		for i, e := range node.Elems {
			v, err := Eval(e, env)
			if err != nil {
				return models.Value{}, err
			}
			vals[i] = v
		}
		return models.Array(vals), nil
	case Ident:
		v, ok := env.lookup(node.Name)
		if !ok {
			return models.Value{}, fmt.Errorf("undefined identifier %q", node.Name)
		}
		return v, nil
	case FieldAccess:
		target, err := Eval(node.Target, env)
		if err != nil {
			return models.Value{}, err
		}
		if target.Kind() != models.KindObject {
			return models.Value{}, fmt.Errorf("cannot access field %q on a %s", node.Field, target.Kind())
		}
		v, ok := target.Obj().Get(node.Field)
		if !ok {
			return models.Value{}, fmt.Errorf("object has no field %q", node.Field)
		}
		return v, nil
	case IndexExpr:
		return evalIndex(node, env)
	case Unary:
		return evalUnary(node, env)
	case Binary:
		return evalBinary(node, env)
	case Call:
		return evalCall(node, env)
	case Forall:
		return evalForall(node, env)
	}
	return models.Value{}, fmt.Errorf("unhandled node type %T", n)
}

// evalIndex implements `target[index]` over arrays and strings, with
// negative indices counting from the end (spec.md §4.3's postfix rules).
func evalIndex(n IndexExpr, env *Env) (models.Value, error) {
	target, err := Eval(n.Target, env)
	if err != nil {
		return models.Value{}, err
	}
	idxVal, err := Eval(n.Index, env)
	if err != nil {
		return models.Value{}, err
	}
	if idxVal.Kind() != models.KindNumber {
		return models.Value{}, fmt.Errorf("index must be a number, got %s", idxVal.Kind())
	}
	idx := int(idxVal.Num())

	switch target.Kind() {
	case models.KindArray:
		arr := target.Arr()
		i := resolveIndex(idx, len(arr))
		if i < 0 || i >= len(arr) {
			return models.Value{}, fmt.Errorf("array index %d out of range (length %d)", idx, len(arr))
		}
		return arr[i], nil
	case models.KindString:
		s := []rune(target.Str())
		i := resolveIndex(idx, len(s))
		if i < 0 || i >= len(s) {
			return models.Value{}, fmt.Errorf("string index %d out of range (length %d)", idx, len(s))
		}
		return models.String(string(s[i])), nil
	}
	return models.Value{}, fmt.Errorf("cannot index a %s", target.Kind())
}

func resolveIndex(idx, length int) int {
	if idx < 0 {
		return length + idx
	}
	return idx
}

func evalUnary(n Unary, env *Env) (models.Value, error) {
	v, err := Eval(n.Operand, env)
	if err != nil {
		return models.Value{}, err
	}
	switch n.Op {
	case "-":
		if v.Kind() != models.KindNumber {
			return models.Value{}, fmt.Errorf("unary '-' requires a number, got %s", v.Kind())
		}
		return models.Number(-v.Num()), nil
	case "not":
		return models.Bool(!truthy(v)), nil
	}
	return models.Value{}, fmt.Errorf("unknown unary operator %q", n.Op)
}

func truthy(v models.Value) bool {
	switch v.Kind() {
	case models.KindBool:
		return v.Bool()
	case models.KindNull:
		return false
	case models.KindNumber:
		return v.Num() != 0
	case models.KindString:
		return v.Str() != ""
	case models.KindArray:
		return len(v.Arr()) > 0
	case models.KindObject:
		return v.Obj().Len() > 0
	}
	return false
}

func evalBinary(n Binary, env *Env) (models.Value, error) {
	switch n.Op {
	case "or":
		l, err := Eval(n.Left, env)
		if err != nil {
			return models.Value{}, err
		}
		if truthy(l) {
			return models.Bool(true), nil
		}
		r, err := Eval(n.Right, env)
		if err != nil {
			return models.Value{}, err
		}
		return models.Bool(truthy(r)), nil
	case "and":
		l, err := Eval(n.Left, env)
		if err != nil {
			return models.Value{}, err
		}
		if !truthy(l) {
			return models.Bool(false), nil
		}
		r, err := Eval(n.Right, env)
		if err != nil {
			return models.Value{}, err
		}
		return models.Bool(truthy(r)), nil
	}

	l, err := Eval(n.Left, env)
	if err != nil {
		return models.Value{}, err
	}
	r, err := Eval(n.Right, env)
	if err != nil {
		return models.Value{}, err
	}

	switch n.Op {
	case "==":
		return models.Bool(l.Equal(r)), nil
	case "!=":
		return models.Bool(!l.Equal(r)), nil
	case "<", "<=", ">", ">=":
		return compareNumericOrString(n.Op, l, r)
	case "+", "-", "*", "/", "%", "^":
		return arith(n.Op, l, r)
	case "contains":
		return evalContains(l, r)
	case "startswith":
		if l.Kind() != models.KindString || r.Kind() != models.KindString {
			return models.Value{}, fmt.Errorf("'startswith' requires strings")
		}
		return models.Bool(strings.HasPrefix(l.Str(), r.Str())), nil
	case "endswith":
		if l.Kind() != models.KindString || r.Kind() != models.KindString {
			return models.Value{}, fmt.Errorf("'endswith' requires strings")
		}
		return models.Bool(strings.HasSuffix(l.Str(), r.Str())), nil
	case "matches":
		if l.Kind() != models.KindString || r.Kind() != models.KindString {
			return models.Value{}, fmt.Errorf("'matches' requires a string and a regex")
		}
		re, err := regexp.Compile(r.Str())
		if err != nil {
			return models.Value{}, fmt.Errorf("bad regex in 'matches': %w", err)
		}
		return models.Bool(re.MatchString(l.Str())), nil
	case "in":
		switch r.Kind() {
		case models.KindArray:
			for _, e := range r.Arr() {
				if l.Equal(e) {
					return models.Bool(true), nil
				}
			}
			return models.Bool(false), nil
		case models.KindString:
			if l.Kind() != models.KindString {
				return models.Value{}, fmt.Errorf("'in' on a string requires a string left-hand side")
			}
			return models.Bool(strings.Contains(r.Str(), l.Str())), nil
		}
		return models.Value{}, fmt.Errorf("'in' requires an array or string right-hand side, got %s", r.Kind())
	}
	return models.Value{}, fmt.Errorf("unknown binary operator %q", n.Op)
}

func evalContains(l, r models.Value) (models.Value, error) {
	switch l.Kind() {
	case models.KindArray:
		for _, e := range l.Arr() {
			if e.Equal(r) {
				return models.Bool(true), nil
			}
		}
		return models.Bool(false), nil
	case models.KindString:
		if r.Kind() != models.KindString {
			return models.Value{}, fmt.Errorf("'contains' on a string requires a string argument")
		}
		return models.Bool(strings.Contains(l.Str(), r.Str())), nil
	case models.KindObject:
		if r.Kind() != models.KindString {
			return models.Value{}, fmt.Errorf("'contains' on an object requires a string key")
		}
		_, ok := l.Obj().Get(r.Str())
		return models.Bool(ok), nil
	}
	return models.Value{}, fmt.Errorf("'contains' requires an array, string, or object, got %s", l.Kind())
}

func compareNumericOrString(op string, l, r models.Value) (models.Value, error) {
	if l.Kind() == models.KindNumber && r.Kind() == models.KindNumber {
		a, b := l.Num(), r.Num()
		return models.Bool(numCompare(op, a, b)), nil
	}
	if l.Kind() == models.KindString && r.Kind() == models.KindString {
		return models.Bool(strCompare(op, l.Str(), r.Str())), nil
	}
	return models.Value{}, fmt.Errorf("%q requires two numbers or two strings, got %s and %s", op, l.Kind(), r.Kind())
}

func numCompare(op string, a, b float64) bool {
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

func strCompare(op, a, b string) bool {
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

func arith(op string, l, r models.Value) (models.Value, error) {
	if op == "+" && l.Kind() == models.KindString && r.Kind() == models.KindString {
		return models.String(l.Str() + r.Str()), nil
	}
	if op == "+" && l.Kind() == models.KindArray && r.Kind() == models.KindArray {
		return models.Array(append(append([]models.Value{}, l.Arr()...), r.Arr()...)), nil
	}
	if l.Kind() != models.KindNumber || r.Kind() != models.KindNumber {
		return models.Value{}, fmt.Errorf("%q requires two numbers, got %s and %s", op, l.Kind(), r.Kind())
	}
	a, b := l.Num(), r.Num()
	switch op {
	case "+":
		return models.Number(a + b), nil
	case "-":
		return models.Number(a - b), nil
	case "*":
		return models.Number(a * b), nil
	case "/":
		if b == 0 {
			return models.Value{}, fmt.Errorf("division by zero")
		}
		return models.Number(a / b), nil
	case "%":
		if b == 0 {
			return models.Value{}, fmt.Errorf("modulo by zero")
		}
		return models.Number(math.Mod(a, b)), nil
	case "^":
		return models.Number(math.Pow(a, b)), nil
	}
	return models.Value{}, fmt.Errorf("unknown arithmetic operator %q", op)
}

// evalForall implements the `predicate forall ident in collection` top-level
// quantifier form (spec.md §4.3): collection may be an array or an object,
// and object iteration runs over its values.
func evalForall(n Forall, env *Env) (models.Value, error) {
	iter, err := Eval(n.Iterable, env)
	if err != nil {
		return models.Value{}, err
	}
	var items []models.Value
	switch iter.Kind() {
	case models.KindArray:
		items = iter.Arr()
	case models.KindObject:
		for _, k := range iter.Obj().SortedKeys() {
			v, _ := iter.Obj().Get(k)
			items = append(items, v)
		}
	default:
		return models.Value{}, fmt.Errorf("'forall ... in' requires an array or object, got %s", iter.Kind())
	}
	for _, item := range items {
		sub := env.withLocal(n.Var, item)
		v, err := Eval(n.Predicate, sub)
		if err != nil {
			return models.Value{}, err
		}
		if !truthy(v) {
			return models.Bool(false), nil
		}
	}
	return models.Bool(true), nil
}

// EvalBool evaluates a constraint expression and requires a boolean-ish
// result, as `where` bullets produce pass/fail verdicts.
func EvalBool(src string, env *Env) (bool, error) {
	n, err := Parse(src)
	if err != nil {
		return false, err
	}
	v, err := Eval(n, env)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}
