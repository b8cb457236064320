package expr

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/samber/lo"

	"github.com/andreasjansson/cctr/models"
)

func evalCall(n Call, env *Env) (models.Value, error) {
	args := make([]models.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := Eval(a, env)
		if err != nil {
			return models.Value{}, err
		}
		args[i] = v
	}

	switch n.Func {
	case "len":
		return builtinLen(args)
	case "type":
		if err := arity("type", args, 1); err != nil {
			return models.Value{}, err
		}
		return models.String(string(args[0].Kind())), nil
	case "keys":
		return builtinKeys(args)
	case "values":
		return builtinValues(args)
	case "sum":
		return builtinSum(args)
	case "min":
		return builtinMinMax(args, "min")
	case "max":
		return builtinMinMax(args, "max")
	case "abs":
		if err := arity("abs", args, 1); err != nil {
			return models.Value{}, err
		}
		if args[0].Kind() != models.KindNumber {
			return models.Value{}, fmt.Errorf("abs() requires a number")
		}
		return models.Number(math.Abs(args[0].Num())), nil
	case "unique":
		return builtinUnique(args)
	case "lower":
		if err := arity("lower", args, 1); err != nil {
			return models.Value{}, err
		}
		if args[0].Kind() != models.KindString {
			return models.Value{}, fmt.Errorf("lower() requires a string")
		}
		return models.String(strings.ToLower(args[0].Str())), nil
	case "upper":
		if err := arity("upper", args, 1); err != nil {
			return models.Value{}, err
		}
		if args[0].Kind() != models.KindString {
			return models.Value{}, fmt.Errorf("upper() requires a string")
		}
		return models.String(strings.ToUpper(args[0].Str())), nil
	case "env":
		if err := arity("env", args, 1); err != nil {
			return models.Value{}, err
		}
		if args[0].Kind() != models.KindString {
			return models.Value{}, fmt.Errorf("env() requires a string name")
		}
		return models.String(os.Getenv(args[0].Str())), nil
	}
	return models.Value{}, fmt.Errorf("unknown function %q", n.Func)
}

func arity(name string, args []models.Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s() expects %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func builtinLen(args []models.Value) (models.Value, error) {
	if err := arity("len", args, 1); err != nil {
		return models.Value{}, err
	}
	switch args[0].Kind() {
	case models.KindString:
		return models.Number(float64(len(args[0].Str()))), nil
	case models.KindArray:
		return models.Number(float64(len(args[0].Arr()))), nil
	case models.KindObject:
		return models.Number(float64(args[0].Obj().Len())), nil
	}
	return models.Value{}, fmt.Errorf("len() requires a string, array, or object")
}

func builtinKeys(args []models.Value) (models.Value, error) {
	if err := arity("keys", args, 1); err != nil {
		return models.Value{}, err
	}
	if args[0].Kind() != models.KindObject {
		return models.Value{}, fmt.Errorf("keys() requires an object")
	}
	ks := args[0].Obj().SortedKeys()
	vals := lo.Map(ks, func(k string, _ int) models.Value { return models.String(k) })
	return models.Array(vals), nil
}

func builtinValues(args []models.Value) (models.Value, error) {
	if err := arity("values", args, 1); err != nil {
		return models.Value{}, err
	}
	if args[0].Kind() != models.KindObject {
		return models.Value{}, fmt.Errorf("values() requires an object")
	}
	obj := args[0].Obj()
	ks := obj.SortedKeys()
	vals := make([]models.Value, len(ks))
	for i, k := range ks {
		v, _ := obj.Get(k)
		vals[i] = v
	}
	return models.Array(vals), nil
}

func builtinSum(args []models.Value) (models.Value, error) {
	if err := arity("sum", args, 1); err != nil {
		return models.Value{}, err
	}
	if args[0].Kind() != models.KindArray {
		return models.Value{}, fmt.Errorf("sum() requires an array")
	}
	total := 0.0
	for _, e := range args[0].Arr() {
		if e.Kind() != models.KindNumber {
			return models.Value{}, fmt.Errorf("sum() requires an array of numbers")
		}
		total += e.Num()
	}
	return models.Number(total), nil
}

func builtinMinMax(args []models.Value, which string) (models.Value, error) {
	if err := arity(which, args, 1); err != nil {
		return models.Value{}, err
	}
	if args[0].Kind() != models.KindArray || len(args[0].Arr()) == 0 {
		return models.Value{}, fmt.Errorf("%s() requires a non-empty array", which)
	}
	nums := make([]float64, len(args[0].Arr()))
	for i, e := range args[0].Arr() {
		if e.Kind() != models.KindNumber {
			return models.Value{}, fmt.Errorf("%s() requires an array of numbers", which)
		}
		nums[i] = e.Num()
	}
	var result float64
	if which == "min" {
		result = lo.Min(nums)
	} else {
		result = lo.Max(nums)
	}
	return models.Number(result), nil
}

func builtinUnique(args []models.Value) (models.Value, error) {
	if err := arity("unique", args, 1); err != nil {
		return models.Value{}, err
	}
	if args[0].Kind() != models.KindArray {
		return models.Value{}, fmt.Errorf("unique() requires an array")
	}
	in := args[0].Arr()
	out := make([]models.Value, 0, len(in))
	for _, v := range in {
		if !lo.ContainsBy(out, func(o models.Value) bool { return o.Equal(v) }) {
			out = append(out, v)
		}
	}
	return models.Array(out), nil
}
