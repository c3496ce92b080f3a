package signal

import (
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/thrasher-corp/gct-ta/indicators"
)

// TAModule is the ta builtin module available to signal scripts. Every
// function takes an array of numbers and a period and returns an array of the
// same length
var TAModule = map[string]tengo.Object{
	"rsi": &tengo.UserFunction{Name: "rsi", Value: indicatorFunc("rsi", indicators.RSI)},
	"sma": &tengo.UserFunction{Name: "sma", Value: indicatorFunc("sma", indicators.SMA)},
	"ema": &tengo.UserFunction{Name: "ema", Value: indicatorFunc("ema", indicators.EMA)},
}

func indicatorFunc(name string, calc func([]float64, int) []float64) tengo.CallableFunc {
	return func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 2 {
			return nil, tengo.ErrWrongNumArguments
		}
		in, err := toFloats(args[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		period, ok := tengo.ToInt(args[1])
		if !ok || period <= 0 {
			return nil, tengo.ErrInvalidArgumentType{Name: "period", Expected: "positive int", Found: args[1].TypeName()}
		}
		if len(in) == 0 {
			return &tengo.Array{}, nil
		}
		return fromFloats(align(calc(in, period), len(in))), nil
	}
}

func toFloats(o tengo.Object) ([]float64, error) {
	arr, ok := o.(*tengo.Array)
	if !ok {
		return nil, tengo.ErrInvalidArgumentType{Name: "values", Expected: "array", Found: o.TypeName()}
	}
	out := make([]float64, len(arr.Value))
	for i, v := range arr.Value {
		f, ok := tengo.ToFloat64(v)
		if !ok {
			return nil, fmt.Errorf("%w at %d: %s", errScriptSignalType, i, v.TypeName())
		}
		out[i] = f
	}
	return out, nil
}

func fromFloats(values []float64) *tengo.Array {
	arr := &tengo.Array{Value: make([]tengo.Object, len(values))}
	for i, v := range values {
		arr.Value[i] = &tengo.Float{Value: v}
	}
	return arr
}
