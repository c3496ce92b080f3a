package signal

import (
	"context"
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/xnoquant/xno/log"
	"github.com/xnoquant/xno/marketdata"
)

// Generate compiles and runs the script against the series
func (s *Script) Generate(ctx context.Context, series *marketdata.Series) ([]float64, error) {
	if len(s.Source) == 0 {
		return nil, errNoScript
	}
	script := tengo.NewScript(s.Source)
	modules := stdlib.GetModuleMap("math", "text", "fmt")
	modules.AddBuiltinModule("ta", TAModule)
	script.SetImports(modules)

	times := &tengo.Array{Value: make([]tengo.Object, series.Len())}
	for i := range series.Times {
		times.Value[i] = &tengo.Int{Value: series.Times[i].Unix()}
	}
	if err := script.Add("prices", fromFloats(series.Close)); err != nil {
		return nil, err
	}
	if err := script.Add("times", times); err != nil {
		return nil, err
	}

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", s.Name, err)
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultScriptTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := compiled.RunContext(ctx); err != nil {
		return nil, fmt.Errorf("run %s: %w", s.Name, err)
	}

	v := compiled.Get(ScriptSignalsVar)
	if v == nil || v.IsUndefined() {
		return nil, fmt.Errorf("%s: %w", s.Name, errScriptNoSignals)
	}
	out, err := toFloats(v.Object())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	log.Debugf(log.Signal, "%s script %s generated %d signals", series.Symbol, s.Name, countActive(out))
	return out, nil
}
