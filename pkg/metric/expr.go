package metric

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// exprEnv is the compile-time environment of metric expressions.
func exprEnv() map[string]any {
	return map[string]any{
		"gold":   map[string]any{},
		"pred":   map[string]any{},
		"fields": []string{},
	}
}

var exprOptions = []expr.Option{
	expr.AsBool(),
	expr.Function("normalize", func(params ...any) (any, error) {
		return Normalize(toString(params[0])), nil
	}, new(func(any) string)),
	expr.Function("text", func(params ...any) (any, error) {
		return toString(params[0]), nil
	}, new(func(any) string)),
}

// CompileExpr compiles a boolean expression over gold, pred and fields,
// e.g. `normalize(pred.answer) == normalize(gold.answer)`.
func CompileExpr(src string) (Func, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("empty metric expression")
	}
	opts := append([]expr.Option{expr.Env(exprEnv())}, exprOptions...)
	program, err := expr.Compile(src, opts...)
	if err != nil {
		return nil, fmt.Errorf("compile metric expression: %w", err)
	}
	return exprFunc(src, program), nil
}

func exprFunc(src string, program *vm.Program) Func {
	return func(gold, pred map[string]any, fields []string) bool {
		out, err := expr.Run(program, map[string]any{
			"gold":   gold,
			"pred":   pred,
			"fields": fields,
		})
		if err != nil {
			slog.Warn("Metric expression failed", "expr", src, "error", err)
			return false
		}
		ok, _ := out.(bool)
		return ok
	}
}
