package knowledge

import (
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// conditionEvaluator compiles and caches expr-lang rule conditions so
// repeated AI Validator passes over the same rule set don't recompile
// expressions per row.
type conditionEvaluator struct {
	mu            sync.RWMutex
	compiledCache map[string]*vm.Program
}

func newConditionEvaluator() *conditionEvaluator {
	return &conditionEvaluator{compiledCache: make(map[string]*vm.Program)}
}

// Evaluate runs condition against variables and coerces the result to bool.
func (ce *conditionEvaluator) Evaluate(condition string, variables map[string]any) (bool, error) {
	if condition == "" {
		return false, fmt.Errorf("knowledge: condition cannot be empty")
	}

	program, err := ce.getCompiledProgram(condition)
	if err != nil {
		return false, err
	}

	result, err := expr.Run(program, variables)
	if err != nil {
		if isVariableNotFoundError(err.Error()) {
			return false, nil
		}
		return false, fmt.Errorf("knowledge: evaluate condition %q: %w", condition, err)
	}

	resultBool, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("knowledge: condition %q did not return bool, got %T", condition, result)
	}
	return resultBool, nil
}

func (ce *conditionEvaluator) getCompiledProgram(condition string) (*vm.Program, error) {
	ce.mu.RLock()
	program, cached := ce.compiledCache[condition]
	ce.mu.RUnlock()
	if cached {
		return program, nil
	}

	envType := map[string]interface{}{}
	compiled, err := expr.Compile(condition, expr.Env(envType), expr.AsBool())
	if err != nil {
		compiled, err = expr.Compile(condition, expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("knowledge: compile condition %q: %w", condition, err)
		}
	}

	ce.mu.Lock()
	ce.compiledCache[condition] = compiled
	ce.mu.Unlock()

	return compiled, nil
}

func isVariableNotFoundError(msg string) bool {
	patterns := []string{"cannot fetch", "undefined", "unknown name", "nil pointer", "not found"}
	lower := strings.ToLower(msg)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
