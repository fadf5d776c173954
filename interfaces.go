package yosoku

import "context"

// StrategyGenerator produces mitigation strategy text for a risk prompt.
// When provided via WithStrategyGenerator, replaces the auto-detected Groq
// client. The response must be a JSON array of strategy objects; anything
// unparseable falls through to the rule-based catalog.
// Uses only stdlib types — safe to implement from outside the module.
type StrategyGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// generatorAdapter bridges the public StrategyGenerator to the internal
// mitigation.Generator interface.
type generatorAdapter struct {
	gen StrategyGenerator
}

func (a *generatorAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	return a.gen.Generate(ctx, prompt)
}
