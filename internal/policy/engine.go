// Package policy evaluates the OPA admission policy applied to every user
// message before it reaches a session.
package policy

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/open-policy-agent/opa/rego"
)

// Decisions a policy may return.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Actions passed in the policy input.
const (
	ActionStart   = "start_session"
	ActionMessage = "message"
)

// Input is the document exposed to rego as input.
type Input struct {
	Action           string `json:"action"`
	ProblemReference string `json:"problem_reference"`
	Message          string `json:"message"`
	MessageChars     int    `json:"message_chars"`
	MaxMessageChars  int    `json:"max_message_chars"`
}

// Result is the outcome of one evaluation.
type Result struct {
	Decision string
	Reason   string
}

// Allowed reports whether the input may proceed.
func (r Result) Allowed() bool {
	return r.Decision != DecisionBlock
}

// Engine is the OPA policy engine. The prepared query can be swapped at
// runtime by Reload.
type Engine struct {
	mu    sync.RWMutex
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	query, err := prepare(ctx, policyContent)
	if err != nil {
		return nil, err
	}
	return &Engine{query: query}, nil
}

// NewEngineFromFile creates an engine from a policy file on disk.
func NewEngineFromFile(ctx context.Context, path string) (*Engine, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy: %w", err)
	}
	return NewEngine(ctx, string(content))
}

func prepare(ctx context.Context, policyContent string) (rego.PreparedEvalQuery, error) {
	r := rego.New(
		rego.Query("data.message_policy"),
		rego.Module("message_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return rego.PreparedEvalQuery{}, fmt.Errorf("failed to prepare rego: %w", err)
	}
	return query, nil
}

// Reload replaces the active policy. The old policy stays in effect when
// the new content does not compile.
func (e *Engine) Reload(ctx context.Context, policyContent string) error {
	query, err := prepare(ctx, policyContent)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.query = query
	e.mu.Unlock()
	return nil
}

// Evaluate checks input against the active policy. A policy that defines
// no decision allows.
func (e *Engine) Evaluate(ctx context.Context, input Input) (Result, error) {
	e.mu.RLock()
	query := e.query
	e.mu.RUnlock()

	results, err := query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Result{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Result{Decision: DecisionAllow, Reason: "default"}, nil
	}

	doc, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Result{Decision: DecisionAllow, Reason: "unexpected return type"}, nil
	}

	res := Result{Decision: DecisionAllow}
	if s, ok := doc["decision"].(string); ok {
		res.Decision = s
	}
	if s, ok := doc["reason"].(string); ok {
		res.Reason = s
	}
	return res, nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package message_policy

default decision = "allow"

default reason = ""

decision = "block" {
	too_long
}

reason = "message too long" {
	too_long
}

too_long {
	input.action == "message"
	input.max_message_chars > 0
	input.message_chars > input.max_message_chars
}
`
