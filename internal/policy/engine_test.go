package policy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   Input
		allowed bool
	}{
		{"short message", Input{Action: ActionMessage, Message: "hi", MessageChars: 2, MaxMessageChars: 10}, true},
		{"no limit", Input{Action: ActionMessage, MessageChars: 5000}, true},
		{"at limit", Input{Action: ActionMessage, MessageChars: 10, MaxMessageChars: 10}, true},
		{"over limit", Input{Action: ActionMessage, MessageChars: 11, MaxMessageChars: 10}, false},
		{"empty message", Input{Action: ActionMessage, MaxMessageChars: 10}, true},
		{"start ignores limit", Input{Action: ActionStart, MessageChars: 100, MaxMessageChars: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := engine.Evaluate(ctx, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, res.Allowed())
			if !tt.allowed {
				assert.Equal(t, DecisionBlock, res.Decision)
				assert.Equal(t, "message too long", res.Reason)
			}
		})
	}
}

func TestInvalidPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package message_policy\n\ndecision = {")
	assert.Error(t, err)
}

func TestEmptyPolicyAllows(t *testing.T) {
	engine, err := NewEngine(context.Background(), "package message_policy\n")
	require.NoError(t, err)

	res, err := engine.Evaluate(context.Background(), Input{Action: ActionMessage})
	require.NoError(t, err)
	assert.True(t, res.Allowed())
}

const blockTwoSum = `
package message_policy

default decision = "allow"

decision = "block" {
	contains(input.problem_reference, "two-sum")
}
`

func TestReload(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	input := Input{Action: ActionStart, ProblemReference: "https://leetcode.com/problems/two-sum"}
	res, err := engine.Evaluate(ctx, input)
	require.NoError(t, err)
	assert.True(t, res.Allowed())

	require.NoError(t, engine.Reload(ctx, blockTwoSum))
	res, err = engine.Evaluate(ctx, input)
	require.NoError(t, err)
	assert.False(t, res.Allowed())

	assert.Error(t, engine.Reload(ctx, "not rego"))
	res, err = engine.Evaluate(ctx, input)
	require.NoError(t, err)
	assert.False(t, res.Allowed(), "previous policy stays active")
}

func TestNewEngineFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.rego")
	require.NoError(t, os.WriteFile(path, []byte(DefaultPolicy), 0o644))

	_, err := NewEngineFromFile(context.Background(), path)
	require.NoError(t, err)

	_, err = NewEngineFromFile(context.Background(), filepath.Join(t.TempDir(), "missing.rego"))
	assert.Error(t, err)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.rego")
	require.NoError(t, os.WriteFile(path, []byte(DefaultPolicy), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine, err := NewEngineFromFile(ctx, path)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- engine.Watch(ctx, path) }()

	input := Input{Action: ActionStart, ProblemReference: "https://leetcode.com/problems/two-sum"}

	// The watcher may not be registered yet; keep rewriting until it reloads.
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(strings.TrimSpace(blockTwoSum)+"\n"), 0o644)
		res, err := engine.Evaluate(ctx, input)
		return err == nil && !res.Allowed()
	}, 5*time.Second, 200*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
