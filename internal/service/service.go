// Package service implements the tutoring session lifecycle on top of the
// store, the history assembler and the upstream gateway.
package service

import (
	"time"

	"github.com/xiaot623/leetmentor/internal/adapter/llm"
	"github.com/xiaot623/leetmentor/internal/history"
	"github.com/xiaot623/leetmentor/internal/policy"
	"github.com/xiaot623/leetmentor/internal/repository"
)

type Service struct {
	store        repository.Store
	assembler    *history.Assembler
	gateway      llm.Gateway
	policyEngine *policy.Engine
	sampling     llm.SamplingConfig
	timeout      time.Duration
	maxChars     int

	locks *keyedMutex
}

// Options carries the tunables read from config.
type Options struct {
	Sampling llm.SamplingConfig
	// Timeout bounds each upstream call. Zero leaves only the caller's
	// context in effect.
	Timeout time.Duration
	// MaxMessageChars is passed to the policy; 0 means no limit.
	MaxMessageChars int
}

// New creates the service. policyEngine may be nil, which admits every
// request.
func New(store repository.Store, assembler *history.Assembler, gateway llm.Gateway, policyEngine *policy.Engine, opts Options) *Service {
	return &Service{
		store:        store,
		assembler:    assembler,
		gateway:      gateway,
		policyEngine: policyEngine,
		sampling:     opts.Sampling,
		timeout:      opts.Timeout,
		maxChars:     opts.MaxMessageChars,
		locks:        newKeyedMutex(),
	}
}
