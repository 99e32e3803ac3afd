package collection

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/fundwatch/internal/domain"
)

// providerState tracks one provider's error run.
type providerState struct {
	priority          int
	consecutiveErrors int
	disabled          bool
}

// CircuitBreaker disables a provider after a run of consecutive
// failures. There is no time-based recovery: a tripped provider stays
// disabled until an explicit Reset, so a dead upstream cannot flap.
type CircuitBreaker struct {
	mu        sync.Mutex
	states    map[string]*providerState
	threshold int
	log       zerolog.Logger
}

// NewCircuitBreaker creates a breaker that trips after threshold
// consecutive failures.
func NewCircuitBreaker(threshold int, log zerolog.Logger) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	return &CircuitBreaker{
		states:    make(map[string]*providerState),
		threshold: threshold,
		log:       log.With().Str("component", "circuit_breaker").Logger(),
	}
}

// Register adds a provider with its fallback priority. Registering an
// existing provider is a no-op.
func (b *CircuitBreaker) Register(name string, priority int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.states[name]; !ok {
		b.states[name] = &providerState{priority: priority}
	}
}

// Allow reports whether the provider may be invoked.
func (b *CircuitBreaker) Allow(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, ok := b.states[name]
	return ok && !state.disabled
}

// RecordSuccess clears the provider's error run.
func (b *CircuitBreaker) RecordSuccess(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if state, ok := b.states[name]; ok {
		state.consecutiveErrors = 0
	}
}

// RecordFailure counts one failure and trips the circuit when the run
// reaches the threshold.
func (b *CircuitBreaker) RecordFailure(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.states[name]
	if !ok {
		return
	}

	state.consecutiveErrors++
	if !state.disabled && state.consecutiveErrors >= b.threshold {
		state.disabled = true
		b.log.Warn().
			Str("provider", name).
			Int("consecutive_errors", state.consecutiveErrors).
			Msg("Provider disabled after repeated failures")
	}
}

// Reset re-enables one provider and clears its error run.
func (b *CircuitBreaker) Reset(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if state, ok := b.states[name]; ok {
		state.consecutiveErrors = 0
		state.disabled = false
		b.log.Info().Str("provider", name).Msg("Provider circuit reset")
	}
}

// ResetAll re-enables every provider.
func (b *CircuitBreaker) ResetAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, state := range b.states {
		state.consecutiveErrors = 0
		state.disabled = false
	}
	b.log.Info().Msg("All provider circuits reset")
}

// Status snapshots every provider's circuit state, ordered by priority.
func (b *CircuitBreaker) Status() []domain.ProviderStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.ProviderStatus, 0, len(b.states))
	for name, state := range b.states {
		out = append(out, domain.ProviderStatus{
			Name:              name,
			Priority:          state.priority,
			Enabled:           !state.disabled,
			ConsecutiveErrors: state.consecutiveErrors,
			ErrorThreshold:    b.threshold,
		})
	}

	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Priority < out[j-1].Priority; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
