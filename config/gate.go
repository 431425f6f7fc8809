package config

import "time"

// GateConfig contains access gate configuration.
type GateConfig struct {
	// ReadyTimeout bounds how long the gate waits for the session store to
	// resolve its first auth state before assuming unauthenticated.
	ReadyTimeout time.Duration `env:"GATE_READY_TIMEOUT" envDefault:"10s"`

	// PromptDebounce is the window during which repeated blocked
	// interactions on a locked element emit no further sign-in prompts.
	PromptDebounce time.Duration `env:"GATE_PROMPT_DEBOUNCE" envDefault:"2s"`
}

// Sanitize applies guardrails to gate configuration values.
func (c *GateConfig) Sanitize() {
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = 10 * time.Second
	}
	if c.PromptDebounce <= 0 {
		c.PromptDebounce = 2 * time.Second
	}
}
