package recovery

import (
	"fmt"
	"time"

	"github.com/scienceol/recovery/internal/duration"
)

const (
	defaultMinDelay       = 500 * time.Millisecond
	defaultFactor         = 2
	defaultMaxRetries     = 10
	defaultAttemptTimeout = 30 * time.Second
)

// Config holds the backoff settings of a recovery cycle.
type Config struct {
	MaxDelay       time.Duration // upper bound on a scheduled delay
	MinDelay       time.Duration // delay of the first attempt, base of the exponent
	Factor         float64       // exponential growth multiplier
	MaxRetries     int           // attempts before giving up
	AttemptTimeout time.Duration // how long an attempt may stay unresolved
}

// DefaultConfig returns the settings used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		MaxDelay:       duration.Infinite,
		MinDelay:       defaultMinDelay,
		Factor:         defaultFactor,
		MaxRetries:     defaultMaxRetries,
		AttemptTimeout: defaultAttemptTimeout,
	}
}

// Validate reports settings the controller cannot honour.
func (c Config) Validate() error {
	if c.MinDelay < 0 {
		return fmt.Errorf("min delay must not be negative, got %s", c.MinDelay)
	}
	if c.MaxDelay < c.MinDelay {
		return fmt.Errorf("max delay %s is below min delay %s", duration.Format(c.MaxDelay), c.MinDelay)
	}
	if c.Factor < 1 {
		return fmt.Errorf("factor must be at least 1, got %g", c.Factor)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	}
	if c.AttemptTimeout <= 0 {
		return fmt.Errorf("attempt timeout must be positive, got %s", c.AttemptTimeout)
	}
	return nil
}

// Overrides is a partial Config. Nil fields fall through to the next tier.
type Overrides struct {
	MaxDelay       *duration.Duration `yaml:"max_delay,omitempty"`
	MinDelay       *duration.Duration `yaml:"min_delay,omitempty"`
	Factor         *float64           `yaml:"factor,omitempty"`
	MaxRetries     *int               `yaml:"max_retries,omitempty"`
	AttemptTimeout *duration.Duration `yaml:"attempt_timeout,omitempty"`
}

// Apply returns base with every set field of o replacing its counterpart.
func (o Overrides) Apply(base Config) Config {
	if o.MaxDelay != nil {
		base.MaxDelay = o.MaxDelay.Std()
	}
	if o.MinDelay != nil {
		base.MinDelay = o.MinDelay.Std()
	}
	if o.Factor != nil {
		base.Factor = *o.Factor
	}
	if o.MaxRetries != nil {
		base.MaxRetries = *o.MaxRetries
	}
	if o.AttemptTimeout != nil {
		base.AttemptTimeout = o.AttemptTimeout.Std()
	}
	return base
}

// Merge layers top over o, top winning where both are set.
func (o Overrides) Merge(top Overrides) Overrides {
	if top.MaxDelay != nil {
		o.MaxDelay = top.MaxDelay
	}
	if top.MinDelay != nil {
		o.MinDelay = top.MinDelay
	}
	if top.Factor != nil {
		o.Factor = top.Factor
	}
	if top.MaxRetries != nil {
		o.MaxRetries = top.MaxRetries
	}
	if top.AttemptTimeout != nil {
		o.AttemptTimeout = top.AttemptTimeout
	}
	return o
}
