// Package watchdog stops timers that have been left running too long.
package watchdog

import "time"

// Config defines the watchdog configuration.
type Config struct {
	// Interval is how often running timers are checked.
	Interval time.Duration `yaml:"interval"`
	// MaxSession is the longest a single session may run before it is
	// stopped and capped. Zero disables the watchdog.
	MaxSession time.Duration `yaml:"max_session"`
}

// DefaultConfig returns a disabled watchdog that would check every minute.
func DefaultConfig() *Config {
	return &Config{Interval: time.Minute}
}

// Enabled reports whether the watchdog should run at all.
func (c *Config) Enabled() bool {
	return c.MaxSession > 0 && c.Interval > 0
}
