// Package debounce tracks per-class alert cooldowns measured in ticks.
package debounce

// Class identifies an alert class with its own cooldown.
type Class string

// Alert classes with cooldowns.
const (
	ClassSleepAlert Class = "sleep_alert"
)

// Cooldowns suppresses alert classes for a number of ticks after they fire.
// A class is eligible again once its counter reaches zero. Cooldowns is
// owned by the sampling loop and is not safe for concurrent use.
type Cooldowns struct {
	periods   map[Class]int
	remaining map[Class]int
}

// New creates Cooldowns with no configured classes.
func New(opts ...Option) *Cooldowns {
	c := &Cooldowns{
		periods:   make(map[Class]int),
		remaining: make(map[Class]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ready reports whether class may fire now.
func (c *Cooldowns) Ready(class Class) bool {
	return c.remaining[class] == 0
}

// TryFire atomically checks that class is ready and arms its cooldown.
// It returns false when the class is still cooling down.
func (c *Cooldowns) TryFire(class Class) bool {
	if !c.Ready(class) {
		return false
	}
	if p := c.periods[class]; p > 0 {
		c.remaining[class] = p
	}
	return true
}

// Remaining returns the ticks left before class is eligible again.
func (c *Cooldowns) Remaining(class Class) int {
	return c.remaining[class]
}

// Tick decrements every active cooldown by one.
func (c *Cooldowns) Tick() {
	for class, n := range c.remaining {
		if n <= 1 {
			delete(c.remaining, class)
			continue
		}
		c.remaining[class] = n - 1
	}
}

// Reset clears all in-flight cooldowns.
func (c *Cooldowns) Reset() {
	clear(c.remaining)
}
