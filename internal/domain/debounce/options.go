package debounce

// Option applies a configuration option to Cooldowns.
type Option func(*Cooldowns)

// WithCooldown sets how many ticks class stays suppressed after it fires.
// Zero disables the cooldown for that class.
func WithCooldown(class Class, ticks int) Option {
	return func(c *Cooldowns) {
		if ticks >= 0 {
			c.periods[class] = ticks
		}
	}
}
