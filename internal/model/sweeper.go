package model

// Sweeper is a table with an aging sweep, driven periodically by the aging driver.
type Sweeper interface {
	// Sweep removes expired state and returns how many entries were removed.
	Sweep() int
	Name() string
}
