// Package sensor provides seat presence reading with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package sensor

// Reader reads the seat presence input.
type Reader interface {
	// Read returns true when presence (weight) is detected.
	Read() (bool, error)

	// Close releases hardware resources.
	Close() error
}

// Defaults for a Raspberry Pi with the pressure switch on BCM 17.
const (
	DefaultChip = "gpiochip0"
	DefaultLine = 17
)

// Options selects the presence line and how to interpret it.
type Options struct {
	Chip string
	Line int
	// ActiveLow treats a low level as presence (switch to ground with pull-up).
	ActiveLow bool
}
