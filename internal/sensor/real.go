//go:build linux

package sensor

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads presence from hardware using the Linux GPIO character device.
type RealReader struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealReader requests the presence line as an input.
func NewRealReader(opts Options) (*RealReader, error) {
	chipName := opts.Chip
	if chipName == "" {
		chipName = DefaultChip
	}
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	// Active-low switches pull the line to ground, so bias it high.
	reqOpts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullDown}
	if opts.ActiveLow {
		reqOpts = []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.AsActiveLow}
	}

	line, err := chip.RequestLine(opts.Line, reqOpts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request presence line %d: %w", opts.Line, err)
	}

	return &RealReader{chip: chip, line: line}, nil
}

// Read returns true when the line is at its active level.
func (r *RealReader) Read() (bool, error) {
	v, err := r.line.Value()
	if err != nil {
		return false, fmt.Errorf("read presence line: %w", err)
	}
	return v == 1, nil
}

// Close releases GPIO resources.
// The line is returned to input with pull-down (the Pi boot default) before
// closing so attached hardware sees a clean state on reboot.
func (r *RealReader) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure presence line: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close presence line: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
