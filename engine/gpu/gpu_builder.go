package gpu

import (
	"github.com/Carmen-Shannon/oxy-gear/internal/logger"
	"go.uber.org/zap"
)

// deviceConfig collects the options applied by NewDevice.
type deviceConfig struct {
	label         string
	family        Family
	forceFallback bool
	log           *zap.Logger
}

func (c *deviceConfig) defaults() {
	if c.label == "" {
		c.label = "oxy-gear"
	}
	if c.log == nil {
		c.log = logger.Named("gpu")
	}
}

// DeviceBuilderOption is a function that configures a device during construction.
type DeviceBuilderOption func(*deviceConfig)

// WithLabel sets the debug label of the device.
//
// Parameters:
//   - label: the device label
//
// Returns:
//   - DeviceBuilderOption: a function that applies the label option
func WithLabel(label string) DeviceBuilderOption {
	return func(c *deviceConfig) {
		c.label = label
	}
}

// WithFamily sets the layout family the device reports to callers.
//
// Parameters:
//   - family: the layout family
//
// Returns:
//   - DeviceBuilderOption: a function that applies the family option
func WithFamily(family Family) DeviceBuilderOption {
	return func(c *deviceConfig) {
		c.family = family
	}
}

// WithForceFallbackAdapter requests the software fallback adapter.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - DeviceBuilderOption: a function that applies the adapter option
func WithForceFallbackAdapter(force bool) DeviceBuilderOption {
	return func(c *deviceConfig) {
		c.forceFallback = force
	}
}

// WithLogger sets the logger used by the device.
//
// Parameters:
//   - log: the zap logger
//
// Returns:
//   - DeviceBuilderOption: a function that applies the logger option
func WithLogger(log *zap.Logger) DeviceBuilderOption {
	return func(c *deviceConfig) {
		c.log = log
	}
}
