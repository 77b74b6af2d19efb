package animator

import (
	"github.com/Carmen-Shannon/oxy-gear/internal/config"

	"go.uber.org/zap"
)

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithLooping is an option builder that toggles looping playback. A non-looping clip
// holds its first keyframe before the start and its last keyframe after the end.
//
// Parameters:
//   - looping: whether clips wrap around
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the looping option to an animator
func WithLooping(looping bool) AnimatorBuilderOption {
	return func(a *animator) {
		a.looping = looping
	}
}

// WithConfig is an option builder that applies the animator section of the configuration.
//
// Parameters:
//   - cfg: the animator configuration
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the configuration to an animator
func WithConfig(cfg config.AnimatorConfig) AnimatorBuilderOption {
	return func(a *animator) {
		a.looping = cfg.Looping
	}
}

// WithLogger is an option builder that sets the logger.
func WithLogger(log *zap.Logger) AnimatorBuilderOption {
	return func(a *animator) {
		if log != nil {
			a.log = log
		}
	}
}
