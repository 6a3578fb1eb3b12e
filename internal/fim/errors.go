package fim

import "errors"

// Sentinel errors for the Intent Motor. Wrapped with fmt.Errorf("...: %w",
// Err...) at call sites, checked with errors.Is — same discipline as
// internal/core/errors.go.
var (
	ErrUnintelligibleAudio = errors.New("audio could not be transcribed into intelligible text")
	ErrTimeout             = errors.New("intent motor call exceeded its deadline")
	ErrProviderError       = errors.New("reasoning provider call failed")
	ErrBadIntentShape      = errors.New("reasoner returned an intent shape outside the closed discriminator set")
)
