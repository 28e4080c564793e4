//go:build !darwin && !linux && !windows

package paste

// NewInjector returns an injector that always degrades to manual paste.
func NewInjector() Injector {
	return Unavailable{Reason: "no paste injector for this platform"}
}
