//go:build docker

package cli

// Container images upgrade by pulling a new tag, not by rewriting the
// binary in place.
func setupSelfUpgrade() {}
