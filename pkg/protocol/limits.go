package protocol

import "errors"

// Depth limits complementing the allocation limits in decoder.go. Deeply
// nested wire structures would otherwise drive unbounded recursion.
const (
	// MaxNodeDepth limits the nesting depth of wire node trees. 256
	// levels covers any reasonable component hierarchy.
	MaxNodeDepth = 256

	// MaxValueDepth limits the nesting of prop values (arrays and
	// objects inside arrays and objects).
	MaxValueDepth = 64
)

// ErrMaxDepthExceeded reports a wire structure nested past its limit.
var ErrMaxDepthExceeded = errors.New("protocol: maximum nesting depth exceeded")

func checkDepth(current, max int) error {
	if current > max {
		return ErrMaxDepthExceeded
	}
	return nil
}
