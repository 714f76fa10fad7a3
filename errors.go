package sparsenc

import (
	"errors"
	"fmt"

	"github.com/derekoutis/sparsenc/galois"
)

// Error taxonomy, spec.md section 7. Each sentinel is returned bare or
// wrapped with fmt.Errorf("%w: ...") so callers can errors.Is against it.
var (
	// ErrInvalidParameter covers size_b > size_g, unsupported gfpower,
	// inconsistent datasize, and similar context-construction failures.
	ErrInvalidParameter = errors.New("sparsenc: invalid parameter")

	// ErrAllocationFailure is returned when a memory request (slice growth,
	// buffer allocation) cannot be satisfied.
	ErrAllocationFailure = errors.New("sparsenc: allocation failure")

	// ErrIoFailure is reserved for file-loading collaborators; the core
	// never returns it itself.
	ErrIoFailure = errors.New("sparsenc: I/O failure")

	// ErrInvalidPacket covers a packet with an out-of-range gid or a
	// missing coes/syms payload.
	ErrInvalidPacket = errors.New("sparsenc: invalid packet")

	// ErrInvalidOperand wraps galois.ErrDivideByZero at the library
	// boundary.
	ErrInvalidOperand = errors.New("sparsenc: invalid operand")

	// ErrNotReady is returned by Recover() before a decoder is Finished.
	ErrNotReady = errors.New("sparsenc: decoder not ready")
)

func wrapGaloisErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, galois.ErrDivideByZero) {
		return fmt.Errorf("%w: %v", ErrInvalidOperand, err)
	}
	return err
}
