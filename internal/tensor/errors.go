package tensor

import "github.com/pkg/errors"

// Error taxonomy shared by drivers, backends and the registry.
// Callers match with errors.Is; the wrapped message carries the details.
var (
	// ErrShapeMismatch reports inputs whose shapes disagree or have the wrong rank.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrUnsupportedDType reports an element type the operator does not accept.
	ErrUnsupportedDType = errors.New("unsupported element type")

	// ErrInvalidArgument reports a bad operator attribute.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownOperator reports a registry lookup miss.
	ErrUnknownOperator = errors.New("unknown operator")

	// ErrLaunchFailed reports a kernel that failed on the device.
	ErrLaunchFailed = errors.New("kernel launch failed")
)
