//go:build windows

package operators

import "github.com/born-ml/kernels/internal/tensor"

var builtDevices = []tensor.Device{tensor.CPU, tensor.WebGPU}
