//go:build windows

package main

import (
	"github.com/pkg/errors"

	"github.com/born-ml/kernels/backend/webgpu"
	"github.com/born-ml/kernels/tensor"
)

func newBackend(device string) (tensor.Backend, func() error, error) {
	switch device {
	case "cpu":
		b, closeFn := newCPU()
		return b, closeFn, nil
	case "webgpu":
		gpu, err := webgpu.New()
		if err != nil {
			return nil, nil, err
		}
		return gpu, gpu.Close, nil
	default:
		return nil, nil, errors.Errorf("unknown device %q", device)
	}
}
