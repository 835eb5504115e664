//go:build !windows

package main

import (
	"github.com/pkg/errors"

	"github.com/born-ml/kernels/tensor"
)

func newBackend(device string) (tensor.Backend, func() error, error) {
	if device != "cpu" {
		return nil, nil, errors.Errorf("device %q is not built into this binary", device)
	}
	b, closeFn := newCPU()
	return b, closeFn, nil
}
