// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ops provides the operator drivers of the kernel library.
//
// A driver validates its operands, allocates the outputs on the backend's
// device, enqueues kernels and returns without waiting. Read results only
// after Backend.Synchronize.
//
// # Operators
//
// Row-wise distances over (N, D) inputs, each with its gradient:
//   - SquaredL2Distance: 0.5 * sum (x - y)^2
//   - L1Distance: sum |x - y|
//   - DotProduct: sum x * y
//   - CosineSimilarity: dot / (max(|x|, eps) * max(|y|, eps))
//
// Spatial operators over 4-D feature maps:
//   - MaxPoolWithIndex: max pooling with an int32 argmax mask (NCHW)
//   - PadImage: constant, reflect and edge padding (NCHW and NHWC)
//
// Element-wise and utility operators:
//   - OneHot, Sin, PrependDim, MergeDim
//
// # Example
//
//	backend := cpu.New()
//	defer backend.Close()
//
//	cos := ops.NewCosineSimilarity()
//	c, err := cos.Forward(backend, x, y)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := backend.Synchronize(ctx); err != nil {
//	    log.Fatal(err)
//	}
package ops
