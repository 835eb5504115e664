package main

import (
	"fmt"

	"github.com/born-ml/kernels/operators"
)

func listOps() error {
	for _, device := range operators.Devices() {
		ops := operators.ListSupportedOps(device)
		fmt.Printf("%s (%d operators)\n", device, len(ops))
		for _, op := range ops {
			fmt.Printf("  %s\n", op)
		}
	}
	return nil
}
