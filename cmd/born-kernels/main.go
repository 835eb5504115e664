// Package main provides the born-kernels CLI: it lists the registered
// operators, runs the reference scenarios and micro-benchmarks a kernel.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/kernels/backend/cpu"
	"github.com/born-ml/kernels/tensor"
)

const version = "v0.1.0-dev"

var (
	flagDevice  = flag.String("device", "cpu", "Device to launch on: \"cpu\" or \"webgpu\" (Windows builds only).")
	flagWorkers = flag.Int("workers", 0, "Maximum number of CPU blocks running at once. 0 uses GOMAXPROCS.")
	flagRows    = flag.Int("rows", 4096, "bench: number of rows N.")
	flagCols    = flag.Int("cols", 512, "bench: row length D.")
	flagIters   = flag.Int("iters", 20, "bench: timed iterations.")
	flagGrad    = flag.Bool("grad", false, "run: append the gradient net. Gradient seeds (e.g. Y_grad) must be among the inputs.")
)

func usage() {
	out := flag.CommandLine.Output()
	_, _ = fmt.Fprintf(out, "Born kernels %s\n\n", version)
	_, _ = fmt.Fprintln(out, "Usage: born-kernels [flags] <command> [args]")
	_, _ = fmt.Fprintln(out, "")
	_, _ = fmt.Fprintln(out, "Commands:")
	_, _ = fmt.Fprintln(out, "  version            Show version")
	_, _ = fmt.Fprintln(out, "  ops                List the operators registered on --device")
	_, _ = fmt.Fprintln(out, "  scenarios          Run the reference scenarios on --device")
	_, _ = fmt.Fprintln(out, "  bench <operator>   Time an operator on --rows x --cols inputs")
	_, _ = fmt.Fprintln(out, "  run <net.yaml> <inputs.safetensors> <outputs.safetensors>")
	_, _ = fmt.Fprintln(out, "                     Run a net definition and save the blobs it produces")
	_, _ = fmt.Fprintln(out, "")
	_, _ = fmt.Fprintln(out, "Flags:")
	flag.PrintDefaults()
}

func main() {
	klog.InitFlags(nil)
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	if err := run(args); err != nil {
		klog.Errorf("%s: %+v", args[0], err)
		os.Exit(1)
	}
}

func run(args []string) error {
	switch args[0] {
	case "version":
		fmt.Printf("Born kernels %s\n", version)
		return nil
	case "ops":
		return listOps()
	case "scenarios", "bench", "run":
	default:
		usage()
		return errors.Errorf("unknown command %q", args[0])
	}

	backend, closeBackend, err := newBackend(*flagDevice)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeBackend(); err != nil {
			klog.Errorf("closing %s backend: %v", backend.Name(), err)
		}
	}()

	switch args[0] {
	case "scenarios":
		return runScenarios(os.Stdout, backend)
	case "run":
		if len(args) != 4 {
			return errors.Errorf("run takes a net, an inputs file and an outputs file, see 'born-kernels -help'")
		}
		return runNet(os.Stdout, backend, args[1], args[2], args[3], *flagGrad)
	}
	if len(args) != 2 {
		return errors.Errorf("bench takes exactly one operator, see 'born-kernels -help'")
	}
	return bench(os.Stdout, backend, args[1], *flagRows, *flagCols, *flagIters)
}

func newCPU() (tensor.Backend, func() error) {
	var opts []cpu.Option
	if *flagWorkers > 0 {
		opts = append(opts, cpu.WithMaxParallelism(*flagWorkers))
	}
	b := cpu.New(opts...)
	return b, b.Close
}
