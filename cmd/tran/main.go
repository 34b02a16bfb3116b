package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/edp1096/sparsesim/analysis"
	"github.com/edp1096/sparsesim/circuit"
	"github.com/edp1096/sparsesim/device"
	"github.com/edp1096/sparsesim/integration"
)

// Series RLC driven by a pulse.
func main() {
	const (
		R = 100.0
		L = 1e-3
		C = 1e-6
	)

	gear := flag.Bool("gear", false, "Use Gear instead of trapezoidal integration")
	order := flag.Int("order", 2, "Maximum integration order")
	perUnknown := flag.Bool("unknowns", false, "Estimate truncation error on every unknown")
	stop := flag.Float64("stop", 2e-3, "Stop time")
	step := flag.Float64("step", 1e-5, "Output step")
	flag.Parse()

	pulse := device.Pulse{V1: 0, V2: 5, Delay: 1e-4, Rise: 1e-6, Fall: 1e-6, Width: 5e-4, Period: 1e-3}

	l1 := device.NewInductor("L1", "a", "out", L)

	ckt := circuit.New("rlc")
	err := ckt.Add(
		device.NewVoltageSource("V1", "in", "0", pulse),
		device.NewResistor("R1", "in", "a", R),
		l1,
		device.NewCapacitor("C1", "out", "0", C),
	)
	if err != nil {
		log.Fatalf("Failed to build circuit: %v", err)
	}

	config := analysis.DefaultConfiguration()
	config.Logger = log.New(os.Stderr, "tran: ", 0)
	config.Integration.MaxOrder = *order
	if *gear {
		config.Integration.Method = integration.Gear{}
	}
	if *perUnknown {
		config.Truncation = analysis.PerUnknown
	}

	sim, err := analysis.NewSimulation(ckt, &config)
	if err != nil {
		log.Fatalf("Failed to set up circuit: %v", err)
	}

	fmt.Println("Time (s)     | Step (s)   | Ord | V(in)  | V(out)  | I(L1)")
	fmt.Println("-------------------------------------------------------------")

	tran := analysis.NewTransient(sim, *step, *stop)
	tran.OnExport = func(d analysis.ExportData) error {
		vin, _ := ckt.Voltage(d.Solution, "in")
		vout, _ := ckt.Voltage(d.Solution, "out")
		il := d.Solution.Real[l1.Branch()]
		fmt.Printf("%.6e | %.4e | %3d | %6.3f | %7.4f | %9.3e\n", d.Time, d.Step, d.Order, vin, vout, il)
		return nil
	}
	if err := tran.Run(context.Background()); err != nil {
		log.Fatalf("Transient failed: %v", err)
	}

	fmt.Printf("\nAccepted %d, rejected %d, Newton iterations %d\n", sim.Stats.Accepted, sim.Stats.Rejected, sim.Stats.Iterations)
}
