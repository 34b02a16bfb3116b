package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/edp1096/sparsesim/analysis"
	"github.com/edp1096/sparsesim/circuit"
	"github.com/edp1096/sparsesim/device"
)

func main() {
	const (
		R1  = 1000.0
		R2  = 2000.0
		Vin = 5.0
	)

	ckt := circuit.New("divider with diode clamp")
	err := ckt.Add(
		device.NewVoltageSource("V1", "in", "0", device.DC(Vin)),
		device.NewResistor("R1", "in", "out", R1),
		device.NewResistor("R2", "out", "0", R2),
		device.NewDiode("D1", "out", "0"),
	)
	if err != nil {
		log.Fatalf("Failed to build circuit: %v", err)
	}

	config := analysis.DefaultConfiguration()
	config.Matrix.Output = os.Stdout
	config.Logger = log.New(os.Stderr, "op: ", 0)

	sim, err := analysis.NewSimulation(ckt, &config)
	if err != nil {
		log.Fatalf("Failed to set up circuit: %v", err)
	}

	x, err := sim.Op(context.Background())
	if err != nil {
		log.Fatalf("Failed to solve operating point: %v", err)
	}

	fmt.Println("Matrix after factorization:")
	sim.Circuit.Matrix.Print(false, true, true)

	fmt.Println("\nOperating point:")
	for _, u := range ckt.Unknowns() {
		unit := "V"
		if u.Kind == circuit.BranchUnknown {
			unit = "A"
		}
		fmt.Printf("%-12s %14.6g %s\n", u.Name, x.Real[u.Index], unit)
	}

	fmt.Printf("\nNewton iterations: %d\n", sim.Stats.Iterations)
	fmt.Printf("Orderings: %d, refactorings: %d\n", sim.Stats.Orderings, sim.Stats.Factorings)
	fmt.Printf("Fill-ins: %d of %d elements\n", sim.Circuit.Matrix.FillinCount(), sim.Circuit.Matrix.ElementCount())
}
