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

// Diode forward characteristic through a series resistor.
func main() {
	const Rs = 100.0

	diode := device.NewDiode("D1", "a", "0")
	diode.SetModelParameters(map[string]float64{"is": 1e-14, "n": 1.05})

	ckt := circuit.New("diode sweep")
	err := ckt.Add(
		device.NewVoltageSource("V1", "in", "0", device.DC(0)),
		device.NewResistor("R1", "in", "a", Rs),
		diode,
	)
	if err != nil {
		log.Fatalf("Failed to build circuit: %v", err)
	}

	config := analysis.DefaultConfiguration()
	config.Logger = log.New(os.Stderr, "dc: ", 0)

	sim, err := analysis.NewSimulation(ckt, &config)
	if err != nil {
		log.Fatalf("Failed to set up circuit: %v", err)
	}

	fmt.Println("   V1 (V) |   V(a) (V) |      I (A)")
	fmt.Println("-------------------------------------")

	sweep := analysis.DCSweep{Source: "V1", Start: 0.0, Stop: 2.0, Step: 0.1}
	err = sim.DC(context.Background(), sweep, func(p analysis.DCPoint) error {
		va, err := ckt.Voltage(p.Solution, "a")
		if err != nil {
			return err
		}
		fmt.Printf("%9.3f | %10.5f | %10.4e\n", p.Value, va, (p.Value-va)/Rs)
		return nil
	})
	if err != nil {
		log.Fatalf("DC sweep failed: %v", err)
	}

	fmt.Printf("\nNewton iterations: %d\n", sim.Stats.Iterations)
}
