package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/cmplx"
	"os"

	"github.com/edp1096/sparsesim/analysis"
	"github.com/edp1096/sparsesim/circuit"
	"github.com/edp1096/sparsesim/device"
)

// Pi network driven by a 1 A current source at node 1.
func main() {
	ckt := circuit.New("pi network")
	err := ckt.Add(
		device.NewCurrentSource("I1", "0", "1", device.DC(0)).SetAC(1.0, 0.0),
		device.NewResistor("R1", "1", "0", 50.0),
		device.NewCapacitor("C1", "1", "0", 1e-6),
		device.NewResistor("R2", "1", "2", 200.0),
		device.NewResistor("R3", "2", "0", 50.0),
		device.NewCapacitor("C3", "2", "0", 1e-6),
	)
	if err != nil {
		log.Fatalf("Failed to build circuit: %v", err)
	}

	config := analysis.DefaultConfiguration()
	config.Logger = log.New(os.Stderr, "ac: ", 0)

	sim, err := analysis.NewSimulation(ckt, &config)
	if err != nil {
		log.Fatalf("Failed to set up circuit: %v", err)
	}

	out, err := ckt.NodeIndex("2")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("     f (Hz) |  |V(2)| (dB) | phase (deg)")
	fmt.Println("----------------------------------------")

	sweep := analysis.DecadeSweep{Start: 10, Stop: 1e6, PointsPerDecade: 5}
	err = sim.AC(context.Background(), sweep, func(p analysis.ACPoint) error {
		v := p.Solution.ComplexAt(out)
		fmt.Printf("%11.4g | %12.4f | %11.3f\n", p.Frequency, 20*math.Log10(cmplx.Abs(v)), cmplx.Phase(v)*180/math.Pi)
		return nil
	})
	if err != nil {
		log.Fatalf("AC analysis failed: %v", err)
	}
}
