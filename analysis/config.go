// Package analysis drives a circuit through operating point, DC sweep, AC
// sweep and transient analyses. Every analysis is built on the same Newton
// iteration over the sparse system the circuit stamps.
package analysis

import (
	"io"
	"log"

	sparse "github.com/edp1096/sparsesim"
	"github.com/edp1096/sparsesim/integration"
)

type TruncationPolicy int

const (
	// PerDevice asks every device with integrated states for a step.
	PerDevice TruncationPolicy = iota
	// PerUnknown estimates the error on the history of every unknown.
	PerUnknown
)

type Configuration struct {
	Gmin    float64 // Smallest conductance reached by Gmin stepping
	RelTol  float64
	AbsTol  float64 // Branch current tolerance
	VoltTol float64 // Node voltage tolerance

	DCMaxIterations   int
	TranMaxIterations int
	GminSteps         int
	SourceSteps       int

	PivotRelTol      float64
	PivotAbsTol      float64
	DiagonalPivoting bool

	// Stages tried in order by the operating point. Nil selects direct
	// solve, Gmin stepping and source stepping.
	Stages []ContinuationStage

	Matrix      sparse.Configuration
	Integration integration.Parameters
	Truncation  TruncationPolicy

	Logger *log.Logger
}

func DefaultConfiguration() Configuration {
	matrix := sparse.DefaultConfiguration()
	matrix.Output = io.Discard

	return Configuration{
		Gmin:              1.0e-12,
		RelTol:            1.0e-3,
		AbsTol:            1.0e-12,
		VoltTol:           1.0e-6,
		DCMaxIterations:   100,
		TranMaxIterations: 10,
		GminSteps:         10,
		SourceSteps:       10,
		PivotRelTol:       1.0e-3,
		PivotAbsTol:       1.0e-13,
		DiagonalPivoting:  true,
		Matrix:            matrix,
		Integration:       integration.DefaultParameters(),
		Truncation:        PerDevice,
		Logger:            log.New(io.Discard, "", 0),
	}
}

func (c *Configuration) setDefaults() {
	defaults := DefaultConfiguration()

	if c.Gmin <= 0.0 {
		c.Gmin = defaults.Gmin
	}
	if c.RelTol <= 0.0 {
		c.RelTol = defaults.RelTol
	}
	if c.AbsTol <= 0.0 {
		c.AbsTol = defaults.AbsTol
	}
	if c.VoltTol <= 0.0 {
		c.VoltTol = defaults.VoltTol
	}
	if c.DCMaxIterations <= 0 {
		c.DCMaxIterations = defaults.DCMaxIterations
	}
	if c.TranMaxIterations <= 0 {
		c.TranMaxIterations = defaults.TranMaxIterations
	}
	if c.GminSteps <= 0 {
		c.GminSteps = defaults.GminSteps
	}
	if c.SourceSteps <= 0 {
		c.SourceSteps = defaults.SourceSteps
	}
	if c.PivotRelTol <= 0.0 || c.PivotRelTol > 1.0 {
		c.PivotRelTol = defaults.PivotRelTol
	}
	if c.PivotAbsTol < 0.0 {
		c.PivotAbsTol = defaults.PivotAbsTol
	}
	if c.Matrix.Output == nil {
		c.Matrix.Output = io.Discard
	}
	if c.Logger == nil {
		c.Logger = defaults.Logger
	}
	if c.Stages == nil {
		c.Stages = []ContinuationStage{
			DirectStage{},
			GminStepping{Gmin: c.Gmin, Steps: c.GminSteps},
			SourceStepping{Steps: c.SourceSteps},
		}
	}
}
