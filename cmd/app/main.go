package main

import (
	"bufio"
	"flag"
	"fmt"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	sparse "github.com/edp1096/sparsesim"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	annotate         = sparse.AnnotateNone
	defaultPartition = sparse.AUTO_PARTITION
)

type App struct {
	matrix         *sparse.Matrix
	filename       string
	description    string
	solutionOnly   bool
	transpose      bool
	printLimit     int
	relThreshold   float64
	absThreshold   float64
	iterations     int
	useColumnAsRHS bool
	columnAsRHS    int64
	rhs            *sparse.Vector
	solution       *sparse.Vector

	dense  *mat.Dense  // Copy of the real matrix before factoring
	cdense *mat.CDense // Copy of the complex matrix before factoring

	largestBefore   float64
	largestAfter    float64
	conditionNumber float64
	pseudoCondition float64
	detTime         float64

	buildTime  float64
	factorTime float64
	solveTime  float64
	startTime  time.Time
}

func InitApp() *App {
	return &App{startTime: time.Now()}
}

func (a *App) readMatrixFromFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNumber := 1

	if !scanner.Scan() {
		return fmt.Errorf("empty file")
	}
	line := strings.TrimSpace(scanner.Text())

	if strings.HasPrefix(line, "Starting") {
		if !scanner.Scan() {
			return fmt.Errorf("missing description")
		}
		lineNumber++
	}
	a.description = strings.TrimSpace(scanner.Text())

	if !a.solutionOnly {
		fmt.Printf("\n%s\n\n", a.description)
	}

	if !scanner.Scan() {
		return fmt.Errorf("missing size information")
	}
	lineNumber++
	fields := strings.Fields(scanner.Text())
	if len(fields) < 1 {
		return fmt.Errorf("syntax error in file '%s' at line %d", a.filename, lineNumber)
	}

	size, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid size value: %w", err)
	}
	isComplex := len(fields) > 1 && strings.EqualFold(fields[1], "complex")

	config := sparse.DefaultConfiguration()
	config.Complex = isComplex
	config.Translate = true
	config.Initialize = true
	config.DefaultPartition = defaultPartition
	config.TiesMultiplier = 5
	config.PrinterWidth = 140
	config.Annotate = annotate

	a.matrix, err = sparse.Create(size, &config)
	if err != nil {
		return fmt.Errorf("failed to create matrix: %w", err)
	}
	a.matrix.SetComplex(isComplex)
	a.rhs = sparse.NewVector(size)

	rhsCol := int64(1)
	if a.useColumnAsRHS {
		rhsCol = min(size, a.columnAsRHS)
	}

	matrixEnded := false
	var rhsValues []string

	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if matrixEnded {
			rhsValues = append(rhsValues, line)
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		row, err1 := strconv.ParseInt(fields[0], 10, 64)
		col, err2 := strconv.ParseInt(fields[1], 10, 64)
		re, err3 := strconv.ParseFloat(fields[2], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return fmt.Errorf("syntax error in file '%s' at line %d", a.filename, lineNumber)
		}
		if row == 0 && col == 0 {
			matrixEnded = true
			continue
		}

		im := 0.0
		if isComplex && len(fields) >= 4 {
			if im, err = strconv.ParseFloat(fields[3], 64); err != nil {
				return fmt.Errorf("syntax error in file '%s' at line %d", a.filename, lineNumber)
			}
		}

		element, err := a.matrix.Element(row, col)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNumber, err)
		}
		element.AddComplex(complex(re, im))
		a.matrix.SetInitInfo(element, &sparse.ComplexNumber{Real: element.Real, Imag: element.Imag})

		if a.useColumnAsRHS && col == rhsCol {
			a.rhs.Real[row] = re
			a.rhs.Imag[row] = im
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}

	if !a.useColumnAsRHS {
		if len(rhsValues) > 0 && strings.HasPrefix(rhsValues[0], "Beginning") {
			rhsValues = rhsValues[1:]
		}
		for i := int64(0); i < size && i < int64(len(rhsValues)); i++ {
			fields := strings.Fields(rhsValues[i])
			if len(fields) == 0 {
				continue
			}
			if value, err := strconv.ParseFloat(fields[0], 64); err == nil {
				a.rhs.Real[i+1] = value
			}
			if isComplex && len(fields) > 1 {
				if value, err := strconv.ParseFloat(fields[1], 64); err == nil {
					a.rhs.Imag[i+1] = value
				}
			}
		}
	}

	if !a.solutionOnly {
		kind := "real"
		if isComplex {
			kind = "complex"
		}
		fmt.Printf("Matrix is %d x %d and %s.\n", size, size, kind)
	}
	return nil
}

func (a *App) solveOnce() (*sparse.Vector, error) {
	if a.transpose {
		return a.matrix.SolveTransposed(a.rhs)
	}
	return a.matrix.Solve(a.rhs)
}

func (a *App) solve() error {
	m := a.matrix

	if !a.solutionOnly {
		a.largestBefore = m.LargestElement()
		if m.Complex {
			a.cdense = m.ToCDense()
		} else {
			a.dense = m.ToDense()
			a.conditionNumber = mat.Cond(a.dense, math.Inf(1))
		}
	}

	initialFactorStart := time.Now()
	if err := m.OrderAndFactor(a.rhs, a.relThreshold, a.absThreshold, true); err != nil {
		return fmt.Errorf("initial order and factor failed: %w", err)
	}
	initialFactorTime := time.Since(initialFactorStart).Seconds()

	var err error
	solveStart := time.Now()
	if a.solution, err = a.solveOnce(); err != nil {
		return fmt.Errorf("initial solve failed: %w", err)
	}
	a.solveTime += time.Since(solveStart).Seconds()

	if !a.solutionOnly {
		a.largestAfter = m.LargestElement()
		a.pseudoCondition = m.PseudoCondition()
	}

	var partitionTime float64
	if !a.solutionOnly {
		partitionStart := time.Now()
		if err := m.Partition(sparse.DEFAULT_PARTITION); err != nil {
			return fmt.Errorf("partition failed: %w", err)
		}
		partitionTime = time.Since(partitionStart).Seconds()
	}

	for i := 1; i <= a.iterations; i++ {
		buildStart := time.Now()
		if err = m.Initialize(); err != nil {
			return fmt.Errorf("initialize failed: %w", err)
		}
		a.buildTime += time.Since(buildStart).Seconds()

		factorStart := time.Now()
		if err = m.Factor(); err != nil {
			return fmt.Errorf("factor failed: %w", err)
		}
		a.factorTime += time.Since(factorStart).Seconds()

		solveStart := time.Now()
		a.solution, err = a.solveOnce()
		a.solveTime += time.Since(solveStart).Seconds()
		if err != nil {
			return fmt.Errorf("solve failed: %w", err)
		}
	}

	size := m.GetSize(true)
	limit := size
	if !a.solutionOnly && a.printLimit > 0 && int64(a.printLimit) < limit {
		limit = int64(a.printLimit)
	}
	if !a.solutionOnly {
		if m.Complex {
			fmt.Println("Complex solution:")
		} else {
			fmt.Println("Solution:")
		}
	}
	for i := int64(1); i <= limit; i++ {
		if m.Complex {
			fmt.Printf("%-16.9g   %-.9g j\n", a.solution.Real[i], a.solution.Imag[i])
		} else {
			fmt.Printf("%-16.9g\n", a.solution.Real[i])
		}
	}
	if !a.solutionOnly && limit < size && limit != 0 {
		fmt.Printf("Solution list truncated.\n")
	}
	fmt.Println()

	if a.solutionOnly {
		return nil
	}

	startTime := time.Now()
	var determinant string
	if m.Complex {
		mantissa, exponent := m.ComplexDeterminant()
		determinant = fmt.Sprintf("%.3g e%d", mantissa, exponent)
	} else {
		mantissa, exponent := m.Determinant()
		determinant = fmt.Sprintf("%.3ge%d", mantissa, exponent)
	}
	a.detTime = time.Since(startTime).Seconds()

	residual, maxRHS := a.normalizedResidual()

	fmt.Printf("Statistics:\n")
	fmt.Printf("Initial factor time = %.2f.\n", initialFactorTime)
	fmt.Printf("Partition time = %.2f.\n", partitionTime)
	if a.iterations > 0 {
		fmt.Printf("Build time = %.3f.\n", a.buildTime/float64(a.iterations))
		fmt.Printf("Factor time = %.3f.\n", a.factorTime/float64(a.iterations))
		fmt.Printf("Solve time = %.3f.\n", a.solveTime/float64(a.iterations))
	}
	fmt.Printf("Determinant time = %.2f.\n", a.detTime)

	fmt.Printf("\nTotal number of elements = %d\n", m.ElementCount())
	fmt.Printf("Average number of elements per row initially = %.2f\n", float64(m.ElementCount()-m.FillinCount())/float64(m.GetSize(false)))
	fmt.Printf("Total number of fill-ins = %d\n", m.FillinCount())
	fmt.Println()

	if a.largestBefore != 0.0 {
		fmt.Printf("Growth = %.2g\n", a.largestAfter/a.largestBefore)
	}
	if a.dense != nil {
		fmt.Printf("Condition number = %.2g\n", a.conditionNumber)
	}
	fmt.Printf("PseudoCondition = %.2g\n", a.pseudoCondition)
	fmt.Printf("Determinant = %s\n", determinant)
	if maxRHS != 0.0 {
		fmt.Printf("Normalized residual = %.2g\n", residual)
	}
	return nil
}

// normalizedResidual returns ‖A·x − b‖∞ / ‖b‖∞ against the dense copy taken
// before factoring, and ‖b‖∞.
func (a *App) normalizedResidual() (float64, float64) {
	n := int(a.matrix.GetSize(true))
	residual := make([]float64, n)

	switch {
	case a.dense != nil:
		x := a.solution.DenseVector()
		var ax mat.VecDense
		if a.transpose {
			ax.MulVec(a.dense.T(), x)
		} else {
			ax.MulVec(a.dense, x)
		}
		for i := range residual {
			residual[i] = ax.AtVec(i) - a.rhs.Real[i+1]
		}
	case a.cdense != nil:
		for i := 0; i < n; i++ {
			var sum complex128
			for j := 0; j < n; j++ {
				if a.transpose {
					sum += a.cdense.At(j, i) * a.solution.ComplexAt(int64(j+1))
				} else {
					sum += a.cdense.At(i, j) * a.solution.ComplexAt(int64(j+1))
				}
			}
			residual[i] = cmplx.Abs(sum - a.rhs.ComplexAt(int64(i+1)))
		}
	default:
		return 0.0, 0.0
	}

	rhs := make([]float64, n)
	for i := range rhs {
		rhs[i] = cmplx.Abs(a.rhs.ComplexAt(int64(i + 1)))
	}
	maxRHS := floats.Norm(rhs, math.Inf(1))
	if maxRHS == 0.0 {
		return 0.0, 0.0
	}
	return floats.Norm(residual, math.Inf(1)) / maxRHS, maxRHS
}

func (a *App) printResourceUsage() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	fmt.Printf("\nAggregate resource usage:\n")
	fmt.Printf("    Time required = %.4f seconds.\n", time.Since(a.startTime).Seconds())
	fmt.Printf("    Heap memory used = %d kBytes\n", m.HeapAlloc/1024)
	fmt.Printf("    Total memory from OS = %d kBytes\n\n", m.Sys/1024)
}

func main() {
	solutionOnly := flag.Bool("s", false, "Print solution rather than run statistics")
	relThreshold := flag.Float64("r", 0.001, "Use x as relative threshold")
	absThreshold := flag.Float64("a", 0.0, "Use x as absolute threshold")
	printLimit := flag.Int("n", 9, "Print first n terms of solution vector")
	iterations := flag.Int("i", 1, "Repeat build/factor/solve n times")
	columnAsRHS := flag.Int("b", -1, "Use n'th column of matrix as b in Ax=b")
	transpose := flag.Bool("t", false, "Solve the transposed system")
	verbose := flag.Bool("v", false, "Annotate every pivot")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Println("Error: Please provide a matrix file")
		os.Exit(1)
	}
	if *verbose {
		annotate = sparse.AnnotateFull
	}

	a := InitApp()
	a.filename = args[0]
	a.solutionOnly = *solutionOnly
	a.transpose = *transpose
	a.printLimit = *printLimit
	a.iterations = *iterations
	a.relThreshold = *relThreshold
	a.absThreshold = *absThreshold

	if *columnAsRHS > 0 {
		a.useColumnAsRHS = true
		a.columnAsRHS = int64(*columnAsRHS)
	}

	if err := a.readMatrixFromFile(args[0]); err != nil {
		fmt.Printf("%s: %v\n", filepath.Base(os.Args[0]), err)
		os.Exit(1)
	}

	if a.matrix.Config.ModifiedNodal {
		a.matrix.MNAPreorder()
	}

	if err := a.solve(); err != nil {
		fmt.Printf("%s: %v\n", filepath.Base(os.Args[0]), err)
		os.Exit(1)
	}

	if !a.solutionOnly {
		a.printResourceUsage()
	}

	a.matrix.Destroy()
}
