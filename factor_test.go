package sparse

import (
	"bytes"
	"errors"
	"math"
	"math/cmplx"
	"math/rand"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// naturalOrder pivots on the diagonal in index order.
type naturalOrder struct{}

func (naturalOrder) Name() string { return "natural" }

func (naturalOrder) FindPivot(m *Matrix, step int64) *Element {
	return m.Diags[step]
}

func arrowhead(n int) [][]float64 {
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n)
		a[i][i] = 4.0
		a[i][0] = 1.0
		a[0][i] = 1.0
	}
	a[0][0] = float64(n)
	return a
}

func solveDense(t *testing.T, a [][]float64, b []float64) *mat.VecDense {
	t.Helper()
	var x mat.VecDense
	if err := x.SolveVec(denseOf(a), mat.NewVecDense(len(b), b)); err != nil {
		t.Fatalf("dense solve: %v", err)
	}
	return &x
}

func assertSolution(t *testing.T, got *Vector, want *mat.VecDense, tol float64) {
	t.Helper()
	for i := 0; i < want.Len(); i++ {
		w := want.AtVec(i)
		if math.Abs(got.Real[i+1]-w) > tol*math.Max(1.0, math.Abs(w)) {
			t.Errorf("x[%d] = %.15g, want %.15g", i+1, got.Real[i+1], w)
		}
	}
}

func TestArrowheadOrderingAvoidsFillins(t *testing.T) {
	const n = 8
	a := arrowhead(n)
	b := make([]float64, n)
	for i := range b {
		b[i] = float64(i + 1)
	}

	m, err := Create(n, nil)
	if err != nil {
		t.Fatal(err)
	}
	stamp(t, m, a)

	if err := m.OrderAndFactor(nil, 0, 0, true); err != nil {
		t.Fatal(err)
	}
	if m.FillinCount() != 0 {
		t.Fatalf("Markowitz ordering produced %d fill-ins, want 0", m.FillinCount())
	}

	x, err := m.Solve(vectorOf(b))
	if err != nil {
		t.Fatal(err)
	}
	assertSolution(t, x, solveDense(t, a, b), 1e-12)

	natural, err := Create(n, nil)
	if err != nil {
		t.Fatal(err)
	}
	natural.Strategies = []PivotStrategy{naturalOrder{}}
	stamp(t, natural, a)

	if err := natural.OrderAndFactor(nil, 0, 0, true); err != nil {
		t.Fatal(err)
	}
	if got, want := natural.FillinCount(), (n-1)*(n-2); got != want {
		t.Fatalf("natural ordering produced %d fill-ins, want %d", got, want)
	}
	if natural.PivotSelectionMethod != "natural" {
		t.Errorf("pivot method = %q", natural.PivotSelectionMethod)
	}

	x, err = natural.Solve(vectorOf(b))
	if err != nil {
		t.Fatal(err)
	}
	assertSolution(t, x, solveDense(t, a, b), 1e-12)
}

func TestRandomSystemsMatchDenseSolve(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 5; trial++ {
		n := 10 + rng.Intn(30)
		a := randomDominant(rng, n, 0.15)
		b := make([]float64, n)
		for i := range b {
			b[i] = rng.Float64()*10 - 5
		}

		m, err := Create(int64(n), nil)
		if err != nil {
			t.Fatal(err)
		}
		stamp(t, m, a)

		// Residual check uses the unfactored values.
		original := m.ToDense()

		if err := m.OrderAndFactor(vectorOf(b), 0, 0, trial%2 == 0); err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
		x, err := m.Solve(vectorOf(b))
		if err != nil {
			t.Fatal(err)
		}
		assertSolution(t, x, solveDense(t, a, b), 1e-9)

		var residual mat.VecDense
		residual.MulVec(original, x.DenseVector())
		residual.SubVec(&residual, mat.NewVecDense(n, b))
		if norm := mat.Norm(&residual, math.Inf(1)); norm > 1e-9 {
			t.Errorf("trial %d: residual %g", trial, norm)
		}
	}
}

func TestRefactorKeepsPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	const n = 15
	a := randomDominant(rng, n, 0.2)
	b := make([]float64, n)
	for i := range b {
		b[i] = rng.Float64()
	}

	m, err := Create(n, nil)
	if err != nil {
		t.Fatal(err)
	}
	stamp(t, m, a)
	if err := m.OrderAndFactor(vectorOf(b), 0, 0, true); err != nil {
		t.Fatal(err)
	}
	first, _ := m.Solve(vectorOf(b))

	rowMap := append([]int64(nil), m.IntToExtRowMap[1:n+1]...)
	colMap := append([]int64(nil), m.IntToExtColMap[1:n+1]...)
	elements := m.ElementCount()

	// Same structure, doubled values.
	m.Clear()
	for i, row := range a {
		for j, v := range row {
			if v != 0.0 {
				m.GetElement(int64(i+1), int64(j+1)).Add(2 * v)
			}
		}
	}
	if err := m.Factor(); err != nil {
		t.Fatalf("Factor: %v", err)
	}

	for i := range rowMap {
		if m.IntToExtRowMap[i+1] != rowMap[i] || m.IntToExtColMap[i+1] != colMap[i] {
			t.Fatalf("permutation changed at %d", i+1)
		}
	}
	if m.ElementCount() != elements {
		t.Fatalf("element count changed from %d to %d", elements, m.ElementCount())
	}

	second, _ := m.Solve(vectorOf(b))
	for i := 1; i <= n; i++ {
		if math.Abs(second.Real[i]-first.Real[i]/2) > 1e-12 {
			t.Errorf("x[%d] = %g, want %g", i, second.Real[i], first.Real[i]/2)
		}
	}

	again, _ := m.Solve(vectorOf(b))
	for i := 1; i <= n; i++ {
		if again.Real[i] != second.Real[i] {
			t.Fatalf("repeated solve differs at %d", i)
		}
	}
}

func TestReorderingWhenDiagonalFailsThreshold(t *testing.T) {
	a := [][]float64{
		{4, 1, 0},
		{1, 4, 1},
		{0, 1, 4},
	}
	b := []float64{1, 2, 3}

	m, err := Create(3, nil)
	if err != nil {
		t.Fatal(err)
	}
	stamp(t, m, a)
	if err := m.OrderAndFactor(nil, 0, 0, true); err != nil {
		t.Fatal(err)
	}

	// A tiny (2,2) no longer passes the relative threshold.
	a[1][1] = 1e-9
	m.Clear()
	stamp(t, m, a)
	if err := m.OrderAndFactor(vectorOf(b), 0.5, 0, true); err != nil {
		t.Fatal(err)
	}

	x, err := m.Solve(vectorOf(b))
	if err != nil {
		t.Fatal(err)
	}
	assertSolution(t, x, solveDense(t, a, b), 1e-9)
}

func TestFactorDetectsNewStructure(t *testing.T) {
	m, err := Create(2, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Factor(); !errors.Is(err, ErrStructureInvalidated) {
		t.Fatalf("Factor before ordering: got %v", err)
	}
	if _, err := m.Solve(NewVector(2)); !errors.Is(err, ErrNotFactored) {
		t.Fatalf("Solve before factoring: got %v", err)
	}

	m.GetElement(1, 1).Add(2.0)
	m.GetElement(2, 2).Add(3.0)
	if err := m.OrderAndFactor(nil, 0, 0, true); err != nil {
		t.Fatal(err)
	}

	m.GetElement(1, 2).Add(1.0)
	if err := m.Factor(); !errors.Is(err, ErrStructureInvalidated) {
		t.Fatalf("got %v, want ErrStructureInvalidated", err)
	}

	m.Clear()
	m.GetElement(1, 1).Add(2.0)
	m.GetElement(2, 2).Add(3.0)
	m.GetElement(1, 2).Add(1.0)
	if err := m.OrderAndFactor(nil, 0, 0, true); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Solve(NewVector(1)); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("short rhs: got %v, want ErrSizeMismatch", err)
	}
}

func TestZeroRowIsSingular(t *testing.T) {
	m, err := Create(3, nil)
	if err != nil {
		t.Fatal(err)
	}
	m.GetElement(1, 1).Add(2.0)
	m.GetElement(1, 3).Add(1.0)
	m.GetElement(2, 1)
	m.GetElement(2, 2)
	m.GetElement(3, 2).Add(1.0)
	m.GetElement(3, 3).Add(4.0)

	err = m.OrderAndFactor(nil, 0, 0, true)
	if !errors.Is(err, ErrSingular) {
		t.Fatalf("got %v, want ErrSingular", err)
	}

	var singular *SingularError
	if !errors.As(err, &singular) {
		t.Fatalf("error %T does not carry the location", err)
	}
	if singular.Step < 1 || singular.Step > 3 {
		t.Errorf("step = %d", singular.Step)
	}
	if m.Factored {
		t.Errorf("matrix marked factored after failure")
	}
}

func TestRefactorZeroPivotIsSingular(t *testing.T) {
	m, err := Create(2, nil)
	if err != nil {
		t.Fatal(err)
	}
	d1 := m.GetElement(1, 1)
	d2 := m.GetElement(2, 2)
	d1.Add(1.0)
	d2.Add(1.0)
	if err := m.OrderAndFactor(nil, 0, 0, true); err != nil {
		t.Fatal(err)
	}

	m.Clear()
	d1.Add(1.0)
	if err := m.Factor(); !errors.Is(err, ErrSingular) {
		t.Fatalf("got %v, want ErrSingular", err)
	}
}

func TestPartitionModesAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	const n = 20
	a := randomDominant(rng, n, 0.25)
	b := make([]float64, n)
	for i := range b {
		b[i] = rng.Float64()
	}
	want := solveDense(t, a, b)

	for _, mode := range []int{DIRECT_PARTITION, INDIRECT_PARTITION, AUTO_PARTITION} {
		config := DefaultConfiguration()
		config.DefaultPartition = mode

		m, err := Create(n, &config)
		if err != nil {
			t.Fatal(err)
		}
		stamp(t, m, a)
		if err := m.OrderAndFactor(vectorOf(b), 0, 0, true); err != nil {
			t.Fatal(err)
		}

		// Refactor goes through Partition and the chosen update path.
		m.Clear()
		stamp(t, m, a)
		if err := m.Factor(); err != nil {
			t.Fatalf("mode %d: %v", mode, err)
		}

		x, err := m.Solve(vectorOf(b))
		if err != nil {
			t.Fatal(err)
		}
		assertSolution(t, x, want, 1e-9)
	}

	m, _ := Create(2, nil)
	if err := m.Partition(99); err == nil {
		t.Errorf("unknown partition mode accepted")
	}
}

func TestSolveTransposedMatchesDense(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	const n = 12
	a := randomDominant(rng, n, 0.3)
	b := make([]float64, n)
	for i := range b {
		b[i] = rng.Float64()
	}

	transposed := make([][]float64, n)
	for i := range transposed {
		transposed[i] = make([]float64, n)
		for j := range transposed[i] {
			transposed[i][j] = a[j][i]
		}
	}

	m, err := Create(n, nil)
	if err != nil {
		t.Fatal(err)
	}
	stamp(t, m, a)
	if err := m.OrderAndFactor(nil, 0, 0, false); err != nil {
		t.Fatal(err)
	}

	x, err := m.SolveTransposed(vectorOf(b))
	if err != nil {
		t.Fatal(err)
	}
	assertSolution(t, x, solveDense(t, transposed, b), 1e-9)
}

func TestDeterminantMatchesDense(t *testing.T) {
	rng := rand.New(rand.NewSource(9))

	for _, diagPivoting := range []bool{true, false} {
		const n = 7
		a := make([][]float64, n)
		for i := range a {
			a[i] = make([]float64, n)
			for j := range a[i] {
				if rng.Float64() < 0.6 {
					a[i][j] = rng.Float64()*20 - 10
				}
			}
			a[i][(i+3)%n] += 25.0
		}

		m, err := Create(n, nil)
		if err != nil {
			t.Fatal(err)
		}
		stamp(t, m, a)
		if err := m.OrderAndFactor(nil, 0, 0, diagPivoting); err != nil {
			t.Fatal(err)
		}

		mantissa, exponent := m.Determinant()
		if mantissa != 0 && (math.Abs(mantissa) < 1.0 || math.Abs(mantissa) >= 10.0) {
			t.Errorf("mantissa %g not normalized", mantissa)
		}

		got := mantissa * math.Pow10(exponent)
		want := mat.Det(denseOf(a))
		if math.Abs(got-want) > 1e-8*math.Abs(want) {
			t.Errorf("diagPivoting=%v: det = %g, want %g", diagPivoting, got, want)
		}
	}
}

func TestMNAPreorderFillsZeroDiagonal(t *testing.T) {
	// Conductance with a voltage source branch: the branch row has no
	// diagonal entry.
	m, err := Create(2, nil)
	if err != nil {
		t.Fatal(err)
	}
	m.GetElement(1, 1).Add(1e-3)
	m.GetElement(1, 2).Add(1.0)
	m.GetElement(2, 1).Add(1.0)

	if m.Diags[2] != nil {
		t.Fatal("unexpected diagonal before preorder")
	}
	m.MNAPreorder()
	if m.Diags[1] == nil || m.Diags[2] == nil {
		t.Fatal("preorder left a structural zero on the diagonal")
	}

	rhs := NewVector(2)
	rhs.Real[1] = 1.0
	rhs.Real[2] = 5.0
	if err := m.OrderAndFactor(rhs, 0, 0, true); err != nil {
		t.Fatal(err)
	}
	x, err := m.Solve(rhs)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(x.Real[1]-5.0) > 1e-12 || math.Abs(x.Real[2]-0.995) > 1e-12 {
		t.Errorf("x = (%g, %g), want (5, 0.995)", x.Real[1], x.Real[2])
	}

	mantissa, exponent := m.Determinant()
	if det := mantissa * math.Pow10(exponent); math.Abs(det+1.0) > 1e-12 {
		t.Errorf("det = %g, want -1", det)
	}
}

func TestComplexSolveResidual(t *testing.T) {
	config := DefaultConfiguration()
	config.Real = false

	m, err := Create(3, &config)
	if err != nil {
		t.Fatal(err)
	}
	if !m.Complex {
		t.Fatal("matrix is not complex")
	}

	entries := map[[2]int64]complex128{
		{1, 1}: complex(2, 1),
		{1, 2}: complex(0, -1),
		{2, 1}: complex(0, -1),
		{2, 2}: complex(1, 3),
		{2, 3}: complex(-1, 0),
		{3, 2}: complex(-1, 0),
		{3, 3}: complex(4, -2),
	}
	for rc, v := range entries {
		m.GetElement(rc[0], rc[1]).AddComplex(v)
	}
	original := m.ToCDense()

	rhs := NewVector(3)
	rhs.Real[1], rhs.Imag[1] = 1.0, 0.5
	rhs.Real[3] = -2.0

	if err := m.OrderAndFactor(rhs, 0, 0, true); err != nil {
		t.Fatal(err)
	}

	for _, transposed := range []bool{false, true} {
		var x *Vector
		if transposed {
			x, err = m.SolveTransposed(rhs)
		} else {
			x, err = m.Solve(rhs)
		}
		if err != nil {
			t.Fatal(err)
		}

		for i := 0; i < 3; i++ {
			var sum complex128
			for j := 0; j < 3; j++ {
				a := original.At(i, j)
				if transposed {
					a = original.At(j, i)
				}
				sum += a * x.ComplexAt(int64(j+1))
			}
			if cmplx.Abs(sum-rhs.ComplexAt(int64(i+1))) > 1e-12 {
				t.Errorf("transposed=%v row %d: residual %v", transposed, i+1, sum-rhs.ComplexAt(int64(i+1)))
			}
		}
	}

	mantissa, exponent := m.ComplexDeterminant()
	det := mantissa * complex(math.Pow10(exponent), 0)
	want := original.At(0, 0)*(original.At(1, 1)*original.At(2, 2)-original.At(1, 2)*original.At(2, 1)) -
		original.At(0, 1)*(original.At(1, 0)*original.At(2, 2)-original.At(1, 2)*original.At(2, 0))
	if cmplx.Abs(det-want) > 1e-9*cmplx.Abs(want) {
		t.Errorf("det = %v, want %v", det, want)
	}
}

func TestRealFactorsRejectComplexSolve(t *testing.T) {
	m, _ := Create(1, nil)
	m.GetElement(1, 1).Add(1.0)
	if err := m.OrderAndFactor(nil, 0, 0, true); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SolveComplex(NewVector(1)); err == nil {
		t.Error("complex solve on real factors succeeded")
	}
}

func TestAnnotationReportsPivots(t *testing.T) {
	var out bytes.Buffer
	config := DefaultConfiguration()
	config.Annotate = AnnotateFull
	config.Output = &out

	m, err := Create(3, &config)
	if err != nil {
		t.Fatal(err)
	}
	stamp(t, m, arrowhead(3))
	if err := m.OrderAndFactor(nil, 0, 0, true); err != nil {
		t.Fatal(err)
	}

	if got := strings.Count(out.String(), "Pivot found"); got != 3 {
		t.Errorf("%d pivot reports, want 3:\n%s", got, out.String())
	}

	out.Reset()
	m.Print(false, true, true)
	if out.Len() == 0 {
		t.Error("Print wrote nothing")
	}
}

func TestPseudoConditionAndLargestElement(t *testing.T) {
	m, _ := Create(2, nil)
	m.GetElement(1, 1).Add(100.0)
	m.GetElement(2, 2).Add(0.5)

	if got := m.LargestElement(); got != 100.0 {
		t.Errorf("largest = %g, want 100", got)
	}
	if err := m.OrderAndFactor(nil, 0, 0, true); err != nil {
		t.Fatal(err)
	}
	if got := m.PseudoCondition(); math.Abs(got-200.0) > 1e-9 {
		t.Errorf("pseudo condition = %g, want 200", got)
	}
}
