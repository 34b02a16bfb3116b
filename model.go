package sparse

import "io"

const (
	DEFAULT_PARTITION  int = 0
	DIRECT_PARTITION   int = 1
	INDIRECT_PARTITION int = 2
	AUTO_PARTITION     int = 3

	DefaultThreshold      = 1.0e-3
	DefaultTiesMultiplier = 5

	// Element arena sizing
	DefaultSpaceForElements      = 6
	DefaultElementsPerAllocation = 64
	DefaultExpansionFactor       = 1.5
	MinimumAllocatedSize         = 6

	largestShortInteger = 32767
	largestLongInteger  = 2147483647
)

// Annotation levels
const (
	AnnotateNone = iota
	AnnotateOnStrangeBehavior
	AnnotateFull
)

// Replace spConfig
type Configuration struct {
	Real                    bool
	Complex                 bool
	SeparatedComplexVectors bool // not used by Vector, kept for raw slice solvers

	Expandable       bool
	Translate        bool
	Initialize       bool
	DiagonalPivoting bool
	ModifiedNodal    bool
	Transpose        bool
	Stability        bool
	Condition        bool
	PseudoCondition  bool
	Determinant      bool

	DefaultThreshold      float64 // For relative threshold
	SpaceForElements      int     // Elements per node in the first arena block
	ElementsPerAllocation int     // Elements per following arena block
	ExpansionFactor       float64 // Growth factor of EnlargeMatrix
	TiesMultiplier        int
	DefaultPartition      int
	PrinterWidth          int       // Default: 80
	Annotate              int       // 0: None, 1: OnStrangeBehavior , 2: Full
	Output                io.Writer // Print, WriteStatus destination. Default: os.Stdout
}

type Matrix struct {
	Config Configuration

	Size          int64 // Matrix size
	ExtSize       int64 // Largest external index seen
	CurrentSize   int64 // Internal rows handed out by Translate
	AllocatedSize int64 // Capacity of the internal arrays
	AllocatedExt  int64 // Capacity of the external translation arrays
	Complex       bool  // Values are factored and solved as complex

	DoRealDirect    []bool // Address mode real - Partition function
	DoComplexDirect []bool // Address mode complex - Partition function
	OperationCount  int    // Operation count for inner loop of factorization - Partition function

	Diags                 []*Element // Diagonal elements (as reciprocal after factor) [1...Size]
	FirstInRow            []*Element // First element in each row [1...Size]
	FirstInCol            []*Element // First element in each column [1...Size]
	Intermediate          []float64  // Temporary vector for rhs, solution, etc. [2*(Size+1)]
	scatter               []*Element // Indirect factor scatter table [Size+1]
	MarkowitzRow          []int64    // Markowitz counts of each row [1...Size]
	MarkowitzCol          []int64    // Markowitz counts of each column [1...Size]
	MarkowitzProd         []int64    // Markowitz products [0...Size+1]
	MaxRowCountInLowerTri int64      // Maximum number of off-diagonals in L
	RelThreshold          float64    // Relative threshold
	AbsThreshold          float64    // Absolute threshold

	// Pivot search cascade, tried in order at every elimination step
	Strategies []PivotStrategy

	// Factoring status flags
	NeedsOrdering             bool // reorder neccessary
	NumberOfInterchangesIsOdd bool // when reorder, number of interchanges is odd
	Partitioned               bool // partitioned
	Factored                  bool // factor done
	Reordered                 bool // reorder done
	RowsLinked                bool // rows linked

	SingularRow int64 // Singular row number
	SingularCol int64 // Singular column number

	// Counts
	Elements   int // Element count
	Fillins    int // Fill-in count
	Singletons int // singleton count

	// Pivot
	PivotsOriginalRow    int64  // Original pivot row number
	PivotsOriginalCol    int64  // Original pivot column number
	PivotSelectionMethod string // name of the strategy that chose the last pivot

	InternalVectorsAllocated bool

	IntToExtRowMap []int64 // Internal->External rows map [1...Size]
	IntToExtColMap []int64 // Internal->External columns map [1...Size]
	ExtToIntRowMap []int64 // External->Internal rows map [1...ExtSize]
	ExtToIntColMap []int64 // External->Internal columns map [1...ExtSize]

	arena    *elementArena
	TrashCan *Element // Absorbs stamps addressed to ground
}

type ComplexNumber struct {
	Real float64
	Imag float64
}

// Element is a nonzero of the matrix. Its address is a stable handle: the
// arena never moves an element once allocated.
type Element struct {
	Real      float64
	Imag      float64
	Row       int64
	Col       int64
	NextInRow *Element
	NextInCol *Element
	InitInfo  *ComplexNumber
}

type Template struct {
	Element1        *Element
	Element2        *Element
	Element3Negated *Element
	Element4Negated *Element
}
