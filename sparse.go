package sparse // import "github.com/edp1096/sparsesim"

import (
	"fmt"
	"os"
)

// DefaultConfiguration returns the settings used when Create gets a nil config.
func DefaultConfiguration() Configuration {
	return Configuration{
		Real:                  true,
		Complex:               true,
		Expandable:            true,
		Translate:             false,
		DiagonalPivoting:      true,
		ModifiedNodal:         true,
		Stability:             true,
		Condition:             true,
		PseudoCondition:       true,
		Determinant:           true,
		DefaultThreshold:      DefaultThreshold,
		SpaceForElements:      DefaultSpaceForElements,
		ElementsPerAllocation: DefaultElementsPerAllocation,
		ExpansionFactor:       DefaultExpansionFactor,
		TiesMultiplier:        DefaultTiesMultiplier,
		DefaultPartition:      AUTO_PARTITION,
		PrinterWidth:          80,
		Annotate:              AnnotateNone,
		Output:                os.Stdout,
	}
}

func (c *Configuration) setDefaults() {
	if !c.Real && !c.Complex {
		c.Real = true
	}
	if c.DefaultThreshold <= 0.0 || c.DefaultThreshold > 1.0 {
		c.DefaultThreshold = DefaultThreshold
	}
	if c.SpaceForElements <= 0 {
		c.SpaceForElements = DefaultSpaceForElements
	}
	if c.ElementsPerAllocation <= 0 {
		c.ElementsPerAllocation = DefaultElementsPerAllocation
	}
	if c.ExpansionFactor <= 1.0 {
		c.ExpansionFactor = DefaultExpansionFactor
	}
	if c.TiesMultiplier <= 0 {
		c.TiesMultiplier = DefaultTiesMultiplier
	}
	if c.PrinterWidth <= 0 {
		c.PrinterWidth = 80
	}
	if c.Output == nil {
		c.Output = os.Stdout
	}
}

func Create(size int64, config *Configuration) (*Matrix, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	if config == nil {
		defaultConfig := DefaultConfiguration()
		config = &defaultConfig
	}
	cfg := *config
	cfg.setDefaults()

	allocated := max(size, MinimumAllocatedSize)

	m := &Matrix{
		Config:        cfg,
		Complex:       cfg.Complex && !cfg.Real,
		NeedsOrdering: true,
		RelThreshold:  cfg.DefaultThreshold,
		AbsThreshold:  0.0,
		Strategies:    DefaultStrategies(),
		arena:         newElementArena(int(allocated)*cfg.SpaceForElements, cfg.ElementsPerAllocation),
		TrashCan:      &Element{},
	}

	m.reallocInternal(allocated)
	m.expandTranslationArrays(allocated)

	if cfg.Translate {
		// Internal rows are handed out on first use.
		m.Size = 0
		return m, nil
	}

	if err := m.EnlargeMatrix(size); err != nil {
		return nil, err
	}

	return m, nil
}

// reallocInternal grows every array indexed by internal row/column.
func (m *Matrix) reallocInternal(capacity int64) {
	n := int(capacity + 2)

	m.DoRealDirect = grow(m.DoRealDirect, n)
	m.DoComplexDirect = grow(m.DoComplexDirect, n)
	m.Diags = grow(m.Diags, n)
	m.FirstInRow = grow(m.FirstInRow, n)
	m.FirstInCol = grow(m.FirstInCol, n)
	m.MarkowitzRow = grow(m.MarkowitzRow, n)
	m.MarkowitzCol = grow(m.MarkowitzCol, n)
	m.MarkowitzProd = grow(m.MarkowitzProd, n)
	m.IntToExtRowMap = grow(m.IntToExtRowMap, n)
	m.IntToExtColMap = grow(m.IntToExtColMap, n)

	m.AllocatedSize = capacity
	m.CreateInternalVectors()
}

func (m *Matrix) expandTranslationArrays(newExtSize int64) {
	if newExtSize <= m.AllocatedExt {
		return
	}

	capacity := max(newExtSize, int64(m.Config.ExpansionFactor*float64(m.AllocatedExt)))
	oldLen := len(m.ExtToIntRowMap)

	m.ExtToIntRowMap = grow(m.ExtToIntRowMap, int(capacity+1))
	m.ExtToIntColMap = grow(m.ExtToIntColMap, int(capacity+1))
	for i := oldLen; i < len(m.ExtToIntRowMap); i++ {
		m.ExtToIntRowMap[i] = -1
		m.ExtToIntColMap[i] = -1
	}
	m.ExtToIntRowMap[0] = 0
	m.ExtToIntColMap[0] = 0

	m.AllocatedExt = capacity
}

// EnlargeMatrix grows the matrix to newSize unknowns. Existing elements and
// handles are untouched; the ordering is invalidated.
func (m *Matrix) EnlargeMatrix(newSize int64) error {
	oldSize := m.Size
	if newSize <= oldSize {
		return nil
	}

	if newSize > m.AllocatedSize {
		if !m.Config.Expandable {
			return fmt.Errorf("%w: %d > %d", ErrSizeFixed, newSize, m.AllocatedSize)
		}
		capacity := max(newSize, int64(m.Config.ExpansionFactor*float64(m.AllocatedSize)))
		m.reallocInternal(capacity)
	}

	for i := oldSize + 1; i <= newSize; i++ {
		m.IntToExtRowMap[i] = i
		m.IntToExtColMap[i] = i
		m.Diags[i] = nil
		m.FirstInRow[i] = nil
		m.FirstInCol[i] = nil
		m.MarkowitzRow[i] = 0
		m.MarkowitzCol[i] = 0
		m.MarkowitzProd[i] = 0
	}
	m.Size = newSize

	if !m.Config.Translate {
		m.expandTranslationArrays(newSize)
		for i := oldSize + 1; i <= newSize; i++ {
			m.ExtToIntRowMap[i] = i
			m.ExtToIntColMap[i] = i
		}
		m.ExtSize = newSize
	}

	m.NeedsOrdering = true
	m.Partitioned = false
	m.Factored = false
	return nil
}

func (m *Matrix) GetInitInfo(element *Element) *ComplexNumber {
	return element.InitInfo
}

func (m *Matrix) SetInitInfo(element *Element, value *ComplexNumber) {
	element.InitInfo = &ComplexNumber{Real: value.Real, Imag: value.Imag}
}

func (m *Matrix) Initialize() error {
	for j := int64(1); j <= m.Size; j++ {
		for element := m.FirstInCol[j]; element != nil; element = element.NextInCol {
			if element.InitInfo == nil {
				element.Real = 0.0
				element.Imag = 0.0
			} else {
				element.Real = element.InitInfo.Real
				element.Imag = element.InitInfo.Imag
			}
		}
	}

	m.Factored = false
	m.SingularCol = 0
	m.SingularRow = 0

	return nil
}

// Clear zeroes every value and keeps the structure, so handles stay valid.
func (m *Matrix) Clear() {
	for i := m.Size; i > 0; i-- {
		for element := m.FirstInCol[i]; element != nil; element = element.NextInCol {
			element.Real = 0.0
			element.Imag = 0.0
		}
	}
	m.TrashCan.Real = 0.0
	m.TrashCan.Imag = 0.0

	m.Factored = false
	m.SingularCol = 0
	m.SingularRow = 0
}

// SetComplex selects the value domain used by Factor and Solve. Switching
// drops the current ordering since pivots chosen on real values may not be
// acceptable for complex ones.
func (m *Matrix) SetComplex(complex bool) {
	if m.Complex == complex {
		return
	}
	m.Complex = complex
	m.NeedsOrdering = true
	m.Partitioned = false
	m.Factored = false
}

func (m *Matrix) Destroy() {
	m.DoRealDirect = nil
	m.DoComplexDirect = nil

	m.IntToExtColMap = nil
	m.IntToExtRowMap = nil
	m.ExtToIntColMap = nil
	m.ExtToIntRowMap = nil

	m.Diags = nil
	m.FirstInRow = nil
	m.FirstInCol = nil
	m.Intermediate = nil
	m.scatter = nil
	m.MarkowitzRow = nil
	m.MarkowitzCol = nil
	m.MarkowitzProd = nil

	if m.arena != nil {
		m.arena.release()
	}
	m.Elements = 0

	m.Size = 0
	m.ExtSize = 0
	m.AllocatedSize = 0
	m.AllocatedExt = 0
	m.NeedsOrdering = false
	m.Partitioned = false
	m.Factored = false
	m.Reordered = false
	m.RowsLinked = false
	m.InternalVectorsAllocated = false

	m.SingularRow = 0
	m.SingularCol = 0
	m.Fillins = 0
	m.Singletons = 0
}

func (m *Matrix) createElement(row, col int64, firstInRow, firstInCol **Element, fillin bool) *Element {
	current := *firstInCol
	prev := firstInCol
	for current != nil && current.Row < row {
		prev = &current.NextInCol
		current = current.NextInCol
	}

	if current != nil && current.Row == row {
		return current
	}

	element := m.arena.alloc(row, col)
	if fillin {
		m.Fillins++

		m.MarkowitzRow[row]++
		m.MarkowitzCol[col]++
		m.MarkowitzProd[row] = markowitzProduct(m.MarkowitzRow[row], m.MarkowitzCol[row])
		m.MarkowitzProd[col] = markowitzProduct(m.MarkowitzRow[col], m.MarkowitzCol[col])

		if m.MarkowitzRow[row] == 1 && m.MarkowitzCol[row] != 0 {
			m.Singletons--
		}
		if m.MarkowitzCol[col] == 1 && m.MarkowitzRow[col] != 0 {
			m.Singletons--
		}
	} else {
		m.NeedsOrdering = true
	}

	m.Elements++

	element.NextInCol = current
	*prev = element

	if m.RowsLinked {
		current = *firstInRow
		prev = firstInRow
		for current != nil && current.Col < col {
			prev = &current.NextInRow
			current = current.NextInRow
		}
		element.NextInRow = current
		*prev = element
	}

	if row == col {
		m.Diags[row] = element
	}

	return element
}

// Element returns the element at external (row, col), creating it when
// absent. Row or column 0 is ground: stamps there land in the trash can.
func (m *Matrix) Element(row, col int64) (*Element, error) {
	if row < 0 || col < 0 {
		return nil, fmt.Errorf("%w: (%d,%d)", ErrInvalidIndex, row, col)
	}
	if row == 0 || col == 0 {
		return m.TrashCan, nil
	}

	internalRow, internalCol, err := m.Translate(row, col)
	if err != nil {
		return nil, err
	}

	if internalRow == internalCol {
		if element := m.Diags[internalRow]; element != nil {
			return element, nil
		}
	}

	for element := m.FirstInCol[internalCol]; element != nil; element = element.NextInCol {
		if element.Row == internalRow {
			return element, nil
		}
		if element.Row > internalRow {
			break
		}
	}

	return m.createElement(internalRow, internalCol, &m.FirstInRow[internalRow], &m.FirstInCol[internalCol], false), nil
}

// GetElement is Element without the error; it returns nil on a bad index.
func (m *Matrix) GetElement(row, col int64) *Element {
	element, err := m.Element(row, col)
	if err != nil {
		return nil
	}
	return element
}

func (m *Matrix) GetAdmittance(node1, node2 int64, template *Template) error {
	return m.GetQuad(node1, node2, node1, node2, template)
}

// GetQuad fills a template for the four elements (row1,col1), (row2,col2),
// (row2,col1) and (row1,col2) used by two-terminal and transfer stamps.
func (m *Matrix) GetQuad(row1, row2, col1, col2 int64, template *Template) error {
	var err error

	if template.Element1, err = m.Element(row1, col1); err != nil {
		return err
	}
	if template.Element2, err = m.Element(row2, col2); err != nil {
		return err
	}
	if template.Element3Negated, err = m.Element(row2, col1); err != nil {
		return err
	}
	if template.Element4Negated, err = m.Element(row1, col2); err != nil {
		return err
	}

	return nil
}

func (m *Matrix) LinkRows() {
	for row := m.Size; row >= 1; row-- {
		m.FirstInRow[row] = nil
	}

	for col := m.Size; col >= 1; col-- {
		for element := m.FirstInCol[col]; element != nil; element = element.NextInCol {
			element.Col = col
			element.NextInRow = m.FirstInRow[element.Row]
			m.FirstInRow[element.Row] = element
		}
	}

	m.RowsLinked = true
}

// Translate maps external indices to internal ones, enlarging the matrix
// when the configuration allows it.
func (m *Matrix) Translate(extRow, extCol int64) (intRow, intCol int64, err error) {
	top := max(extRow, extCol)

	if !m.Config.Translate {
		if top > m.Size {
			if !m.Config.Expandable {
				return 0, 0, fmt.Errorf("%w: index %d > size %d", ErrSizeFixed, top, m.Size)
			}
			if err := m.EnlargeMatrix(top); err != nil {
				return 0, 0, err
			}
		}
		return m.ExtToIntRowMap[extRow], m.ExtToIntColMap[extCol], nil
	}

	if top > m.AllocatedExt {
		if !m.Config.Expandable {
			return 0, 0, fmt.Errorf("%w: index %d > size %d", ErrSizeFixed, top, m.AllocatedExt)
		}
		m.expandTranslationArrays(top)
	}
	m.ExtSize = max(m.ExtSize, top)

	if intRow, err = m.translateOne(extRow, m.ExtToIntRowMap); err != nil {
		return 0, 0, err
	}
	if intCol, err = m.translateOne(extCol, m.ExtToIntColMap); err != nil {
		return 0, 0, err
	}

	return intRow, intCol, nil
}

// translateOne looks ext up in lookup, the row or column map. A new index
// gets the next internal row and column together.
func (m *Matrix) translateOne(ext int64, lookup []int64) (int64, error) {
	if internal := lookup[ext]; internal != -1 {
		return internal, nil
	}

	internal := m.CurrentSize + 1
	if internal > m.AllocatedSize && !m.Config.Expandable {
		return 0, fmt.Errorf("%w: index %d", ErrSizeFixed, ext)
	}
	if err := m.EnlargeMatrix(internal); err != nil {
		return 0, err
	}
	m.CurrentSize = internal

	m.ExtToIntRowMap[ext] = internal
	m.ExtToIntColMap[ext] = internal
	m.IntToExtRowMap[internal] = ext
	m.IntToExtColMap[internal] = ext

	return internal, nil
}

func (m *Matrix) CreateInternalVectors() {
	m.Intermediate = make([]float64, 2*(m.AllocatedSize+1))
	m.scatter = make([]*Element, m.AllocatedSize+1)
	m.InternalVectorsAllocated = true
}
