package project

import (
	"fmt"
	"slices"

	"github.com/scottjudy/deepcell-label/errors"
)

// Raster holds the label planes: one width-by-height array of raw pixel
// values per (feature, frame). Value zero is background.
type Raster struct {
	Features int
	Frames   int
	Width    int
	Height   int
	planes   [][][]uint32 // [feature][frame][y*Width+x]
}

// NewRaster allocates a zeroed raster
func NewRaster(features, frames, width, height int) *Raster {
	planes := make([][][]uint32, features)
	for f := range planes {
		planes[f] = make([][]uint32, frames)
		for t := range planes[f] {
			planes[f][t] = make([]uint32, width*height)
		}
	}
	return &Raster{
		Features: features,
		Frames:   frames,
		Width:    width,
		Height:   height,
		planes:   planes,
	}
}

func (r *Raster) inRange(feature, frame, x, y int) bool {
	return feature >= 0 && feature < r.Features &&
		frame >= 0 && frame < r.Frames &&
		x >= 0 && x < r.Width &&
		y >= 0 && y < r.Height
}

// Get returns the value at (x, y), or zero out of range
func (r *Raster) Get(feature, frame, x, y int) uint32 {
	if !r.inRange(feature, frame, x, y) {
		return 0
	}
	return r.planes[feature][frame][y*r.Width+x]
}

// Set writes the value at (x, y); out of range is a no-op
func (r *Raster) Set(feature, frame, x, y int, value uint32) {
	if !r.inRange(feature, frame, x, y) {
		return
	}
	r.planes[feature][frame][y*r.Width+x] = value
}

// Plane returns the backing plane for one (feature, frame)
func (r *Raster) Plane(feature, frame int) ([]uint32, error) {
	if feature < 0 || feature >= r.Features || frame < 0 || frame >= r.Frames {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: feature %d frame %d", errors.ErrFrameOutOfRange, feature, frame),
			"Raster", "Plane", "bounds check")
	}
	return r.planes[feature][frame], nil
}

// SetPlane replaces one (feature, frame) plane with the given data
func (r *Raster) SetPlane(feature, frame int, data []uint32) error {
	plane, err := r.Plane(feature, frame)
	if err != nil {
		return err
	}
	if len(data) != len(plane) {
		return errors.WrapInvalid(
			fmt.Errorf("plane size %d, want %d", len(data), len(plane)),
			"Raster", "SetPlane", "size check")
	}
	copy(plane, data)
	return nil
}

// ZeroValue clears every pixel holding value in one (feature, frame) plane
func (r *Raster) ZeroValue(feature, frame int, value uint32) {
	plane, err := r.Plane(feature, frame)
	if err != nil {
		return
	}
	for i, v := range plane {
		if v == value {
			plane[i] = 0
		}
	}
}

// HasValue reports whether value appears in one (feature, frame) plane
func (r *Raster) HasValue(feature, frame int, value uint32) bool {
	plane, err := r.Plane(feature, frame)
	if err != nil {
		return false
	}
	return slices.Contains(plane, value)
}

// Clone returns an independent deep copy
func (r *Raster) Clone() *Raster {
	out := NewRaster(r.Features, r.Frames, r.Width, r.Height)
	for f := range r.planes {
		for t := range r.planes[f] {
			copy(out.planes[f][t], r.planes[f][t])
		}
	}
	return out
}

// CellMapping resolves one raw pixel value to one logical cell within one
// (feature, frame). A value may map to several cells (overlap) and a cell
// may span several values, frames and features.
type CellMapping struct {
	Cell    uint32 `json:"cell"`
	Value   uint32 `json:"value"`
	Feature int    `json:"feature"`
	Frame   int    `json:"frame"`
}

// CellRegistry is the set of value-to-cell mappings. It is kept mutually
// consistent with the raster by the cells machine: edits update both
// atomically or neither.
type CellRegistry struct {
	mappings []CellMapping
}

// NewCellRegistry creates a registry with the given initial mappings
func NewCellRegistry(mappings ...CellMapping) *CellRegistry {
	return &CellRegistry{mappings: slices.Clone(mappings)}
}

// Mappings returns a copy of all mappings
func (cr *CellRegistry) Mappings() []CellMapping {
	return slices.Clone(cr.mappings)
}

// Add records a mapping; exact duplicates are ignored
func (cr *CellRegistry) Add(m CellMapping) {
	if slices.Contains(cr.mappings, m) {
		return
	}
	cr.mappings = append(cr.mappings, m)
}

// RemoveMapping drops one exact mapping if present
func (cr *CellRegistry) RemoveMapping(m CellMapping) {
	cr.mappings = slices.DeleteFunc(cr.mappings, func(have CellMapping) bool {
		return have == m
	})
}

// CellsAt resolves a value to its cells within one (feature, frame)
func (cr *CellRegistry) CellsAt(feature, frame int, value uint32) []uint32 {
	var out []uint32
	for _, m := range cr.mappings {
		if m.Feature == feature && m.Frame == frame && m.Value == value {
			out = append(out, m.Cell)
		}
	}
	return out
}

// MappingsFor returns every mapping of one cell
func (cr *CellRegistry) MappingsFor(cell uint32) []CellMapping {
	var out []CellMapping
	for _, m := range cr.mappings {
		if m.Cell == cell {
			out = append(out, m)
		}
	}
	return out
}

// HasCell reports whether the cell appears in the registry
func (cr *CellRegistry) HasCell(cell uint32) bool {
	return len(cr.MappingsFor(cell)) > 0
}

// MaxCell returns the highest cell id in use, or zero when empty
func (cr *CellRegistry) MaxCell() uint32 {
	var highest uint32
	for _, m := range cr.mappings {
		if m.Cell > highest {
			highest = m.Cell
		}
	}
	return highest
}

// RemoveCell drops every mapping of one cell
func (cr *CellRegistry) RemoveCell(cell uint32) {
	cr.mappings = slices.DeleteFunc(cr.mappings, func(m CellMapping) bool {
		return m.Cell == cell
	})
}

// SwapCells exchanges two cell ids everywhere they appear
func (cr *CellRegistry) SwapCells(a, b uint32) {
	for i, m := range cr.mappings {
		switch m.Cell {
		case a:
			cr.mappings[i].Cell = b
		case b:
			cr.mappings[i].Cell = a
		}
	}
}

// ReplaceCell relabels every mapping of b as a, deduplicating
func (cr *CellRegistry) ReplaceCell(a, b uint32) {
	for i, m := range cr.mappings {
		if m.Cell == b {
			cr.mappings[i].Cell = a
		}
	}
	seen := make(map[CellMapping]struct{}, len(cr.mappings))
	cr.mappings = slices.DeleteFunc(cr.mappings, func(m CellMapping) bool {
		if _, dup := seen[m]; dup {
			return true
		}
		seen[m] = struct{}{}
		return false
	})
}

// Clone returns an independent deep copy
func (cr *CellRegistry) Clone() *CellRegistry {
	return &CellRegistry{mappings: slices.Clone(cr.mappings)}
}

// CheckConsistency verifies the raster/registry invariant: every nonzero
// value present in any plane resolves to at least one cell.
func CheckConsistency(raster *Raster, registry *CellRegistry) error {
	for f := 0; f < raster.Features; f++ {
		for t := 0; t < raster.Frames; t++ {
			plane, err := raster.Plane(f, t)
			if err != nil {
				return err
			}
			checked := make(map[uint32]struct{})
			for _, v := range plane {
				if v == 0 {
					continue
				}
				if _, done := checked[v]; done {
					continue
				}
				checked[v] = struct{}{}
				if len(registry.CellsAt(f, t, v)) == 0 {
					return errors.WrapFatal(
						fmt.Errorf("%w: value %d at feature %d frame %d", errors.ErrUnknownValue, v, f, t),
						"CellRegistry", "CheckConsistency", "raster resolution")
				}
			}
		}
	}
	return nil
}

// Division records one parent cell splitting into daughters at a frame.
// The division is valid for frames at or after Frame.
type Division struct {
	Parent    uint32   `json:"parent"`
	Daughters []uint32 `json:"daughters"`
	Frame     int      `json:"frame"`
}

// DivisionGraph is the parent/daughter lineage, keyed by parent cell
type DivisionGraph struct {
	divisions []Division
}

// NewDivisionGraph creates a graph with the given initial divisions
func NewDivisionGraph(divisions ...Division) *DivisionGraph {
	g := &DivisionGraph{}
	for _, d := range divisions {
		g.divisions = append(g.divisions, Division{
			Parent:    d.Parent,
			Daughters: slices.Clone(d.Daughters),
			Frame:     d.Frame,
		})
	}
	return g
}

// Divisions returns a deep copy of all divisions
func (g *DivisionGraph) Divisions() []Division {
	out := make([]Division, len(g.divisions))
	for i, d := range g.divisions {
		out[i] = Division{Parent: d.Parent, Daughters: slices.Clone(d.Daughters), Frame: d.Frame}
	}
	return out
}

// ParentOf returns the division whose daughters include cell, if any
func (g *DivisionGraph) ParentOf(cell uint32) (Division, bool) {
	for _, d := range g.divisions {
		if slices.Contains(d.Daughters, cell) {
			return d, true
		}
	}
	return Division{}, false
}

// DivisionFor returns the division parented by cell, if any
func (g *DivisionGraph) DivisionFor(parent uint32) (Division, bool) {
	for _, d := range g.divisions {
		if d.Parent == parent {
			return d, true
		}
	}
	return Division{}, false
}

// AddDaughter links daughter under parent at the given frame, creating the
// division if the parent has none yet.
func (g *DivisionGraph) AddDaughter(parent, daughter uint32, frame int) {
	for i, d := range g.divisions {
		if d.Parent == parent {
			if !slices.Contains(d.Daughters, daughter) {
				g.divisions[i].Daughters = append(g.divisions[i].Daughters, daughter)
			}
			return
		}
	}
	g.divisions = append(g.divisions, Division{Parent: parent, Daughters: []uint32{daughter}, Frame: frame})
}

// RemoveDaughter unlinks daughter from its division; a division left with
// no daughters is dropped.
func (g *DivisionGraph) RemoveDaughter(daughter uint32) {
	for i := range g.divisions {
		g.divisions[i].Daughters = slices.DeleteFunc(g.divisions[i].Daughters, func(c uint32) bool {
			return c == daughter
		})
	}
	g.prune()
}

// RemoveCell strips cell from the graph entirely, as parent or daughter.
// Called when a cell is deleted so the lineage never references it.
func (g *DivisionGraph) RemoveCell(cell uint32) {
	g.divisions = slices.DeleteFunc(g.divisions, func(d Division) bool {
		return d.Parent == cell
	})
	for i := range g.divisions {
		g.divisions[i].Daughters = slices.DeleteFunc(g.divisions[i].Daughters, func(c uint32) bool {
			return c == cell
		})
	}
	g.prune()
}

// References reports whether the graph mentions cell at all
func (g *DivisionGraph) References(cell uint32) bool {
	for _, d := range g.divisions {
		if d.Parent == cell || slices.Contains(d.Daughters, cell) {
			return true
		}
	}
	return false
}

func (g *DivisionGraph) prune() {
	g.divisions = slices.DeleteFunc(g.divisions, func(d Division) bool {
		return len(d.Daughters) == 0
	})
}

// Clone returns an independent deep copy
func (g *DivisionGraph) Clone() *DivisionGraph {
	return NewDivisionGraph(g.divisions...)
}
