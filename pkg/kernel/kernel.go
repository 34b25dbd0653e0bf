// Package kernel defines the mesh builders a building delegates
// triangulation to. Implementations (the quad-strip WallBuilder here, the
// sdfx roof slab in kernel/sdfx) produce flat-array meshes behind these
// interfaces, so backends can be swapped without touching the building
// pipeline.
package kernel

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Side identifies one facade of a building.
type Side int

const (
	SideFront Side = iota
	SideLeft
	SideRight
	SideBack
)

func (s Side) String() string {
	switch s {
	case SideFront:
		return "front"
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	case SideBack:
		return "back"
	default:
		return "unknown"
	}
}

// Sides lists every side in update order.
var Sides = [...]Side{SideFront, SideLeft, SideRight, SideBack}

// FacadeRequest is everything a facade builder needs for one side.
type FacadeRequest struct {
	Name string // owning building, for diagnostics
	Side Side

	// Spline is the ground line of the facade, in building order.
	Spline []v3.Vec

	// Height is the absolute top of the facade. MaxHeight is the highest
	// ground point under the building and TrueHeight = Height - MaxHeight.
	Height     float64
	TrueHeight float64
	MaxHeight  float64

	Texture string
	UMult   float64
	VMult   float64
}

// RoofRequest describes a flat roof.
type RoofRequest struct {
	Name string

	// Outline is the closed roof polygon; every point sits at Height.
	Outline []v3.Vec
	Height  float64

	Texture string
	UMult   float64
	VMult   float64
}

// FacadeBuilder triangulates one building side.
type FacadeBuilder interface {
	BuildFacade(req FacadeRequest) (*Mesh, error)
}

// RoofBuilder triangulates a roof.
type RoofBuilder interface {
	BuildRoof(req RoofRequest) (*Mesh, error)
}

// Builders bundles the builders a line hands to its buildings. A nil
// member disables that kind of output.
type Builders struct {
	Facade FacadeBuilder
	Roof   RoofBuilder
}
