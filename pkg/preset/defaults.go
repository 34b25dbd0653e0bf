package preset

import (
	"github.com/chazu/citybuilder/pkg/building"
	"github.com/chazu/citybuilder/pkg/kernel"
	"github.com/chazu/citybuilder/pkg/line"
	"github.com/chazu/citybuilder/pkg/state"
)

// DefaultName is the name of the built-in presets.
const DefaultName = "default"

// DefaultSide is the state of a plain facade.
func DefaultSide() *state.Node {
	st := state.New()
	st.SetStr("texture", "")
	st.SetFloat("uMult", 1)
	st.SetFloat("vMult", 1)
	st.FlagUnchanged()
	return st
}

// DefaultBuilding is a box building with every side and a roof.
func DefaultBuilding() *state.Node {
	st := state.New()
	st.SetName(DefaultName)
	st.SetBool(building.KeyFront, true)
	st.SetBool(building.KeyLeft, true)
	st.SetBool(building.KeyRight, true)
	st.SetBool(building.KeyBack, true)
	st.SetBool(building.KeyTop, true)
	st.SetFloat(building.KeyHeight, building.DefaultHeight)
	st.SetFloat(building.KeyDepth, building.DefaultDepth)
	st.SetBool(building.KeyFixAcuteAngles, false)
	st.SetBool(building.KeyAllSidesEqual, false)
	st.SetStr(building.KeyTopTexture, "")
	st.SetFloat(building.KeyTopUMult, 1)
	st.SetFloat(building.KeyTopVMult, 1)
	for _, s := range kernel.Sides {
		st.SetChild(building.SideStateKey(s), DefaultSide())
	}
	st.FlagUnchanged()
	return st
}

// DefaultLine is an open line building full buildings.
func DefaultLine() *state.Node {
	st := state.New()
	st.SetName(DefaultName)
	st.SetBool(line.KeyLoop, false)
	st.SetBool(line.KeyInvertDirection, false)
	st.SetBool(line.KeyFrontOnly, false)
	st.SetBool(line.KeyProjectToGround, false)
	st.SetFloat(line.KeyHeight, line.DefaultHeight)
	st.SetStr(line.KeyRoofTexture, "")
	st.SetFloat(line.KeyRoofUMult, 1)
	st.SetFloat(line.KeyRoofVMult, 1)
	st.FlagUnchanged()
	return st
}
