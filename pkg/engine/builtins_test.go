package engine

import (
	"strings"
	"testing"

	"github.com/chazu/citybuilder/pkg/building"
	"github.com/chazu/citybuilder/pkg/kernel"
	"github.com/chazu/citybuilder/pkg/line"
	"github.com/chazu/citybuilder/pkg/preset"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(props :height 12)`,
			expect: `(props "__kw_height" 12)`,
		},
		{
			name:   "multiple keywords",
			input:  `(props :height 12 :depth 8)`,
			expect: `(props "__kw_height" 12 "__kw_depth" 8)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "escaped quote in string",
			input:  `"a \" :b" :c`,
			expect: `"a \" :b" "__kw_c"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(corner-tower :u-mult 2)`,
			expect: `(corner_tower "__kw_u-mult" 2)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func TestStateKey(t *testing.T) {
	tests := map[string]string{
		"height":           "height",
		"fix-acute-angles": "fixAcuteAngles",
		"front_state":      "frontState",
		"uMult":            "uMult",
		"roof-tex":         "roofTex",
	}
	for in, want := range tests {
		if got := stateKey(in); got != want {
			t.Errorf("stateKey(%q) = %q, want %q", in, got, want)
		}
	}
}

// ---------------------------------------------------------------------------
// Presets
// ---------------------------------------------------------------------------

func evalOK(t *testing.T, source string) *EvalResult {
	t.Helper()
	res, err := NewEngine().EvaluateFull(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(res.Errors) > 0 {
		t.Fatalf("eval errors: %v", res.Errors)
	}
	return res
}

func TestDefPreset(t *testing.T) {
	res := evalOK(t, `
(defpreset :building "tower"
  (props :height 40 :depth 12 :fix-acute-angles true
         :front-state (props :texture "glass" :u-mult 2)))
`)
	st := res.Library.CloneByName(preset.KindBuilding, "tower")
	if st == nil {
		t.Fatal("expected preset named 'tower'")
	}
	if h := st.Float(building.KeyHeight, 0); h != 40 {
		t.Errorf("height = %v, want 40", h)
	}
	if d := st.Float(building.KeyDepth, 0); d != 12 {
		t.Errorf("depth = %v, want 12", d)
	}
	if !st.Bool(building.KeyFixAcuteAngles, false) {
		t.Error("fixAcuteAngles not set")
	}
	fs := st.Child(building.SideStateKey(kernel.SideFront))
	if fs == nil {
		t.Fatal("frontState missing")
	}
	if fs.Str("texture", "") != "glass" || fs.Float("uMult", 0) != 2 {
		t.Errorf("frontState = texture %q uMult %v", fs.Str("texture", ""), fs.Float("uMult", 0))
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
}

func TestVariableReference(t *testing.T) {
	res := evalOK(t, `
(def h 25)
(defpreset :building "mid" (props :height (* h 2)))
`)
	if got := res.Library.CloneByName(preset.KindBuilding, "mid").Float(building.KeyHeight, 0); got != 50 {
		t.Errorf("height = %v, want 50", got)
	}
}

func TestExtendAndPresetLookup(t *testing.T) {
	res := evalOK(t, `
(defpreset :building "base" (props :height 10 :depth 6))
(defpreset :building "tall" (extend (preset :building "base") :height 30))
`)
	tall := res.Library.CloneByName(preset.KindBuilding, "tall")
	if tall.Float(building.KeyHeight, 0) != 30 || tall.Float(building.KeyDepth, 0) != 6 {
		t.Errorf("tall = height %v depth %v", tall.Float(building.KeyHeight, 0), tall.Float(building.KeyDepth, 0))
	}
	base := res.Library.CloneByName(preset.KindBuilding, "base")
	if base.Float(building.KeyHeight, 0) != 10 {
		t.Error("extend modified its base")
	}
}

func TestPresetLookupError(t *testing.T) {
	lib, evalErrs, err := NewEngine().Evaluate(`(preset :building "missing")`)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if lib != nil {
		t.Error("expected nil library")
	}
	if len(evalErrs) == 0 || !strings.Contains(evalErrs[0].Message, "missing") {
		t.Errorf("expected error naming the preset, got %v", evalErrs)
	}
}

func TestDefDefault(t *testing.T) {
	res := evalOK(t, `(defdefault :buildingLine "street" (props :height 14 :front-only true))`)
	def := res.Library.Default(preset.KindLine)
	if def.Name() != "street" || def.Float(line.KeyHeight, 0) != 14 || !def.Bool(line.KeyFrontOnly, false) {
		t.Errorf("default line = %q height %v", def.Name(), def.Float(line.KeyHeight, 0))
	}
}

func TestArrays(t *testing.T) {
	res := evalOK(t, `
(defpreset :prop "lamp"
  (props :offsets [(vec3 0 0 0) (vec3 1 2 3)]
         :widths [1 2.5]
         :tags ["a" "b"]
         :flags [true false]
         :parts [(props :kind "pole") (props :kind "bulb")]))
`)
	st := res.Library.CloneByName("prop", "lamp")
	if got := st.Vectors("offsets", nil); len(got) != 2 || got[1] != (v3.Vec{X: 1, Y: 2, Z: 3}) {
		t.Errorf("offsets = %v", got)
	}
	if got := st.Floats("widths", nil); len(got) != 2 || got[1] != 2.5 {
		t.Errorf("widths = %v", got)
	}
	if got := st.Strs("tags", nil); len(got) != 2 || got[0] != "a" {
		t.Errorf("tags = %v", got)
	}
	if got := st.Bools("flags", nil); len(got) != 2 || !got[0] {
		t.Errorf("flags = %v", got)
	}
	if got := st.Children("parts"); len(got) != 2 || got[1].Str("kind", "") != "bulb" {
		t.Errorf("parts = %v", got)
	}
}

func TestMixedArrayIsAnError(t *testing.T) {
	_, evalErrs, err := NewEngine().Evaluate(`(props :bad [1 "two"])`)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected an eval error for a mixed array")
	}
}

func TestVec3(t *testing.T) {
	res := evalOK(t, `(defpreset :prop "p" (props :at (vec3 1 2.5 -3)))`)
	if got := res.Library.CloneByName("prop", "p").Vector("at", v3.Vec{}); got != (v3.Vec{X: 1, Y: 2.5, Z: -3}) {
		t.Errorf("at = %v", got)
	}

	_, evalErrs, err := NewEngine().Evaluate(`(vec3 1 2)`)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) == 0 {
		t.Error("expected an eval error for vec3 with two arguments")
	}
}

func TestWarnings(t *testing.T) {
	res := evalOK(t, `
(defpreset :building "tower" (props :heigth 40))
(defpreset :building "Tower" (props :height 40))
`)
	var unknown, redefined bool
	for _, w := range res.Warnings {
		if strings.Contains(w.Message, `"heigth"`) {
			unknown = true
		}
		if strings.Contains(w.Message, "redefined") {
			redefined = true
		}
	}
	if !unknown {
		t.Error("misspelt key not reported")
	}
	if !redefined {
		t.Error("redefinition not reported")
	}
	if n := res.Library.Len(preset.KindBuilding); n != 2 {
		t.Errorf("got %d building presets, want default + tower", n)
	}
}

func TestDefPresetNeedsProps(t *testing.T) {
	for _, src := range []string{
		`(defpreset :building "x")`,
		`(defpreset :building "x" 12)`,
		`(defpreset :building "" (props))`,
	} {
		_, evalErrs, err := NewEngine().Evaluate(src)
		if err != nil {
			t.Fatalf("%s: fatal error: %v", src, err)
		}
		if len(evalErrs) == 0 {
			t.Errorf("%s: expected an eval error", src)
		}
	}
}
