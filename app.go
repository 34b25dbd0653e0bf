package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	"github.com/chazu/citybuilder/pkg/config"
	"github.com/chazu/citybuilder/pkg/engine"
	"github.com/chazu/citybuilder/pkg/kernel"
	"github.com/chazu/citybuilder/pkg/kernel/sdfx"
	"github.com/chazu/citybuilder/pkg/line"
	"github.com/chazu/citybuilder/pkg/preset"
	"github.com/chazu/citybuilder/pkg/random"
	"github.com/chazu/citybuilder/pkg/tessellate"
	"github.com/chazu/citybuilder/pkg/topology"
)

// colorPalette is a default palette used to assign distinct colors to lines.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App owns the building lines of a city and the presets they are made from.
// Tick is meant to be called once per frame from a single goroutine.
type App struct {
	cfg      *config.Config
	engine   *engine.Engine
	presets  *preset.Library
	store    *preset.Store
	builders kernel.Builders
	ground   topology.Ground
	rng      *rand.Rand
	lines    []*line.Line
	logger   *log.Logger
}

// MeshData is the JSON-serializable form of a line mesh.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	UVs      []float32 `json:"uvs"`
	Indices  []uint32  `json:"indices"`
	LineName string    `json:"lineName"`
	Texture  string    `json:"texture"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable preset evaluation message.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// LoadResult reports what a preset source contributed.
type LoadResult struct {
	Presets  map[string][]string `json:"presets"`
	Errors   []EvalErrorData     `json:"errors"`
	Warnings []EvalErrorData     `json:"warnings"`
}

// NewApp creates an App with wall facades, sdfx roofs and flat ground.
// A nil cfg uses config.Default().
func NewApp(cfg *config.Config) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	eng := engine.NewEngine()
	eng.Timeout = cfg.EvalTimeout
	return &App{
		cfg:     cfg,
		engine:  eng,
		presets: preset.NewLibrary(),
		builders: kernel.Builders{
			Facade: kernel.NewWallBuilder(),
			Roof:   sdfx.New(cfg.MeshCells),
		},
		ground: topology.FlatGround{},
		rng:    random.New(cfg.Seed),
		logger: log.Default(),
	}
}

// SetLogger routes geometry failures of current and future lines to lg.
func (a *App) SetLogger(lg *log.Logger) {
	a.logger = lg
	for _, l := range a.lines {
		l.Logger = lg
	}
}

// Presets returns the live preset library.
func (a *App) Presets() *preset.Library { return a.presets }

// SetGround replaces the surface free points snap to.
func (a *App) SetGround(g topology.Ground) {
	a.ground = g
	for _, l := range a.lines {
		l.Ground = g
	}
}

// OpenStore opens the configured preset database and merges its presets
// into the library. Without a configured path it does nothing.
func (a *App) OpenStore(ctx context.Context) error {
	if a.cfg.PresetDB == "" {
		return nil
	}
	st, err := preset.Open(a.cfg.PresetDB)
	if err != nil {
		return err
	}
	if err := st.Init(ctx); err != nil {
		st.Close()
		return err
	}
	lib, err := st.Load(ctx)
	if err != nil {
		st.Close()
		return err
	}
	a.presets.Merge(lib)
	a.store = st
	return nil
}

// SavePresets writes the library to the store, if one is open.
func (a *App) SavePresets(ctx context.Context) error {
	if a.store == nil {
		return nil
	}
	if err := a.store.Save(ctx, a.presets); err != nil {
		return fmt.Errorf("saving presets: %w", err)
	}
	return nil
}

// Close releases the preset store.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// LoadPresets evaluates preset source and merges what it defines into the
// library. On any error the library is left unchanged.
func (a *App) LoadPresets(source string) LoadResult {
	result := LoadResult{
		Presets:  map[string][]string{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	res, err := a.engine.EvaluateFull(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		log.Printf("LoadPresets fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{
			Line:    w.Line,
			Col:     w.Col,
			Message: w.Message,
		})
	}
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	a.presets.Merge(res.Library)
	for _, kind := range res.Library.Kinds() {
		if names := res.Library.Names(kind)[1:]; len(names) > 0 {
			result.Presets[kind] = names
		}
	}
	return result
}

// NewLine adds an empty line configured by the default line and building
// presets.
func (a *App) NewLine() *line.Line {
	l := line.New(a.presets.Default(preset.KindLine), a.presets.Default(preset.KindBuilding), a.builders)
	l.Ground = a.ground
	l.Logger = a.logger
	a.lines = append(a.lines, l)
	return l
}

// NewLineFrom adds an empty line using the named presets. An empty or
// unknown name falls back to the default.
func (a *App) NewLineFrom(lineName, buildingName string) *line.Line {
	l := a.NewLine()
	if st := a.presets.CloneByName(preset.KindLine, lineName); st != nil {
		l.SetState(st)
	}
	if st := a.presets.CloneByName(preset.KindBuilding, buildingName); st != nil {
		l.BuildingTemplate = st
	}
	return l
}

// Lines returns the live lines.
func (a *App) Lines() []*line.Line {
	res := make([]*line.Line, len(a.lines))
	copy(res, a.lines)
	return res
}

// AutoClose closes l around its block, optionally subdividing it with the
// configured spacing and dressing the new buildings with random presets.
func (a *App) AutoClose(l *line.Line, subdivide bool) (line.AutoCloseResult, []*topology.TerrainAnchor) {
	return l.AutoClose(line.AutoCloseOptions{
		Subdivide: subdivide,
		MinLength: a.cfg.SubdivideMin,
		MaxLength: a.cfg.SubdivideMax,
		Presets:   a.presets.Presets(preset.KindBuilding),
		Rand:      a.rng,
	})
}

// Tick runs one update pass over every line and forgets deleted lines. It
// returns the number of meshes regenerated.
func (a *App) Tick() int {
	total := 0
	live := a.lines[:0]
	for _, l := range a.lines {
		if l.Deleted() {
			continue
		}
		total += l.Update()
		live = append(live, l)
	}
	clear(a.lines[len(live):])
	a.lines = live
	return total
}

// Meshes returns the merged mesh of every line that has geometry.
func (a *App) Meshes() []*kernel.Mesh {
	var res []*kernel.Mesh
	for _, l := range a.lines {
		if m := l.Mesh(); !m.IsEmpty() {
			res = append(res, m)
		}
	}
	return res
}

// MeshData converts the line meshes to their JSON form.
func (a *App) MeshData() []MeshData {
	res := []MeshData{}
	for i, m := range a.Meshes() {
		res = append(res, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			UVs:      m.UVs,
			Indices:  m.Indices,
			LineName: m.Name,
			Texture:  m.Texture,
			Color:    colorPalette[i%len(colorPalette)],
		})
	}
	return res
}

// Stats totals the current line meshes.
func (a *App) Stats() tessellate.Stats {
	return tessellate.Count(a.Meshes()...)
}
