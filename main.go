package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/chazu/citybuilder/pkg/config"
	"github.com/chazu/citybuilder/pkg/line"
	"github.com/chazu/citybuilder/pkg/topology"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

func main() {
	configPath := flag.String("config", "", "YAML settings file")
	presetsPath := flag.String("presets", "", "preset source file to load")
	demo := flag.Bool("demo", false, "build a demo street block")
	out := flag.String("out", "", "write line meshes as JSON to this file")
	flag.Parse()

	if err := run(*configPath, *presetsPath, *demo, *out); err != nil {
		log.Fatal(err)
	}
}

// appFromConfig builds an App from the settings file at path, or from the
// defaults and environment when path is empty.
func appFromConfig(path string) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return NewApp(cfg), nil
}

func run(configPath, presetsPath string, demo bool, out string) error {
	app, err := appFromConfig(configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()
	if err := app.OpenStore(ctx); err != nil {
		return err
	}

	if presetsPath != "" {
		source, err := os.ReadFile(presetsPath)
		if err != nil {
			return fmt.Errorf("reading presets: %w", err)
		}
		res := app.LoadPresets(string(source))
		for _, w := range res.Warnings {
			log.Printf("%s: warning: %s", presetsPath, w.Message)
		}
		if len(res.Errors) > 0 {
			for _, e := range res.Errors {
				log.Printf("%s:%d: %s", presetsPath, e.Line, e.Message)
			}
			return fmt.Errorf("%s: %d errors", presetsPath, len(res.Errors))
		}
		for kind, names := range res.Presets {
			fmt.Printf("loaded %d %s presets: %v\n", len(names), kind, names)
		}
		if err := app.SavePresets(ctx); err != nil {
			return err
		}
	}

	if demo {
		if err := buildDemo(app); err != nil {
			return err
		}
	}

	n := app.Tick()
	s := app.Stats()
	fmt.Printf("lines: %d, regenerated: %d, meshes: %d, vertices: %d, triangles: %d\n",
		len(app.Lines()), n, s.Meshes, s.Vertices, s.Triangles)

	for _, l := range app.Lines() {
		for _, e := range line.Validate(l) {
			log.Printf("line %s: %s", l.Name(), e)
		}
	}

	if out != "" {
		data, err := json.MarshalIndent(app.MeshData(), "", "  ")
		if err != nil {
			return fmt.Errorf("encoding meshes: %w", err)
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("writing meshes: %w", err)
		}
	}
	return nil
}

// buildDemo lays out one closed block and one open street in front of it.
func buildDemo(app *App) error {
	block := topology.NewChain([]v3.Vec{
		{X: 0, Y: 0, Z: 0},
		{X: 60, Y: 0, Z: 0},
		{X: 60, Y: 0, Z: 40},
		{X: 0, Y: 0, Z: 40},
	}, true)
	closed := app.NewLine()
	if closed.AddLinkPoint(block[0], block[1], v3.Vec{X: 30}) == nil {
		return fmt.Errorf("demo: cannot place the first point")
	}
	if res, _ := app.AutoClose(closed, true); res != line.AutoCloseOK {
		return fmt.Errorf("demo: auto close failed with %d", res)
	}

	street := app.NewLine()
	for _, x := range []float64{0, 15, 30, 45, 60} {
		street.AddPoint(v3.Vec{X: x, Z: -20})
	}
	return nil
}
