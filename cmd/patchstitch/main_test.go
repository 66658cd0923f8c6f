package main

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/google/go-cmp/cmp"

	"patchstitch/pkg/config"
	"patchstitch/pkg/fsutil"
)

func TestRunFlagsApply(t *testing.T) {
	cfg := config.DefaultConfig()
	seed := int64(3)
	cfg.Reconstruction.Seed = &seed

	(&RunFlags{}).apply(cfg)
	if cfg.Reconstruction.Seed == nil || *cfg.Reconstruction.Seed != 3 {
		t.Error("Zero-valued flags must keep config values")
	}

	flags := &RunFlags{
		PatchDir:   "/in",
		OutputDir:  "/out",
		Format:     "png",
		Shuffle:    true,
		Seed:       seedFlag(9),
		Workers:    2,
		ShowSample: true,
	}
	flags.apply(cfg)

	if cfg.Input.PatchDir != "/in" || cfg.Output.Dir != "/out" || cfg.Output.Format != "png" {
		t.Errorf("Paths and format not applied: %+v %+v", cfg.Input, cfg.Output)
	}
	if !cfg.Reconstruction.RandomShufflePatches || *cfg.Reconstruction.Seed != 9 {
		t.Errorf("Shuffle flags not applied: %+v", cfg.Reconstruction)
	}
	if cfg.Processing.Workers != 2 || !cfg.Debug.ShowSample {
		t.Error("Workers or show_sample not applied")
	}
}

func seedFlag(v int64) *int64 {
	return &v
}

func TestRunFlagsSeedZero(t *testing.T) {
	cfg := config.DefaultConfig()
	seed := int64(42)
	cfg.Reconstruction.Seed = &seed

	(&RunFlags{Seed: seedFlag(0)}).apply(cfg)
	if cfg.Reconstruction.Seed == nil || *cfg.Reconstruction.Seed != 0 {
		t.Errorf("Expected --seed 0 to select seed 0, got %v", cfg.Reconstruction.Seed)
	}
}

func TestSeedFlagParsing(t *testing.T) {
	testCases := []struct {
		args     []string
		expected *int64
	}{
		{[]string{"stitch"}, nil},
		{[]string{"stitch", "--seed", "0"}, seedFlag(0)},
		{[]string{"stitch", "--seed", "17"}, seedFlag(17)},
	}

	for _, tc := range testCases {
		var c cli
		parser, err := kong.New(&c, kong.Name("patchstitch"))
		if err != nil {
			t.Fatalf("Failed to build parser: %v", err)
		}
		if _, err := parser.Parse(tc.args); err != nil {
			t.Fatalf("Parse(%v) failed: %v", tc.args, err)
		}
		if diff := cmp.Diff(tc.expected, c.Stitch.Seed); diff != "" {
			t.Errorf("Parse(%v) seed mismatch (-want +got):\n%s", tc.args, diff)
		}
	}
}

func TestInitConfigCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patchstitch.yaml")
	cmd := &InitConfigCmd{Path: path}

	if err := cmd.Run(&Globals{}); err != nil {
		t.Fatalf("init-config failed: %v", err)
	}
	if _, err := config.LoadConfig(path); err != nil {
		t.Fatalf("Written config does not load: %v", err)
	}

	if err := cmd.Run(&Globals{}); err == nil {
		t.Error("Expected refusal to overwrite without --force")
	}
	cmd.Force = true
	if err := cmd.Run(&Globals{}); err != nil {
		t.Errorf("Expected overwrite with --force, got %v", err)
	}
}

func writeSolidPatches(t *testing.T, dir string, count int) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < count; i++ {
		img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				img.SetNRGBA(x, y, color.NRGBA{R: uint8(i * 40), A: 255})
			}
		}
		f, err := os.Create(filepath.Join(dir, string(rune('a'+i))+".png"))
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, img); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}
}

func TestStitchCmd(t *testing.T) {
	root := t.TempDir()
	patchDir := filepath.Join(root, "patches")
	outDir := filepath.Join(root, "out")
	writeSolidPatches(t, filepath.Join(patchDir, "good"), 9)
	writeSolidPatches(t, filepath.Join(patchDir, "short"), 8)

	g := &Globals{Config: filepath.Join(root, "absent.yaml"), LogLevel: "error"}
	cmd := &StitchCmd{RunFlags: RunFlags{PatchDir: patchDir, OutputDir: outDir, Format: "png"}}

	err := cmd.Run(g)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 samples failed") {
		t.Fatalf("Expected one failed sample, got %v", err)
	}
	if !fsutil.Exists(filepath.Join(outDir, "good.png")) {
		t.Error("Expected output for the good sample")
	}
	if fsutil.Exists(filepath.Join(outDir, "short.png")) {
		t.Error("Failed sample must not produce output")
	}
	if !fsutil.Exists(filepath.Join(outDir, "report.yaml")) {
		t.Error("Expected a run report")
	}
}

func TestBatchCmdMissingPatchDir(t *testing.T) {
	root := t.TempDir()
	g := &Globals{Config: filepath.Join(root, "absent.yaml"), LogLevel: "error"}
	cmd := &BatchCmd{RunFlags: RunFlags{PatchDir: filepath.Join(root, "nope"), OutputDir: root}}

	if err := cmd.Run(g); err == nil {
		t.Error("Expected a fatal error for a missing patch dir")
	}
}

func TestSetupRejectsInvalidConfig(t *testing.T) {
	g := &Globals{Config: filepath.Join(t.TempDir(), "absent.yaml")}
	_, _, err := setup(g, func(cfg *config.Config) { cfg.Output.Format = "exr" })
	if err == nil {
		t.Error("Expected invalid configuration error")
	}
}
