package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/beetlebugorg/geoproc/internal/metrics"
	"github.com/beetlebugorg/geoproc/pkg/geoproc"
)

// writeFile creates path below dir with the given content.
func writeFile(t *testing.T, dir, path, content string) string {
	t.Helper()
	full := filepath.Join(dir, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return full
}

func featureCollection(features ...string) string {
	out := `{"type":"FeatureCollection","features":[`
	for i, f := range features {
		if i > 0 {
			out += ","
		}
		out += f
	}
	return out + `]}`
}

func pointFeature(x, y float64) string {
	return `{"type":"Feature","properties":{"kind":"station"},"geometry":{"type":"Point","coordinates":[` +
		strconv.FormatFloat(x, 'g', -1, 64) + `,` + strconv.FormatFloat(y, 'g', -1, 64) + `]}}`
}

func lineFeature(name string, coords string) string {
	return `{"type":"Feature","properties":{"name":"` + name + `"},"geometry":{"type":"LineString","coordinates":` + coords + `}}`
}

func TestListLayers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.geojson", "{}")
	writeFile(t, dir, "a.JSON", "{}")
	writeFile(t, dir, "sub/c.geojson", "{}")
	writeFile(t, dir, "notes.txt", "")
	writeFile(t, dir, ".hidden.geojson", "{}")
	writeFile(t, dir, ".cache/d.geojson", "{}")

	paths, err := ListLayers(dir, nil)
	if err != nil {
		t.Fatalf("ListLayers: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.JSON"),
		filepath.Join(dir, "b.geojson"),
		filepath.Join(dir, "sub", "c.geojson"),
	}
	if len(paths) != len(want) {
		t.Fatalf("Expected %v, got %v", want, paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("Path %d: expected %s, got %s", i, want[i], paths[i])
		}
	}

	// A single file is returned whatever its extension.
	single := filepath.Join(dir, "notes.txt")
	if paths, err := ListLayers(single, nil); err != nil || len(paths) != 1 || paths[0] != single {
		t.Errorf("Expected single file, got %v (%v)", paths, err)
	}

	if _, err := ListLayers(filepath.Join(dir, "missing"), nil); err == nil {
		t.Error("Expected error for missing root")
	}
}

func TestBufferConfigValidate(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name  string
		cfg   BufferConfig
		field string
	}{
		{"missing input", BufferConfig{OutputPath: dir, Distance: 1}, "input_path"},
		{"input not found", BufferConfig{InputPath: filepath.Join(dir, "nope"), OutputPath: dir, Distance: 1}, "input_path"},
		{"missing output", BufferConfig{InputPath: dir, Distance: 1}, "output_path"},
		{"zero distance", BufferConfig{InputPath: dir, OutputPath: dir}, "distance"},
		{"negative distance", BufferConfig{InputPath: dir, OutputPath: dir, Distance: -2}, "distance"},
		{"negative workers", BufferConfig{InputPath: dir, OutputPath: dir, Distance: 1, Workers: -1}, "workers"},
		{"valid", BufferConfig{InputPath: dir, OutputPath: dir, Distance: 0.01}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}
			var ce *geoproc.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("Expected ConfigError, got %v", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, ce.Field)
			}
		})
	}
}

func TestRunBuffer(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()

	writeFile(t, in, "wells.geojson", featureCollection(pointFeature(0, 0), pointFeature(10, 10)))
	writeFile(t, in, "sub/streams.json", featureCollection(
		lineFeature("a", `[[0,0],[10,0],[10,10]]`),
		`{"type":"Feature","properties":{"name":"empty"},"geometry":{"type":"LineString","coordinates":[]}}`,
	))
	writeFile(t, in, "broken.geojson", `{"type":"FeatureCollection","features":[`)
	writeFile(t, in, "readme.txt", "ignored")

	var progress int32
	m := metrics.New()
	report, err := RunBuffer(context.Background(), BufferConfig{
		InputPath:   in,
		OutputPath:  out,
		Distance:    1,
		SaveProject: true,
		Workers:     2,
		Progress:    func(done, total int) { atomic.AddInt32(&progress, 1) },
	}, nil, m)
	if err != nil {
		t.Fatalf("RunBuffer: %v", err)
	}

	if report.Layers != 2 {
		t.Errorf("Expected 2 buffered layers, got %d", report.Layers)
	}
	if report.Features != 3 {
		t.Errorf("Expected 3 buffered features, got %d", report.Features)
	}
	if len(report.Failures) != 1 || report.Failures[0].Path != filepath.Join(in, "broken.geojson") {
		t.Errorf("Expected broken.geojson to fail, got %v", report.Failures)
	}
	if len(report.Skips) != 1 || report.Skips[0].Layer != "streams" || report.Skips[0].Index != 1 {
		t.Errorf("Expected streams[1] skipped, got %v", report.Skips)
	}
	if report.ExitCode() != ExitLayerFailed {
		t.Errorf("Expected exit code %d, got %d", ExitLayerFailed, report.ExitCode())
	}
	if progress != 3 {
		t.Errorf("Expected 3 progress calls, got %d", progress)
	}

	wantWritten := []string{
		filepath.Join(out, "sub", "streams_buffer.geojson"),
		filepath.Join(out, "sub", "streams_buffer.project.json"),
		filepath.Join(out, "wells_buffer.geojson"),
		filepath.Join(out, "wells_buffer.project.json"),
	}
	if len(report.Written) != len(wantWritten) {
		t.Fatalf("Expected written %v, got %v", wantWritten, report.Written)
	}
	for i := range wantWritten {
		if report.Written[i] != wantWritten[i] {
			t.Errorf("Written %d: expected %s, got %s", i, wantWritten[i], report.Written[i])
		}
	}

	codec := geoproc.NewGeoJSONCodec()
	wells, err := codec.Read(filepath.Join(out, "wells_buffer.geojson"))
	if err != nil {
		t.Fatalf("Reading output: %v", err)
	}
	if wells.Len() != 2 {
		t.Fatalf("Expected 2 features, got %d", wells.Len())
	}
	for i, f := range wells.Features {
		if _, ok := f.Geometry.(orb.Polygon); !ok {
			t.Errorf("Feature %d: expected Polygon, got %T", i, f.Geometry)
		}
		if kind, _ := f.Attribute("kind").Str(); kind != "station" {
			t.Errorf("Feature %d: expected attribute kept, got %v", i, f.Attribute("kind"))
		}
	}

	manifest, err := ReadManifest(filepath.Join(out, "wells_buffer.project.json"))
	if err != nil {
		t.Fatalf("Reading manifest: %v", err)
	}
	if manifest.RunID != report.RunID {
		t.Errorf("Expected run ID %s, got %s", report.RunID, manifest.RunID)
	}
	if manifest.Layer != "wells_buffer" || manifest.Features != 2 || manifest.Distance != 1 {
		t.Errorf("Unexpected manifest %+v", manifest)
	}
	if manifest.Fingerprint != strconv.FormatUint(wells.Fingerprint(), 16) {
		t.Error("Expected manifest fingerprint to match the written layer")
	}
}

func TestRunBufferConfigError(t *testing.T) {
	report, err := RunBuffer(context.Background(), BufferConfig{InputPath: t.TempDir(), OutputPath: t.TempDir()}, nil, nil)
	if !geoproc.IsConfigError(err) {
		t.Errorf("Expected ConfigError, got %v", err)
	}
	if report != nil {
		t.Error("Expected no report on configuration error")
	}
}

func TestRunBufferCancelled(t *testing.T) {
	in := t.TempDir()
	writeFile(t, in, "a.geojson", featureCollection(pointFeature(0, 0)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := t.TempDir()
	report, err := RunBuffer(ctx, BufferConfig{InputPath: in, OutputPath: out, Distance: 1}, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if report == nil || len(report.Written) != 0 {
		t.Errorf("Expected nothing written, got %v", report)
	}
}

func TestRunSelect(t *testing.T) {
	points := t.TempDir()
	rivers := t.TempDir()

	writeFile(t, points, "on_river.geojson", featureCollection(pointFeature(0, 0)))
	writeFile(t, points, "far.geojson", featureCollection(pointFeature(5, 5)))
	writeFile(t, rivers, "main.geojson", featureCollection(
		lineFeature("first", `[[-1,0],[1,0]]`),
		lineFeature("second", `[[100,100],[200,200]]`),
		lineFeature("third", `[[0,-1],[0,1]]`),
	))
	writeFile(t, rivers, "side.geojson", featureCollection(lineFeature("x", `[[50,50],[60,60]]`)))

	t.Run("skip empty outputs", func(t *testing.T) {
		save := t.TempDir()
		var last int32
		report, err := RunSelect(context.Background(), SelectConfig{
			InputPath: points,
			RiverPath: rivers,
			SavePath:  save,
			Workers:   2,
			Progress:  func(done, total int) { atomic.StoreInt32(&last, int32(done)) },
		}, nil, metrics.New())
		if err != nil {
			t.Fatalf("RunSelect: %v", err)
		}

		if report.Layers != 4 {
			t.Errorf("Expected 4 pairings, got %d", report.Layers)
		}
		if report.Empty != 3 {
			t.Errorf("Expected 3 empty pairings, got %d", report.Empty)
		}
		if report.ExitCode() != ExitOK {
			t.Errorf("Expected exit code 0, got %d", report.ExitCode())
		}
		if last != 4 {
			t.Errorf("Expected progress to reach 4, got %d", last)
		}

		want := filepath.Join(save, "on_river_main.geojson")
		if len(report.Written) != 1 || report.Written[0] != want {
			t.Fatalf("Expected only %s written, got %v", want, report.Written)
		}

		layer, err := geoproc.NewGeoJSONCodec().Read(want)
		if err != nil {
			t.Fatalf("Reading output: %v", err)
		}
		if layer.Len() != 2 {
			t.Fatalf("Expected 2 selected features, got %d", layer.Len())
		}
		for i, name := range []string{"first", "third"} {
			if got, _ := layer.Features[i].Attribute("name").Str(); got != name {
				t.Errorf("Feature %d: expected %s, got %s", i, name, got)
			}
		}
	})

	t.Run("write empty outputs", func(t *testing.T) {
		save := t.TempDir()
		report, err := RunSelect(context.Background(), SelectConfig{
			InputPath:   points,
			RiverPath:   rivers,
			SavePath:    save,
			WriteEmpty:  true,
			CacheLayers: 1,
		}, nil, nil)
		if err != nil {
			t.Fatalf("RunSelect: %v", err)
		}
		if len(report.Written) != 4 {
			t.Errorf("Expected 4 outputs, got %v", report.Written)
		}
		empty, err := geoproc.NewGeoJSONCodec().Read(filepath.Join(save, "far_side.geojson"))
		if err != nil {
			t.Fatalf("Reading empty output: %v", err)
		}
		if empty.Len() != 0 {
			t.Errorf("Expected empty layer, got %d features", empty.Len())
		}
	})

	t.Run("search distance", func(t *testing.T) {
		report, err := RunSelect(context.Background(), SelectConfig{
			InputPath:      filepath.Join(points, "far.geojson"),
			RiverPath:      filepath.Join(rivers, "main.geojson"),
			SavePath:       t.TempDir(),
			SearchDistance: 6.5,
		}, nil, nil)
		if err != nil {
			t.Fatalf("RunSelect: %v", err)
		}
		// Both short rivers end about 6.4 units from (5,5).
		if report.Features != 2 {
			t.Errorf("Expected 2 rivers within 6.5 units, got %d features", report.Features)
		}
	})
}

func TestRunSelectFailuresAreIsolated(t *testing.T) {
	points := t.TempDir()
	rivers := t.TempDir()

	writeFile(t, points, "a.geojson", featureCollection(pointFeature(0, 0)))
	writeFile(t, points, "b.geojson", featureCollection(pointFeature(0, 0)))
	writeFile(t, points, "c.geojson", "not json")
	writeFile(t, rivers, "good.geojson", featureCollection(lineFeature("g", `[[-1,0],[1,0]]`)))
	writeFile(t, rivers, "bad.geojson", `{"type":"Nope"}`)

	save := t.TempDir()
	report, err := RunSelect(context.Background(), SelectConfig{
		InputPath: points,
		RiverPath: rivers,
		SavePath:  save,
	}, nil, nil)
	if err != nil {
		t.Fatalf("RunSelect: %v", err)
	}

	// a and b each fail against bad; c fails against both rivers.
	if len(report.Failures) != 4 {
		t.Errorf("Expected 4 failed pairings, got %d: %v", len(report.Failures), report.Failures)
	}
	if report.Layers != 2 {
		t.Errorf("Expected 2 successful pairings, got %d", report.Layers)
	}
	for _, name := range []string{"a_good.geojson", "b_good.geojson"} {
		if _, err := os.Stat(filepath.Join(save, name)); err != nil {
			t.Errorf("Expected %s written: %v", name, err)
		}
	}
	if report.ExitCode() != ExitLayerFailed {
		t.Errorf("Expected exit code %d, got %d", ExitLayerFailed, report.ExitCode())
	}
}

func TestRunSelectCRSMismatch(t *testing.T) {
	points := t.TempDir()
	rivers := t.TempDir()

	withCRS := func(name, body string) string {
		return `{"type":"FeatureCollection","crs":{"type":"name","properties":{"name":"` + name + `"}},"features":[` + body + `]}`
	}
	writeFile(t, points, "wells.geojson", withCRS("EPSG:32633", pointFeature(0, 0)))
	writeFile(t, rivers, "same.geojson", withCRS("EPSG:32633", lineFeature("s", `[[-1,0],[1,0]]`)))
	writeFile(t, rivers, "other.geojson", withCRS("EPSG:4326", lineFeature("o", `[[-1,0],[1,0]]`)))

	t.Run("logged", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		save := t.TempDir()
		report, err := RunSelect(context.Background(), SelectConfig{
			InputPath: points,
			RiverPath: rivers,
			SavePath:  save,
		}, zap.New(core), nil)
		if err != nil {
			t.Fatalf("RunSelect: %v", err)
		}

		warnings := logs.FilterMessage("crs mismatch").All()
		if len(warnings) != 1 {
			t.Fatalf("Expected 1 crs mismatch warning, got %d", len(warnings))
		}
		fields := warnings[0].ContextMap()
		if fields["layer"] != "wells_other" {
			t.Errorf("Expected warning for wells_other, got %v", fields["layer"])
		}
		if len(report.Failures) != 0 {
			t.Errorf("Expected no failures, got %v", report.Failures)
		}
		for _, name := range []string{"wells_same.geojson", "wells_other.geojson"} {
			if _, err := os.Stat(filepath.Join(save, name)); err != nil {
				t.Errorf("Expected %s written: %v", name, err)
			}
		}
	})

	t.Run("required", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		report, err := RunSelect(context.Background(), SelectConfig{
			InputPath:      points,
			RiverPath:      rivers,
			SavePath:       t.TempDir(),
			RequireSameCRS: true,
		}, zap.New(core), nil)
		if err != nil {
			t.Fatalf("RunSelect: %v", err)
		}
		if n := logs.FilterMessage("crs mismatch").Len(); n != 0 {
			t.Errorf("Expected no crs mismatch warning, got %d", n)
		}
		if len(report.Failures) != 1 || !errors.Is(report.Failures[0].Err, geoproc.ErrCRSMismatch) {
			t.Errorf("Expected 1 ErrCRSMismatch failure, got %v", report.Failures)
		}
	})
}

func TestReportExitCode(t *testing.T) {
	r := newReport(metrics.OpBuffer)
	if r.ExitCode() != ExitOK {
		t.Errorf("Expected %d, got %d", ExitOK, r.ExitCode())
	}
	r.addSkips([]geoproc.FeatureSkip{{Layer: "x", Index: 0, Err: errors.New("bad")}})
	if r.ExitCode() != ExitFeatureSkipped {
		t.Errorf("Expected %d, got %d", ExitFeatureSkipped, r.ExitCode())
	}
	r.fail("x", "x.geojson", errors.New("boom"))
	if r.ExitCode() != ExitLayerFailed {
		t.Errorf("Expected %d, got %d", ExitLayerFailed, r.ExitCode())
	}
	if r.RunID == "" {
		t.Error("Expected a run ID")
	}
}
