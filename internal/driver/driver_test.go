package driver_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"spvregular/internal/diag"
	"spvregular/internal/driver"
	"spvregular/internal/ir"
	"spvregular/internal/irfile"
	"spvregular/internal/observ"
	"spvregular/internal/regularize"
	"spvregular/internal/types"
	"spvregular/internal/verify"
)

// rotModule returns rot(x, s) = fshl(x, x, s) on i32.
func rotModule(t *testing.T, name string) *ir.Module {
	t.Helper()
	m := ir.NewModule(name, nil)
	i32 := m.Types.Builtins().I32
	fshl, err := m.DeclareFunc("llvm.fshl.i32", m.Types.RegisterFn([]types.TypeID{i32, i32, i32}, i32))
	require.NoError(t, err)
	f, err := m.DeclareFunc("rot", m.Types.RegisterFn([]types.TypeID{i32, i32}, i32))
	require.NoError(t, err)
	b := ir.NewBuilder(m)
	b.SetInsertPoint(m.NewBlock(f, "entry"))
	b.Ret(b.Call(fshl, []ir.ValueID{f.Params[0], f.Params[0], f.Params[1]}, "r"))
	return m
}

// unterminatedModule has a block without a terminator.
func unterminatedModule(t *testing.T) *ir.Module {
	t.Helper()
	m := ir.NewModule("broken", nil)
	i32 := m.Types.Builtins().I32
	f, err := m.DeclareFunc("open", m.Types.RegisterFn([]types.TypeID{i32}, i32))
	require.NoError(t, err)
	b := ir.NewBuilder(m)
	b.SetInsertPoint(m.NewBlock(f, "entry"))
	b.Binary(ir.OpAdd, f.Params[0], f.Params[0], "")
	return m
}

func writeModule(t *testing.T, dir, file string, m *ir.Module) string {
	t.Helper()
	path := filepath.Join(dir, file)
	require.NoError(t, irfile.WriteFile(path, m))
	return path
}

func codes(bag *diag.Bag) []diag.Code {
	var out []diag.Code
	for _, d := range bag.Items() {
		out = append(out, d.Code)
	}
	return out
}

func TestRunFilesWritesOutDir(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	paths := []string{
		writeModule(t, in, "a.mp", rotModule(t, "a")),
		writeModule(t, in, "b.mp", rotModule(t, "b")),
	}
	before, err := os.ReadFile(paths[0])
	require.NoError(t, err)

	results, err := driver.RunFiles(context.Background(), paths, driver.Options{OutDir: out, Jobs: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)

	for i, res := range results {
		require.Equal(t, paths[i], res.Path)
		require.False(t, res.Failed(), "%v", res.Bag.Items())
		require.Equal(t, filepath.Join(out, filepath.Base(paths[i])), res.Output)

		m, err := irfile.ReadFile(res.Output)
		require.NoError(t, err)
		require.Equal(t, res.Module, m.Name)
		require.Nil(t, m.Func("llvm.fshl.i32"))
		require.NotNil(t, m.Func("spirv.llvm_fshl_i32"))
		require.Zero(t, verify.Regularized(m).Len())
	}

	after, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	require.Equal(t, before, after, "inputs stay untouched with an output dir")
}

func TestRunFilesInPlace(t *testing.T) {
	path := writeModule(t, t.TempDir(), "k.mp", rotModule(t, "k"))
	results, err := driver.RunFiles(context.Background(), []string{path}, driver.Options{})
	require.NoError(t, err)
	require.Equal(t, path, results[0].Output)

	m, err := irfile.ReadFile(path)
	require.NoError(t, err)
	require.NotNil(t, m.Func("spirv.llvm_fshl_i32"))
}

func TestRunFilesReportsPerFileFailures(t *testing.T) {
	dir := t.TempDir()
	good := writeModule(t, dir, "good.mp", rotModule(t, "good"))
	broken := writeModule(t, dir, "broken.mp", unterminatedModule(t))
	garbage := filepath.Join(dir, "garbage.mp")
	require.NoError(t, os.WriteFile(garbage, []byte("not a module"), 0o644))
	missing := filepath.Join(dir, "missing.mp")

	results, err := driver.RunFiles(context.Background(), []string{good, broken, garbage, missing}, driver.Options{OutDir: filepath.Join(dir, "out")})
	require.NoError(t, err)
	require.Len(t, results, 4)

	require.False(t, results[0].Failed())

	require.True(t, results[1].Failed())
	require.Contains(t, codes(results[1].Bag), diag.VerMissingTerminator)
	require.Empty(t, results[1].Output)
	_, err = os.Stat(filepath.Join(dir, "out", "broken.mp"))
	require.ErrorIs(t, err, os.ErrNotExist)

	require.Equal(t, []diag.Code{diag.IOLoadFileError}, codes(results[2].Bag))
	require.Equal(t, []diag.Code{diag.IOLoadFileError}, codes(results[3].Bag))
}

func TestRunFilesReportsInvariantViolations(t *testing.T) {
	m := ir.NewModule("cas", nil)
	ts := m.Types
	i32 := ts.Builtins().I32
	f, err := m.DeclareFunc("casn", ts.RegisterFn([]types.TypeID{ts.Pointer(i32), i32, i32}, ts.Builtins().Void))
	require.NoError(t, err)
	b := ir.NewBuilder(m)
	b.SetInsertPoint(m.NewBlock(f, "entry"))
	v := b.CmpXchg(f.Params[0], f.Params[1], f.Params[2], ir.OrderingSeqCst, ir.OrderingSeqCst, "")
	b.Insert(&ir.Instr{
		Kind:  ir.InstrExtractValue,
		Ops:   []ir.ValueID{v},
		Field: ir.FieldInstr{Indices: []uint32{1, 0}},
	}, ts.Builtins().I1, "")
	b.RetVoid()
	path := writeModule(t, t.TempDir(), "cas.mp", m)

	results, err := driver.RunFiles(context.Background(), []string{path}, driver.Options{})
	require.NoError(t, err)
	require.Equal(t, []diag.Code{diag.RegInvariant}, codes(results[0].Bag))
	require.Empty(t, results[0].Output)
}

func TestRunFilesRejectsOutputCollision(t *testing.T) {
	root := t.TempDir()
	a := writeModule(t, filepath.Join(root, "a"), "k.mp", rotModule(t, "a"))
	b := writeModule(t, filepath.Join(root, "b"), "k.mp", rotModule(t, "b"))

	_, err := driver.RunFiles(context.Background(), []string{a, b}, driver.Options{OutDir: filepath.Join(root, "out")})
	require.ErrorContains(t, err, "both write")
}

func TestRunFilesRejectsOutputCollisionAcrossSpellings(t *testing.T) {
	root := t.TempDir()
	a := writeModule(t, root, "a.mp", rotModule(t, "a"))
	dotted := root + string(filepath.Separator) + "." + string(filepath.Separator) + "a.mp"

	_, err := driver.RunFiles(context.Background(), []string{a, dotted}, driver.Options{})
	require.ErrorContains(t, err, "both write")

	t.Chdir(root)
	_, err = driver.RunFiles(context.Background(), []string{"a.mp", a}, driver.Options{})
	require.ErrorContains(t, err, "both write")
}

func TestRunFilesUsesCache(t *testing.T) {
	dir := t.TempDir()
	cache, err := driver.NewDiskCache(filepath.Join(dir, "cache"))
	require.NoError(t, err)
	path := writeModule(t, dir, "k.mp", rotModule(t, "k"))

	first, err := driver.RunFiles(context.Background(), []string{path}, driver.Options{OutDir: filepath.Join(dir, "one"), Cache: cache})
	require.NoError(t, err)
	require.False(t, first[0].Cached)

	second, err := driver.RunFiles(context.Background(), []string{path}, driver.Options{OutDir: filepath.Join(dir, "two"), Cache: cache, Timings: true})
	require.NoError(t, err)
	require.True(t, second[0].Cached)
	require.False(t, second[0].Failed())
	require.Contains(t, second[0].Timing.Counters, observ.CounterReport{Name: "cache_hits", Value: 1})

	one, err := os.ReadFile(first[0].Output)
	require.NoError(t, err)
	two, err := os.ReadFile(second[0].Output)
	require.NoError(t, err)
	require.Equal(t, one, two)

	require.NoError(t, cache.DropAll())
	third, err := driver.RunFiles(context.Background(), []string{path}, driver.Options{OutDir: filepath.Join(dir, "three"), Cache: cache})
	require.NoError(t, err)
	require.False(t, third[0].Cached)
}

func TestRunFilesTimingsAndObserver(t *testing.T) {
	path := writeModule(t, t.TempDir(), "k.mp", rotModule(t, "k"))

	var mu sync.Mutex
	var ended []string
	var final []driver.PhaseStatus
	observer := func(ev driver.PhaseEvent) {
		mu.Lock()
		defer mu.Unlock()
		switch ev.Status {
		case driver.PhaseEnd:
			ended = append(ended, ev.Name)
		case driver.PhaseDone, driver.PhaseFailed:
			final = append(final, ev.Status)
		}
	}

	results, err := driver.RunFiles(context.Background(), []string{path}, driver.Options{Timings: true, Observer: observer})
	require.NoError(t, err)
	require.Equal(t, []string{"load", "regularize", "write"}, ended)
	require.Equal(t, []driver.PhaseStatus{driver.PhaseDone}, final)

	res := results[0]
	require.NotNil(t, res.Timing)
	var phases []string
	for _, p := range res.Timing.Phases {
		phases = append(phases, p.Name)
	}
	for _, want := range []string{"load", "regularize", "dead_decls", "funcptr", "walk", "verify", "write"} {
		require.Contains(t, phases, want)
	}
	require.Contains(t, res.Timing.Counters, observ.CounterReport{Name: regularize.CountFshl, Value: 1})

	items := res.Bag.Items()
	require.Len(t, items, 1)
	require.Equal(t, diag.ObsTimings, items[0].Code)
	require.Equal(t, diag.SevInfo, items[0].Severity)
	require.Len(t, items[0].Notes, 1)
	var payload struct {
		Kind string `json:"kind"`
		Path string `json:"path"`
	}
	require.NoError(t, json.Unmarshal([]byte(items[0].Notes[0].Msg), &payload))
	require.Equal(t, "run", payload.Kind)
	require.Equal(t, path, payload.Path)
}

func TestRunFilesWritesSnapshotsPerFile(t *testing.T) {
	dir := t.TempDir()
	path := writeModule(t, dir, "k.mp", rotModule(t, "k"))
	opts := driver.Options{
		OutDir:     filepath.Join(dir, "out"),
		Regularize: regularize.Options{SaveRegularized: true},
	}
	results, err := driver.RunFiles(context.Background(), []string{path}, opts)
	require.NoError(t, err)
	require.False(t, results[0].Failed())

	snap, err := irfile.ReadFile(filepath.Join(dir, "out", "k.regularized.mp"))
	require.NoError(t, err)
	require.NotNil(t, snap.Func("spirv.llvm_fshl_i32"))
}

func TestVerifyFiles(t *testing.T) {
	dir := t.TempDir()
	raw := writeModule(t, dir, "raw.mp", rotModule(t, "raw"))
	broken := writeModule(t, dir, "broken.mp", unterminatedModule(t))
	before, err := os.ReadFile(raw)
	require.NoError(t, err)

	results, err := driver.VerifyFiles(context.Background(), []string{raw, broken}, driver.Options{})
	require.NoError(t, err)
	require.False(t, results[0].Failed())
	require.Contains(t, codes(results[1].Bag), diag.VerMissingTerminator)

	results, err = driver.VerifyFiles(context.Background(), []string{raw}, driver.Options{Regularized: true})
	require.NoError(t, err)
	require.Contains(t, codes(results[0].Bag), diag.RegIntrinsicRemains)

	after, err := os.ReadFile(raw)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	for _, p := range []string{filepath.Join(dir, "b.mp"), filepath.Join(nested, "a.mp"), filepath.Join(dir, "notes.txt")} {
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}
	single := filepath.Join(dir, "notes.txt")

	got, err := driver.ExpandInputs([]string{single, dir})
	require.NoError(t, err)
	want := []string{single, filepath.Join(dir, "b.mp"), filepath.Join(nested, "a.mp")}
	require.Equal(t, want, got)
	require.True(t, slices.IsSorted(got[1:]))

	_, err = driver.ExpandInputs([]string{filepath.Join(dir, "absent")})
	require.Error(t, err)
}
