package hdmoonshine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/gekko3d/hdmoonshine/hd"
	"github.com/gekko3d/hdmoonshine/hdhost"
	"github.com/gekko3d/hdmoonshine/moonshine"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mu       sync.Mutex
	errors   []string
	warnings []string
}

func (l *recordingLogger) DebugEnabled() bool                { return false }
func (l *recordingLogger) SetDebug(enabled bool)             {}
func (l *recordingLogger) Debugf(format string, args ...any) {}
func (l *recordingLogger) Infof(format string, args ...any)  {}

func (l *recordingLogger) Warnf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Errorf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}

func (l *recordingLogger) Warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warnings...)
}

func (l *recordingLogger) HasError(substr string) bool {
	for _, e := range l.Errors() {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

// fixture is a delegate over a memory engine with a populated scene.
type fixture struct {
	t        *testing.T
	engine   *moonshine.MemoryEngine
	logger   *recordingLogger
	delegate *RenderDelegate
	scene    *hdhost.Scene
	index    *hdhost.RenderIndex
	host     *hdhost.Engine
}

func newFixture(t *testing.T, scene *hdhost.Scene) *fixture {
	t.Helper()
	engine := moonshine.NewMemoryEngine()
	logger := &recordingLogger{}
	d, err := NewRenderDelegateBuilder().UseEngine(engine).UseLogger(logger).Build()
	require.NoError(t, err)

	index := hdhost.NewRenderIndex(d)
	require.NoError(t, scene.Populate(index))
	t.Cleanup(func() {
		index.Clear()
		d.Close()
	})
	return &fixture{
		t:        t,
		engine:   engine,
		logger:   logger,
		delegate: d,
		scene:    scene,
		index:    index,
		host:     &hdhost.Engine{},
	}
}

func (f *fixture) sync() {
	f.t.Helper()
	require.NoError(f.t, f.host.SyncAll(context.Background(), f.index))
}

func (f *fixture) mesh(id hd.Path) *Mesh {
	f.t.Helper()
	m, ok := f.index.GetRprim(id).(*Mesh)
	require.True(f.t, ok, "no mesh %s", id)
	return m
}

func (f *fixture) camera(id hd.Path) *Camera {
	f.t.Helper()
	c, ok := f.index.GetSprim(hd.PrimTypeCamera, id).(*Camera)
	require.True(f.t, ok, "no camera %s", id)
	return c
}

func (f *fixture) material(id hd.Path) *Material {
	f.t.Helper()
	m, ok := f.index.GetSprim(hd.PrimTypeMaterial, id).(*Material)
	require.True(f.t, ok, "no material %s", id)
	return m
}

func (f *fixture) codingErrors(kind ErrorKind) float64 {
	return testutil.ToFloat64(f.delegate.param.metrics.codingErrors.WithLabelValues(string(kind)))
}

// requireInvariant checks the one-transform-per-instance invariant.
func (f *fixture) requireInvariant(m *Mesh) {
	f.t.Helper()
	require.Len(f.t, m.InstanceTransforms(), len(m.Instances()))
}

func quadMesh() hdhost.MeshData {
	return hdhost.MeshData{
		Topology: hd.MeshTopology{
			FaceVertexCounts:  []int32{4},
			FaceVertexIndices: []int32{0, 1, 2, 3},
		},
		Points:    []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		Transform: mgl64.Ident4(),
		Visible:   true,
	}
}

func translate(x, y, z float64) mgl64.Mat4 {
	return mgl64.Translate3D(x, y, z)
}

func vec3Near(t *testing.T, want mgl64.Vec3, got mgl64.Vec3) {
	t.Helper()
	require.True(t, want.ApproxEqualThreshold(got, 1e-6), "want %v, got %v", want, got)
}

func histogramCount(t *testing.T, d *RenderDelegate, name string) uint64 {
	t.Helper()
	families, err := d.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			require.NotEmpty(t, mf.GetMetric())
			return mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	return 0
}
