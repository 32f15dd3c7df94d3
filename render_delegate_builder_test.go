package hdmoonshine

import (
	"testing"

	"github.com/gekko3d/hdmoonshine/hd"
	"github.com/gekko3d/hdmoonshine/moonshine"
)

type MockModule struct {
	installed bool
}

func (m *MockModule) Install(d *RenderDelegate) {
	m.installed = true
}

type MockModule2 struct {
	installed bool
}

func (m *MockModule2) Install(d *RenderDelegate) {
	m.installed = true
	d.RegisterCommand("mock", Command{
		Description: "mock command",
		Run:         func(*RenderDelegate, map[hd.Token]any) bool { return true },
	})
}

func TestRenderDelegateBuilder_Defaults(t *testing.T) {
	d, err := NewRenderDelegateBuilder().UseLogger(NewNopLogger()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer d.Close()

	if d.Config() != DefaultConfig() {
		t.Errorf("Expected default config, got %+v", d.Config())
	}
	if !d.ownsEngine {
		t.Errorf("Expected delegate to own the engine it opened")
	}
	if d.Engine() == nil {
		t.Errorf("Expected an engine")
	}
}

func TestRenderDelegateBuilder_UseModule(t *testing.T) {
	builder := NewRenderDelegateBuilder()
	mockModule := &MockModule{}
	builder.UseModule(mockModule)

	if len(builder.modules) != 2 {
		t.Errorf("Expected modules to contain 2 modules, got %v", len(builder.modules))
	}
}

func TestRenderDelegateBuilder_InstallsModules(t *testing.T) {
	mockModule := &MockModule{}
	mockModule2 := &MockModule2{}
	d, err := NewRenderDelegateBuilder().
		UseEngine(moonshine.NewMemoryEngine()).
		UseLogger(NewNopLogger()).
		UseModule(mockModule, mockModule2).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !mockModule.installed {
		t.Errorf("Expected mockModule to be installed")
	}
	if !mockModule2.installed {
		t.Errorf("Expected mockModule2 to be installed")
	}
	if !d.InvokeCommand("mock", nil) {
		t.Errorf("Expected mock command to run")
	}
}

func TestRenderDelegateBuilder_UseSettings(t *testing.T) {
	d, err := NewRenderDelegateBuilder().
		UseEngine(moonshine.NewMemoryEngine()).
		UseLogger(NewNopLogger()).
		UseSettings(map[hd.Token]any{
			SettingTextureCacheSize: int32(4),
			SettingFlipTextures:     false,
		}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if d.Config().TextureCacheSize != 4 {
		t.Errorf("Expected TextureCacheSize to be 4, got %v", d.Config().TextureCacheSize)
	}
	if d.Config().FlipTextures {
		t.Errorf("Expected FlipTextures to be false")
	}
}

func TestRenderDelegateBuilder_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TextureCacheSize = 0

	engine := moonshine.NewMemoryEngine()
	_, err := NewRenderDelegateBuilder().UseConfig(cfg).UseEngine(engine).Build()
	if err == nil {
		t.Fatalf("Expected Build to fail for an invalid config")
	}
	if calls := engine.CallNames(); len(calls) != 0 {
		t.Errorf("Expected no engine calls, got %v", calls)
	}
}

func TestRenderDelegateBuilder_UseEngine(t *testing.T) {
	engine := moonshine.NewMemoryEngine()
	d, err := NewRenderDelegateBuilder().UseEngine(engine).UseLogger(NewNopLogger()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	d.Close()

	if engine.Calls("Destroy") != 0 {
		t.Errorf("Expected a borrowed engine to survive Close")
	}
	// the defaults bound to new materials
	if got := engine.Stats().Textures; got != 5 {
		t.Errorf("Expected 5 default textures, got %v", got)
	}
	if got := engine.Stats().Materials; got != 1 {
		t.Errorf("Expected the fallback material, got %v materials", got)
	}
}
