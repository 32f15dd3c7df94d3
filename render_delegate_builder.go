package hdmoonshine

import (
	"fmt"

	"github.com/gekko3d/hdmoonshine/hd"
	"github.com/gekko3d/hdmoonshine/moonshine"
	"github.com/google/uuid"
)

// Module extends a delegate while it is built, typically with commands.
type Module interface {
	Install(d *RenderDelegate)
}

type RenderDelegateBuilder struct {
	config   Config
	settings map[hd.Token]any
	engine   moonshine.Engine
	logger   Logger
	shaders  hd.ShaderRegistry
	modules  []Module
}

func NewRenderDelegateBuilder() *RenderDelegateBuilder {
	return &RenderDelegateBuilder{
		config:  DefaultConfig(),
		shaders: hd.DefaultShaderRegistry,
		modules: []Module{pipelineModule{}},
	}
}

func (b *RenderDelegateBuilder) UseConfig(cfg Config) *RenderDelegateBuilder {
	b.config = cfg
	return b
}

// UseSettings applies host render settings over the config at Build time.
func (b *RenderDelegateBuilder) UseSettings(settings map[hd.Token]any) *RenderDelegateBuilder {
	b.settings = settings
	return b
}

// UseEngine makes the delegate drive an existing engine. The caller keeps
// ownership and destroys it.
func (b *RenderDelegateBuilder) UseEngine(engine moonshine.Engine) *RenderDelegateBuilder {
	b.engine = engine
	return b
}

func (b *RenderDelegateBuilder) UseLogger(logger Logger) *RenderDelegateBuilder {
	b.logger = logger
	return b
}

func (b *RenderDelegateBuilder) UseShaderRegistry(registry hd.ShaderRegistry) *RenderDelegateBuilder {
	b.shaders = registry
	return b
}

func (b *RenderDelegateBuilder) UseModule(modules ...Module) *RenderDelegateBuilder {
	b.modules = append(b.modules, modules...)
	return b
}

func (b *RenderDelegateBuilder) Build() (*RenderDelegate, error) {
	cfg := b.config.ApplySettings(b.settings)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("render delegate config: %w", err)
	}

	logger := b.logger
	if logger == nil {
		logger = NewDefaultLogger(cfg.LogPrefix, cfg.Debug)
	}

	engine, owns := b.engine, false
	if engine == nil {
		var err error
		engine, err = moonshine.Open()
		if err != nil {
			return nil, fmt.Errorf("open engine: %w", err)
		}
		owns = true
	}

	param, err := newRenderParam(engine, cfg, logger, b.shaders)
	if err != nil {
		if owns {
			engine.Destroy()
		}
		return nil, err
	}

	d := &RenderDelegate{
		id:         uuid.New(),
		param:      param,
		ownsEngine: owns,
		commands:   make(map[hd.Token]Command),
	}
	for _, module := range b.modules {
		module.Install(d)
	}
	logger.Debugf("render delegate %s created", d.id)
	return d, nil
}
