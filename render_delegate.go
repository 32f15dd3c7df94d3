// Package hdmoonshine is a render delegate that mirrors a host scene into the
// moonshine path tracer. Meshes, cameras, materials, instancers and render
// buffers are reconciled with engine resources as the host syncs them.
package hdmoonshine

import (
	"sort"

	"github.com/gekko3d/hdmoonshine/hd"
	"github.com/gekko3d/hdmoonshine/moonshine"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	supportedRprimTypes = []hd.Token{hd.PrimTypeMesh}
	supportedSprimTypes = []hd.Token{hd.PrimTypeCamera, hd.PrimTypeMaterial}
	supportedBprimTypes = []hd.Token{hd.PrimTypeRenderBuffer}
)

// CommandRebuildPipeline recompiles the engine's ray tracing pipeline.
const CommandRebuildPipeline hd.Token = "rebuildPipeline"

// Command is an operator action exposed through InvokeCommand.
type Command struct {
	Description string
	Run         func(d *RenderDelegate, args map[hd.Token]any) bool
}

type RenderDelegate struct {
	id         uuid.UUID
	param      *RenderParam
	ownsEngine bool
	commands   map[hd.Token]Command
}

func (d *RenderDelegate) ID() uuid.UUID { return d.id }

func (d *RenderDelegate) Config() Config { return d.param.config }

func (d *RenderDelegate) Logger() Logger { return d.param.logger }

func (d *RenderDelegate) Engine() moonshine.Engine { return d.param.engine }

// Registry holds the delegate's reconciliation metrics.
func (d *RenderDelegate) Registry() *prometheus.Registry { return d.param.metrics.registry }

func (d *RenderDelegate) GetSupportedRprimTypes() []hd.Token { return supportedRprimTypes }
func (d *RenderDelegate) GetSupportedSprimTypes() []hd.Token { return supportedSprimTypes }
func (d *RenderDelegate) GetSupportedBprimTypes() []hd.Token { return supportedBprimTypes }

func (d *RenderDelegate) GetRenderParam() hd.RenderParam { return d.param }

func (d *RenderDelegate) CreateRenderPass(index hd.RenderIndex, collection hd.RprimCollection) hd.RenderPass {
	return NewRenderPass(index, collection, d.param)
}

func (d *RenderDelegate) CreateInstancer(sd hd.SceneDelegate, id hd.Path) hd.Instancer {
	d.param.logger.Debugf("create instancer %s", id)
	return NewInstancer(sd, id)
}

func (d *RenderDelegate) DestroyInstancer(instancer hd.Instancer) {
	d.param.logger.Debugf("destroy instancer %s", instancer.ID())
}

func (d *RenderDelegate) CreateRprim(typeID hd.Token, id hd.Path) hd.Rprim {
	switch typeID {
	case hd.PrimTypeMesh:
		d.param.logger.Debugf("create mesh %s", id)
		return NewMesh(id)
	default:
		d.param.logger.Warnf("unknown rprim type %s for %s", typeID, id)
		return nil
	}
}

func (d *RenderDelegate) DestroyRprim(rprim hd.Rprim) {
	d.param.logger.Debugf("destroy rprim %s", rprim.ID())
}

func (d *RenderDelegate) CreateSprim(typeID hd.Token, id hd.Path) hd.Sprim {
	switch typeID {
	case hd.PrimTypeCamera:
		d.param.logger.Debugf("create camera %s", id)
		return NewCamera(id)
	case hd.PrimTypeMaterial:
		d.param.logger.Debugf("create material %s", id)
		return NewMaterial(id, d.param)
	default:
		d.param.logger.Warnf("unknown sprim type %s for %s", typeID, id)
		return nil
	}
}

func (d *RenderDelegate) CreateFallbackSprim(typeID hd.Token) hd.Sprim {
	return d.CreateSprim(typeID, fallbackPath(typeID))
}

func (d *RenderDelegate) DestroySprim(sprim hd.Sprim) {
	d.param.logger.Debugf("destroy sprim %s", sprim.ID())
}

func (d *RenderDelegate) CreateBprim(typeID hd.Token, id hd.Path) hd.Bprim {
	switch typeID {
	case hd.PrimTypeRenderBuffer:
		d.param.logger.Debugf("create render buffer %s", id)
		return NewRenderBuffer(id, d.param)
	default:
		d.param.logger.Warnf("unknown bprim type %s for %s", typeID, id)
		return nil
	}
}

func (d *RenderDelegate) CreateFallbackBprim(typeID hd.Token) hd.Bprim {
	return d.CreateBprim(typeID, fallbackPath(typeID))
}

func (d *RenderDelegate) DestroyBprim(bprim hd.Bprim) {
	d.param.logger.Debugf("destroy bprim %s", bprim.ID())
}

func fallbackPath(typeID hd.Token) hd.Path {
	return hd.Path("/_fallback/" + typeID.String() + "_" + uuid.NewString())
}

// CommitResources has nothing to flush: engine calls take effect during sync.
func (d *RenderDelegate) CommitResources(tracker hd.ChangeTracker) {}

func (d *RenderDelegate) GetDefaultAovDescriptor(name hd.Token) hd.AovDescriptor {
	if name == hd.AovColor {
		return hd.AovDescriptor{Format: hd.FormatFloat32Vec4, ClearValue: [4]float32{}}
	}
	return hd.AovDescriptor{Format: hd.FormatInvalid}
}

// RegisterCommand adds or replaces an operator command.
func (d *RenderDelegate) RegisterCommand(name hd.Token, cmd Command) {
	d.commands[name] = cmd
}

func (d *RenderDelegate) GetCommandDescriptors() []hd.CommandDescriptor {
	out := make([]hd.CommandDescriptor, 0, len(d.commands))
	for name, cmd := range d.commands {
		out = append(out, hd.CommandDescriptor{Name: name, Description: cmd.Description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (d *RenderDelegate) InvokeCommand(name hd.Token, args map[hd.Token]any) bool {
	cmd, ok := d.commands[name]
	if !ok {
		d.param.logger.Warnf("unknown command %s", name)
		return false
	}
	return cmd.Run(d, args)
}

// Close destroys the engine when the delegate created it.
func (d *RenderDelegate) Close() {
	if d.ownsEngine {
		d.param.engine.Destroy()
	}
	d.param.logger.Debugf("render delegate %s closed", d.id)
}

type pipelineModule struct{}

func (pipelineModule) Install(d *RenderDelegate) {
	d.RegisterCommand(CommandRebuildPipeline, Command{
		Description: "Rebuild the ray tracing pipeline",
		Run: func(d *RenderDelegate, _ map[hd.Token]any) bool {
			ok := d.param.engine.RebuildPipeline()
			if ok {
				d.param.logger.Infof("pipeline rebuilt")
			} else {
				d.param.logger.Errorf("pipeline rebuild failed")
			}
			return ok
		},
	})
}
