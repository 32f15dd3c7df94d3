package hdhost

import (
	"context"
	"fmt"
	"runtime"

	"github.com/gekko3d/hdmoonshine/hd"
	"golang.org/x/sync/errgroup"
)

// PassState binds a camera and AOVs for one render pass execution.
type PassState struct {
	Camera hd.Sprim
	Aovs   []hd.AovBinding
}

func (s *PassState) GetCamera() hd.Sprim            { return s.Camera }
func (s *PassState) GetAovBindings() []hd.AovBinding { return s.Aovs }

// NewPassState looks up the camera and color render buffer in the index.
func NewPassState(ri *RenderIndex, camera, colorBuffer hd.Path) (*PassState, error) {
	cam := ri.GetSprim(hd.PrimTypeCamera, camera)
	if cam == nil {
		return nil, fmt.Errorf("camera %s not in render index", camera)
	}
	buffer, ok := ri.GetBprim(hd.PrimTypeRenderBuffer, colorBuffer).(hd.RenderBuffer)
	if !ok {
		return nil, fmt.Errorf("render buffer %s not in render index", colorBuffer)
	}
	return &PassState{
		Camera: cam,
		Aovs: []hd.AovBinding{{
			AovName:        hd.AovColor,
			RenderBuffer:   buffer,
			RenderBufferID: colorBuffer,
			ClearValue:     ri.delegate.GetDefaultAovDescriptor(hd.AovColor).ClearValue,
		}},
	}, nil
}

// Engine runs frames against a render index.
type Engine struct {
	// Workers bounds concurrent prim syncs; zero means one per CPU.
	Workers int
	// Repr is handed to every rprim sync.
	Repr hd.Token
}

// Execute syncs every dirty prim and then runs the pass. Buffers sync
// first, then state prims, then renderable prims; prims of one kind sync
// concurrently. The pass only runs after every sync has returned.
func (e *Engine) Execute(ctx context.Context, ri *RenderIndex, pass hd.RenderPass, state hd.RenderPassState) error {
	if err := e.SyncAll(ctx, ri); err != nil {
		return err
	}
	pass.Execute(state, nil)
	return nil
}

// SyncAll syncs dirty prims and commits resources without rendering.
func (e *Engine) SyncAll(ctx context.Context, ri *RenderIndex) error {
	rp := ri.delegate.GetRenderParam()
	t := ri.tracker

	var bprims []func()
	ri.mu.RLock()
	for _, typeID := range sortedKeys(ri.bprims) {
		for _, id := range sortedKeys(ri.bprims[typeID]) {
			id := id
			prim := ri.bprims[typeID][id]
			bprims = append(bprims, func() {
				bits := t.GetBprimDirtyBits(id)
				if bits == hd.Clean {
					return
				}
				prim.Sync(ri.scene, rp, &bits)
				t.MarkBprimClean(id, bits)
			})
		}
	}
	ri.mu.RUnlock()
	if err := e.run(ctx, bprims); err != nil {
		return fmt.Errorf("sync bprims: %w", err)
	}

	var sprims []func()
	ri.mu.RLock()
	for _, typeID := range sortedKeys(ri.sprims) {
		for _, id := range sortedKeys(ri.sprims[typeID]) {
			id := id
			prim := ri.sprims[typeID][id]
			sprims = append(sprims, func() {
				bits := t.GetSprimDirtyBits(id)
				if bits == hd.Clean {
					return
				}
				prim.Sync(ri.scene, rp, &bits)
				t.MarkSprimClean(id, bits)
			})
		}
	}
	ri.mu.RUnlock()
	if err := e.run(ctx, sprims); err != nil {
		return fmt.Errorf("sync sprims: %w", err)
	}

	repr := e.Repr
	if repr == "" {
		repr = hd.ReprSmoothHull
	}
	var rprims []func()
	ri.mu.RLock()
	for _, id := range sortedKeys(ri.rprims) {
		id := id
		prim := ri.rprims[id]
		rprims = append(rprims, func() {
			bits := t.GetRprimDirtyBits(id)
			if hd.IsClean(bits) {
				return
			}
			bits = prim.PropagateDirtyBits(bits)
			prim.Sync(ri.scene, rp, &bits, repr)
			t.MarkRprimClean(id, bits)
		})
	}
	ri.mu.RUnlock()
	if err := e.run(ctx, rprims); err != nil {
		return fmt.Errorf("sync rprims: %w", err)
	}

	ri.delegate.CommitResources(t)
	return nil
}

func (e *Engine) run(ctx context.Context, jobs []func()) error {
	g, gctx := errgroup.WithContext(ctx)
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g.SetLimit(workers)
	for _, job := range jobs {
		job := job
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			job()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
