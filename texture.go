package hdmoonshine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gekko3d/hdmoonshine/hd"
	"github.com/gekko3d/hdmoonshine/moonshine"
	"github.com/gekko3d/hdmoonshine/textureio"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	lru "github.com/hashicorp/golang-lru/v2"
)

type textureKey struct {
	path string
	flip bool
}

// textureCache remembers the engine texture uploaded for an image file so
// materials sharing a file share the handle. The engine has no texture
// destroy call, so an evicted entry only costs a decode on the next miss.
type textureCache struct {
	// held across lookup and upload so a file shared by materials syncing
	// concurrently is decoded once
	mu    sync.Mutex
	cache *lru.Cache[textureKey, moonshine.ImageHandle]
}

func newTextureCache(size int) (*textureCache, error) {
	cache, err := lru.New[textureKey, moonshine.ImageHandle](size)
	if err != nil {
		return nil, fmt.Errorf("texture cache: %w", err)
	}
	return &textureCache{cache: cache}, nil
}

// syncError carries the coding error kind of a failed binding or pull.
type syncError struct {
	kind ErrorKind
	err  error
}

func (e *syncError) Error() string { return e.err.Error() }
func (e *syncError) Unwrap() error { return e.err }

func errorKindOf(err error) ErrorKind {
	var te *syncError
	if errors.As(err, &te) {
		return te.kind
	}
	return ErrorInvalidData
}

// makeTexture turns a shading value into an engine texture: asset paths are
// decoded and uploaded, scalars and vectors become solid textures.
func (rp *RenderParam) makeTexture(value any, debugName string) (moonshine.ImageHandle, error) {
	e := rp.engine
	switch v := value.(type) {
	case hd.AssetPath:
		return rp.loadTexture(v, debugName)
	case mgl32.Vec3:
		return e.CreateSolidTexture3(moonshine.F32x3{X: v[0], Y: v[1], Z: v[2]}, debugName+" f32x3"), nil
	case mgl64.Vec3:
		return e.CreateSolidTexture3(moonshine.F32x3{X: float32(v[0]), Y: float32(v[1]), Z: float32(v[2])}, debugName+" f32x3"), nil
	case mgl32.Vec2:
		return e.CreateSolidTexture2(moonshine.F32x2{X: v[0], Y: v[1]}, debugName+" f32x2"), nil
	case mgl64.Vec2:
		return e.CreateSolidTexture2(moonshine.F32x2{X: float32(v[0]), Y: float32(v[1])}, debugName+" f32x2"), nil
	case float32:
		return e.CreateSolidTexture1(v, debugName+" float"), nil
	case float64:
		return e.CreateSolidTexture1(float32(v), debugName+" float"), nil
	default:
		return 0, &syncError{ErrorUnknownValueType, fmt.Errorf("unknown value type %T", value)}
	}
}

func (rp *RenderParam) loadTexture(asset hd.AssetPath, debugName string) (moonshine.ImageHandle, error) {
	path := asset.Resolved()
	if path == "" {
		return 0, &syncError{ErrorInvalidData, errors.New("empty asset path")}
	}
	key := textureKey{path: path, flip: rp.config.FlipTextures}
	rp.textures.mu.Lock()
	defer rp.textures.mu.Unlock()
	if h, ok := rp.textures.cache.Get(key); ok {
		rp.metrics.textureCacheHits.Inc()
		return h, nil
	}

	img, err := textureio.Load(path, textureio.Options{FlipVertical: rp.config.FlipTextures})
	if err != nil {
		kind := ErrorInvalidData
		if errors.Is(err, textureio.ErrUnsupportedFormat) {
			kind = ErrorUnsupportedFormat
		}
		return 0, &syncError{kind, err}
	}
	h := rp.engine.CreateRawTexture(img.Data, img.Extent(), img.Format, debugName+" texture")
	rp.textures.cache.Add(key, h)
	rp.metrics.texturesLoaded.Inc()
	return h, nil
}
