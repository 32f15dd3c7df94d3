//go:build moonshine && cgo

package moonshine

/*
#cgo LDFLAGS: -lHdMoonshine
#include <stdlib.h>
#include "moonshine.h"
*/
import "C"

import (
	"errors"
	"sync"
	"unsafe"
)

// cEngine drives a native moonshine instance through its C ABI. The Go
// structs in this package share their layout with the C ones, so slices are
// passed by pointer without conversion.
type cEngine struct {
	ptr *C.HdMoonshine

	mu      sync.Mutex
	extents map[SensorHandle]Extent2D
}

var _ Engine = (*cEngine)(nil)

// Open creates a native moonshine instance.
func Open() (Engine, error) {
	ptr := C.HdMoonshineCreate()
	if ptr == nil {
		return nil, errors.New("moonshine: HdMoonshineCreate returned null")
	}
	return &cEngine{ptr: ptr, extents: make(map[SensorHandle]Extent2D)}, nil
}

func f32x2(v F32x2) C.F32x2 { return *(*C.F32x2)(unsafe.Pointer(&v)) }
func f32x3(v F32x3) C.F32x3 { return *(*C.F32x3)(unsafe.Pointer(&v)) }
func mat3x4(m Mat3x4) C.Mat3x4 { return *(*C.Mat3x4)(unsafe.Pointer(&m)) }
func extent2D(e Extent2D) C.Extent2D { return *(*C.Extent2D)(unsafe.Pointer(&e)) }
func lensC(l Lens) C.Lens { return *(*C.Lens)(unsafe.Pointer(&l)) }
func materialC(m Material) C.Material { return *(*C.Material)(unsafe.Pointer(&m)) }

func withCString[T any](s string, fn func(*C.char) T) T {
	cs := C.CString(s)
	defer C.free(unsafe.Pointer(cs))
	return fn(cs)
}

func (e *cEngine) CreateMesh(positions []F32x3, normals []F32x3, texcoords []F32x2, indices []U32x3) MeshHandle {
	return MeshHandle(C.HdMoonshineCreateMesh(e.ptr,
		(*C.F32x3)(unsafe.Pointer(unsafe.SliceData(positions))),
		(*C.F32x3)(unsafe.Pointer(unsafe.SliceData(normals))),
		(*C.F32x2)(unsafe.Pointer(unsafe.SliceData(texcoords))),
		C.size_t(len(positions)),
		(*C.U32x3)(unsafe.Pointer(unsafe.SliceData(indices))),
		C.size_t(len(indices)),
	))
}

func (e *cEngine) DestroyMesh(mesh MeshHandle) {
	C.HdMoonshineDestroyMesh(e.ptr, C.MeshHandle(mesh))
}

func (e *cEngine) CreateSolidTexture1(value float32, debugName string) ImageHandle {
	return withCString(debugName, func(name *C.char) ImageHandle {
		return ImageHandle(C.HdMoonshineCreateSolidTexture1(e.ptr, C.float(value), name))
	})
}

func (e *cEngine) CreateSolidTexture2(value F32x2, debugName string) ImageHandle {
	return withCString(debugName, func(name *C.char) ImageHandle {
		return ImageHandle(C.HdMoonshineCreateSolidTexture2(e.ptr, f32x2(value), name))
	})
}

func (e *cEngine) CreateSolidTexture3(value F32x3, debugName string) ImageHandle {
	return withCString(debugName, func(name *C.char) ImageHandle {
		return ImageHandle(C.HdMoonshineCreateSolidTexture3(e.ptr, f32x3(value), name))
	})
}

func (e *cEngine) CreateRawTexture(data []byte, extent Extent2D, format TextureFormat, debugName string) ImageHandle {
	return withCString(debugName, func(name *C.char) ImageHandle {
		return ImageHandle(C.HdMoonshineCreateRawTexture(e.ptr,
			(*C.uint8_t)(unsafe.Pointer(unsafe.SliceData(data))),
			extent2D(extent),
			C.TextureFormat(format),
			name,
		))
	})
}

func (e *cEngine) CreateMaterial(material Material) MaterialHandle {
	return MaterialHandle(C.HdMoonshineCreateMaterial(e.ptr, materialC(material)))
}

func (e *cEngine) CreateMaterialLambert(normal, emissive, color ImageHandle) MaterialHandle {
	return MaterialHandle(C.HdMoonshineCreateMaterialLambert(e.ptr, C.ImageHandle(normal), C.ImageHandle(emissive), C.ImageHandle(color)))
}

func (e *cEngine) SetMaterialNormal(material MaterialHandle, image ImageHandle) {
	C.HdMoonshineSetMaterialNormal(e.ptr, C.MaterialHandle(material), C.ImageHandle(image))
}

func (e *cEngine) SetMaterialEmissive(material MaterialHandle, image ImageHandle) {
	C.HdMoonshineSetMaterialEmissive(e.ptr, C.MaterialHandle(material), C.ImageHandle(image))
}

func (e *cEngine) SetMaterialColor(material MaterialHandle, image ImageHandle) {
	C.HdMoonshineSetMaterialColor(e.ptr, C.MaterialHandle(material), C.ImageHandle(image))
}

func (e *cEngine) SetMaterialMetalness(material MaterialHandle, image ImageHandle) {
	C.HdMoonshineSetMaterialMetalness(e.ptr, C.MaterialHandle(material), C.ImageHandle(image))
}

func (e *cEngine) SetMaterialRoughness(material MaterialHandle, image ImageHandle) {
	C.HdMoonshineSetMaterialRoughness(e.ptr, C.MaterialHandle(material), C.ImageHandle(image))
}

func (e *cEngine) SetMaterialIOR(material MaterialHandle, ior float32) {
	C.HdMoonshineSetMaterialIOR(e.ptr, C.MaterialHandle(material), C.float(ior))
}

func (e *cEngine) CreateInstance(transform Mat3x4, geometries []Geometry) InstanceHandle {
	return InstanceHandle(C.HdMoonshineCreateInstance(e.ptr,
		mat3x4(transform),
		(*C.Geometry)(unsafe.Pointer(unsafe.SliceData(geometries))),
		C.size_t(len(geometries)),
	))
}

func (e *cEngine) SetInstanceTransform(instance InstanceHandle, transform Mat3x4) {
	C.HdMoonshineSetInstanceTransform(e.ptr, C.InstanceHandle(instance), mat3x4(transform))
}

func (e *cEngine) SetInstanceVisibility(instance InstanceHandle, visible bool) {
	C.HdMoonshineSetInstanceVisibility(e.ptr, C.InstanceHandle(instance), C.bool(visible))
}

func (e *cEngine) DestroyInstance(instance InstanceHandle) {
	C.HdMoonshineDestroyInstance(e.ptr, C.InstanceHandle(instance))
}

func (e *cEngine) CreateSensor(extent Extent2D) SensorHandle {
	h := SensorHandle(C.HdMoonshineCreateSensor(e.ptr, extent2D(extent)))
	e.mu.Lock()
	e.extents[h] = extent
	e.mu.Unlock()
	return h
}

// GetSensorData wraps the engine-owned sensor memory without copying it.
func (e *cEngine) GetSensorData(sensor SensorHandle) []float32 {
	e.mu.Lock()
	extent, ok := e.extents[sensor]
	e.mu.Unlock()
	if !ok {
		return nil
	}
	ptr := C.HdMoonshineGetSensorData(e.ptr, C.SensorHandle(sensor))
	if ptr == nil {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(ptr)), int(extent.Width)*int(extent.Height)*4)
}

func (e *cEngine) DestroySensor(sensor SensorHandle) {
	e.mu.Lock()
	delete(e.extents, sensor)
	e.mu.Unlock()
	C.HdMoonshineDestroySensor(e.ptr, C.SensorHandle(sensor))
}

func (e *cEngine) CreateLens(lens Lens) LensHandle {
	return LensHandle(C.HdMoonshineCreateLens(e.ptr, lensC(lens)))
}

func (e *cEngine) SetLens(handle LensHandle, lens Lens) {
	C.HdMoonshineSetLens(e.ptr, C.LensHandle(handle), lensC(lens))
}

func (e *cEngine) DestroyLens(handle LensHandle) {
	C.HdMoonshineDestroyLens(e.ptr, C.LensHandle(handle))
}

func (e *cEngine) Render(sensor SensorHandle, lens LensHandle) bool {
	return bool(C.HdMoonshineRender(e.ptr, C.SensorHandle(sensor), C.LensHandle(lens)))
}

func (e *cEngine) RebuildPipeline() bool {
	return bool(C.HdMoonshineRebuildPipeline(e.ptr))
}

func (e *cEngine) Destroy() {
	C.HdMoonshineDestroy(e.ptr)
	e.ptr = nil
}
