package hdhost

import (
	"testing"

	"github.com/gekko3d/hdmoonshine/hd"
	"github.com/stretchr/testify/assert"
)

func TestChangeTracker_MarkOnlyTrackedPrims(t *testing.T) {
	tr := NewChangeTracker()

	tr.MarkRprimDirty("/ghost", hd.DirtyPoints)
	assert.Equal(t, hd.Clean, tr.GetRprimDirtyBits("/ghost"))

	tr.MarkRprimClean("/mesh", hd.Clean)
	tr.MarkRprimDirty("/mesh", hd.DirtyPoints)
	tr.MarkRprimDirty("/mesh", hd.DirtyTransform)
	assert.Equal(t, hd.DirtyPoints|hd.DirtyTransform, tr.GetRprimDirtyBits("/mesh"))

	tr.MarkRprimClean("/mesh", hd.DirtyWidths)
	assert.Equal(t, hd.DirtyWidths, tr.GetRprimDirtyBits("/mesh"))
}

func TestChangeTracker_KindsAreIndependent(t *testing.T) {
	tr := NewChangeTracker()
	tr.MarkRprimClean("/x", hd.Clean)
	tr.MarkSprimClean("/x", hd.Clean)
	tr.MarkBprimClean("/x", hd.Clean)
	tr.MarkInstancerClean("/x", hd.Clean)

	tr.MarkSprimDirty("/x", hd.CameraDirtyParams)
	tr.MarkInstancerDirty("/x", hd.InstancerDirtyPrimvar)

	assert.Equal(t, hd.Clean, tr.GetRprimDirtyBits("/x"))
	assert.Equal(t, hd.CameraDirtyParams, tr.GetSprimDirtyBits("/x"))
	assert.Equal(t, hd.Clean, tr.GetBprimDirtyBits("/x"))
	assert.Equal(t, hd.InstancerDirtyPrimvar, tr.GetInstancerDirtyBits("/x"))
}

func TestChangeTracker_RemoveStopsTracking(t *testing.T) {
	tr := NewChangeTracker()
	tr.MarkBprimClean("/buf", hd.RenderBufferAllDirty)
	tr.remove(tr.bprims, "/buf")

	tr.MarkBprimDirty("/buf", hd.RenderBufferDirtyDescription)
	assert.Equal(t, hd.Clean, tr.GetBprimDirtyBits("/buf"))
}
