package hd

// Format is the pixel format of a render buffer.
type Format int

const (
	FormatInvalid Format = iota
	FormatUNorm8Vec4
	FormatFloat16Vec4
	FormatFloat32
	FormatFloat32Vec3
	FormatFloat32Vec4
)

// DataSizeOfFormat returns the byte size of one pixel in the given format.
func DataSizeOfFormat(f Format) int {
	switch f {
	case FormatUNorm8Vec4:
		return 4
	case FormatFloat16Vec4:
		return 8
	case FormatFloat32:
		return 4
	case FormatFloat32Vec3:
		return 12
	case FormatFloat32Vec4:
		return 16
	default:
		return 0
	}
}

// AovDescriptor describes the buffer an AOV should be rendered into.
type AovDescriptor struct {
	Format       Format
	MultiSampled bool
	ClearValue   any
}

// AovBinding binds a named AOV to a render buffer for one render pass.
type AovBinding struct {
	AovName        Token
	RenderBuffer   RenderBuffer
	RenderBufferID Path
	ClearValue     any
}

// RenderPassState carries the per-pass camera and AOV bindings.
type RenderPassState interface {
	GetCamera() Sprim
	GetAovBindings() []AovBinding
}

// RprimCollection names the set of rprims a render pass draws.
type RprimCollection struct {
	Name     Token
	ReprName Token
	RootPath Path
}

// RenderPass draws a collection once per frame.
type RenderPass interface {
	Execute(state RenderPassState, renderTags []Token)
	IsConverged() bool
}

// CommandDescriptor names an operator-invokable delegate action.
type CommandDescriptor struct {
	Name        Token
	Description string
}

// RenderDelegate is the factory and composition root the host talks to.
type RenderDelegate interface {
	GetSupportedRprimTypes() []Token
	GetSupportedSprimTypes() []Token
	GetSupportedBprimTypes() []Token

	GetRenderParam() RenderParam

	CreateRenderPass(index RenderIndex, collection RprimCollection) RenderPass

	CreateInstancer(sd SceneDelegate, id Path) Instancer
	DestroyInstancer(instancer Instancer)

	CreateRprim(typeID Token, id Path) Rprim
	DestroyRprim(rprim Rprim)

	CreateSprim(typeID Token, id Path) Sprim
	CreateFallbackSprim(typeID Token) Sprim
	DestroySprim(sprim Sprim)

	CreateBprim(typeID Token, id Path) Bprim
	CreateFallbackBprim(typeID Token) Bprim
	DestroyBprim(bprim Bprim)

	CommitResources(tracker ChangeTracker)

	GetDefaultAovDescriptor(name Token) AovDescriptor

	GetCommandDescriptors() []CommandDescriptor
	InvokeCommand(name Token, args map[Token]any) bool
}
