package nxt

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// SwapChainContext is handed to a SwapChainImplementation by Init.
type SwapChainContext struct {
	Device hal.Device
	Queue  hal.Queue

	// AddWaitFence makes the next submission wait on f. The fence is
	// destroyed once that submission completes.
	AddWaitFence func(f hal.Fence)
}

// NextTexture is an image acquired by a SwapChainImplementation.
type NextTexture struct {
	Texture hal.Texture
}

// SwapChainImplementation is provided by window-system bindings to back a
// SwapChain with presentable images.
type SwapChainImplementation interface {
	Init(ctx SwapChainContext)
	Destroy()
	Configure(format gputypes.TextureFormat, usage gputypes.TextureUsage, width, height uint32) error
	GetNextTexture() (NextTexture, error)
	Present() error
}

// SwapChain hands out presentable textures. A device has at most one.
type SwapChain struct {
	object
	impl SwapChainImplementation

	format        gputypes.TextureFormat
	allowedUsage  gputypes.TextureUsage
	width, height uint32
	configured    bool

	// last is the texture returned by the latest GetNextTexture
	last *Texture
}

// Configure sets the format, allowed usage and size of the images.
func (sc *SwapChain) Configure(format gputypes.TextureFormat, allowedUsage gputypes.TextureUsage, width, height uint32) {
	sc.device.procs.SwapChainConfigure(sc, format, allowedUsage, width, height)
}

// GetNextTexture acquires the next image. The texture starts in the
// RenderAttachment usage.
func (sc *SwapChain) GetNextTexture() *Texture {
	return sc.device.procs.SwapChainGetNextTexture(sc)
}

// Present submits pending work and presents texture, which must be the
// last acquired texture in the RenderAttachment usage.
func (sc *SwapChain) Present(texture *Texture) {
	sc.device.procs.SwapChainPresent(sc, texture)
}

func (sc *SwapChain) configure(format gputypes.TextureFormat, allowedUsage gputypes.TextureUsage, width, height uint32) {
	d := sc.device
	switch {
	case width == 0 || height == 0:
		d.handleError(validationError("Swap chain cannot be configured to zero size"))
		return
	case bytesPerTexel(format) == 0 || format.IsDepthStencil():
		d.handleError(validationError("Swap chain format is not presentable"))
		return
	case !allowedUsage.Contains(gputypes.TextureUsageRenderAttachment):
		d.handleError(validationError("Swap chain allowed usage needs the RenderAttachment bit"))
		return
	}
	if err := sc.impl.Configure(format, allowedUsage, width, height); err != nil {
		d.handleError(fmt.Errorf("%w: configure: %w", ErrSwapChain, err))
		return
	}
	sc.format, sc.allowedUsage = format, allowedUsage
	sc.width, sc.height = width, height
	sc.configured = true
}

func (sc *SwapChain) getNextTexture() *Texture {
	d := sc.device
	if !sc.configured {
		d.handleError(validationError("Swap chain needs to be configured before GetNextTexture"))
		return nil
	}
	next, err := sc.impl.GetNextTexture()
	if err != nil {
		d.handleError(fmt.Errorf("%w: next texture: %w", ErrSwapChain, err))
		return nil
	}
	t := &Texture{
		hal:          next.Texture,
		label:        "swap chain",
		dimension:    gputypes.TextureDimension2D,
		format:       sc.format,
		width:        sc.width,
		height:       sc.height,
		depth:        1,
		mipLevels:    1,
		sampleCount:  1,
		allowedUsage: sc.allowedUsage,
		usage:        gputypes.TextureUsageRenderAttachment,
		owner:        sc,
	}
	t.init(d, "Texture", t.destroyImpl)
	sc.last = t
	return t
}

func (sc *SwapChain) present(texture *Texture) {
	d := sc.device
	switch {
	case texture != sc.last:
		d.handleError(validationError("Tried to present something other than the last NextTexture"))
		return
	case texture.usage != gputypes.TextureUsageRenderAttachment:
		d.handleError(validationError("Texture has to be in the RenderAttachment usage to be presented"))
		return
	}
	if d.consumedError(d.engine.SubmitPendingCommands()) {
		return
	}
	sc.last = nil
	if err := sc.impl.Present(); err != nil {
		d.handleError(fmt.Errorf("%w: present: %w", ErrSwapChain, err))
	}
}

// destroyImpl is skipped when device shutdown already destroyed the
// implementation.
func (sc *SwapChain) destroyImpl() {
	if sc.device.swapChain == sc {
		sc.impl.Destroy()
		sc.device.swapChain = nil
	}
}

// SwapChainBuilder configures a SwapChain. The implementation is required.
type SwapChainBuilder struct {
	builder
	impl SwapChainImplementation
}

// CreateSwapChainBuilder starts the device's swap chain.
func (d *Device) CreateSwapChainBuilder() *SwapChainBuilder {
	b := &SwapChainBuilder{}
	b.init(d)
	return b
}

// SetResultCallback sets the callback invoked by GetResult.
func (b *SwapChainBuilder) SetResultCallback(fn BuilderCallback) *SwapChainBuilder {
	b.callback = fn
	return b
}

// SetImplementation sets the window-system implementation.
func (b *SwapChainBuilder) SetImplementation(impl SwapChainImplementation) *SwapChainBuilder {
	b.device.procs.SwapChainBuilderSetImplementation(b, impl)
	return b
}

// GetResult creates the swap chain, or returns nil and reports the error.
func (b *SwapChainBuilder) GetResult() *SwapChain {
	return b.device.procs.SwapChainBuilderGetResult(b)
}

func (b *SwapChainBuilder) setImplementation(impl SwapChainImplementation) {
	if !b.usable() {
		return
	}
	if b.impl != nil {
		b.fail(validationError("Implementation property set multiple times"))
		return
	}
	b.impl = impl
}

func (b *SwapChainBuilder) getResult() *SwapChain {
	return result(&b.builder, func() (*SwapChain, error) {
		d := b.device
		switch {
		case b.impl == nil:
			return nil, validationError("Implementation not set")
		case d.swapChain != nil:
			return nil, validationError("The device already has a swap chain")
		}
		b.impl.Init(SwapChainContext{
			Device:       d.engine.Device(),
			Queue:        d.engine.Queue(),
			AddWaitFence: d.engine.AddWaitFence,
		})
		sc := &SwapChain{impl: b.impl}
		sc.init(d, "SwapChain", sc.destroyImpl)
		d.swapChain = sc
		return sc, nil
	})
}

// surfaceImplementation presents through a HAL surface.
type surfaceImplementation struct {
	surface     hal.Surface
	presentMode gputypes.PresentMode
	ctx         SwapChainContext
	current     hal.SurfaceTexture
}

// NewSurfaceImplementation returns a SwapChainImplementation presenting to
// surface. Each acquire signals a new fence that the next submission waits
// on.
func NewSurfaceImplementation(surface hal.Surface, presentMode gputypes.PresentMode) SwapChainImplementation {
	return &surfaceImplementation{surface: surface, presentMode: presentMode}
}

func (s *surfaceImplementation) Init(ctx SwapChainContext) {
	s.ctx = ctx
}

func (s *surfaceImplementation) Destroy() {
	if s.current != nil {
		s.surface.DiscardTexture(s.current)
		s.current = nil
	}
	if s.ctx.Device != nil {
		s.surface.Unconfigure(s.ctx.Device)
	}
}

func (s *surfaceImplementation) Configure(format gputypes.TextureFormat, usage gputypes.TextureUsage, width, height uint32) error {
	return s.surface.Configure(s.ctx.Device, &hal.SurfaceConfiguration{
		Width:       width,
		Height:      height,
		Format:      format,
		Usage:       usage,
		PresentMode: s.presentMode,
		AlphaMode:   gputypes.CompositeAlphaModeOpaque,
	})
}

func (s *surfaceImplementation) GetNextTexture() (NextTexture, error) {
	if s.current != nil {
		s.surface.DiscardTexture(s.current)
		s.current = nil
	}
	fence, err := s.ctx.Device.CreateFence()
	if err != nil {
		return NextTexture{}, fmt.Errorf("create acquire fence: %w", err)
	}
	acquired, err := s.surface.AcquireTexture(fence)
	if err != nil {
		s.ctx.Device.DestroyFence(fence)
		return NextTexture{}, err
	}
	s.ctx.AddWaitFence(fence)
	if acquired.Suboptimal {
		Logger().Info("nxt: surface texture is suboptimal")
	}
	s.current = acquired.Texture
	return NextTexture{Texture: acquired.Texture}, nil
}

func (s *surfaceImplementation) Present() error {
	if s.current == nil {
		return errors.New("no acquired texture")
	}
	err := s.ctx.Queue.Present(s.surface, s.current, nil)
	s.current = nil
	return err
}
