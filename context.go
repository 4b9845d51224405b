package vtsmap

import (
	"fmt"
	"sync"
)

// Context is the explicitly constructed state shared by every component of a
// runtime: configuration, logger, the host device, the entity world and the
// deferred-destroy queue fed by the engine's data thread.
type Context struct {
	Config Config
	Device Device
	World  *World

	logMu  sync.RWMutex
	logger Logger

	destroyMu sync.Mutex
	toDestroy []GPUHandle
}

func NewContext(cfg Config, device Device, logger Logger) *Context {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Context{
		Config: cfg,
		Device: device,
		World:  NewWorld(),
		logger: logger,
	}
}

// Logger never returns nil.
func (c *Context) Logger() Logger {
	if c == nil {
		return NewNopLogger()
	}
	c.logMu.RLock()
	defer c.logMu.RUnlock()
	if c.logger == nil {
		return NewNopLogger()
	}
	return c.logger
}

func (c *Context) SetLogger(l Logger) {
	c.logMu.Lock()
	c.logger = l
	c.logMu.Unlock()
}

// DeferDestroy queues a GPU object for destruction on the next render tick.
// Safe to call from any goroutine.
func (c *Context) DeferDestroy(h GPUHandle) {
	if h == nil {
		return
	}
	c.destroyMu.Lock()
	c.toDestroy = append(c.toDestroy, h)
	c.destroyMu.Unlock()
}

// PendingDestroys reports the queue length.
func (c *Context) PendingDestroys() int {
	c.destroyMu.Lock()
	defer c.destroyMu.Unlock()
	return len(c.toDestroy)
}

// DrainDestroyQueue destroys every queued object through the device.
// Render thread only.
func (c *Context) DrainDestroyQueue() int {
	c.destroyMu.Lock()
	pending := c.toDestroy
	c.toDestroy = nil
	c.destroyMu.Unlock()

	if c.Device != nil {
		for _, h := range pending {
			c.Device.Destroy(h)
		}
	}
	return len(pending)
}

// Assert reports an invariant violation. In debug builds it panics,
// otherwise it only logs and the caller carries on with a no-op.
func (c *Context) Assert(cond bool, format string, args ...any) bool {
	if cond {
		return true
	}
	msg := fmt.Sprintf(format, args...)
	c.Logger().Errorf("invariant violated: %s", msg)
	if c.Config.Debug {
		panic(msg)
	}
	return false
}
