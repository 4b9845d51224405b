package vtsmap

import "fmt"

type RuntimeBuilder struct {
	engine  Engine
	device  Device
	cfg     Config
	logger  Logger
	modules []Module
}

func NewRuntimeBuilder(engine Engine, device Device) *RuntimeBuilder {
	return &RuntimeBuilder{
		engine: engine,
		device: device,
		cfg:    DefaultConfig(),
	}
}

func (b *RuntimeBuilder) UseConfig(cfg Config) *RuntimeBuilder {
	b.cfg = cfg
	return b
}

func (b *RuntimeBuilder) UseLogger(l Logger) *RuntimeBuilder {
	b.logger = l
	return b
}

// UseModule queues modules; they install in the order given. Install a
// ShiftingOriginModule before camera modules that should follow it.
func (b *RuntimeBuilder) UseModule(modules ...Module) *RuntimeBuilder {
	b.modules = append(b.modules, modules...)
	return b
}

func (b *RuntimeBuilder) Build() (*Runtime, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := applyMapConfig(b.engine, b.cfg.Map); err != nil {
		return nil, err
	}
	ctx := NewContext(b.cfg, b.device, b.logger)
	rt := newRuntime(ctx, b.engine)
	for _, m := range b.modules {
		m.Install(rt)
	}
	return rt, nil
}

// applyMapConfig points the engine at its map configuration. Create options
// are consumed when the engine is constructed, not here.
func applyMapConfig(engine Engine, m MapConfig) error {
	if m.ConfigURL != "" {
		if err := engine.SetMapconfigPath(m.ConfigURL, m.AuthURL); err != nil {
			return fmt.Errorf("map config %s: %w", m.ConfigURL, err)
		}
	}
	if m.RunOptions != "" {
		if err := engine.SetOptions(m.RunOptions); err != nil {
			return fmt.Errorf("map run options: %w", err)
		}
	}
	return nil
}
