// Package device defines the PCM device handle owned by a stream route.
package device

import (
	"sync"

	"github.com/tphakala/routemgr/internal/audio"
	"github.com/tphakala/routemgr/internal/errors"
)

// ComponentDevice identifies device errors
const ComponentDevice = "device"

var (
	// ErrAlreadyOpen is returned by Open on an open device
	ErrAlreadyOpen = errors.New(errors.NewStd("device already open")).
		Component(ComponentDevice).
		Category(errors.CategoryState).
		Build()

	// ErrInvalidSpec is returned by Open for a spec the device cannot run
	ErrInvalidSpec = errors.New(errors.NewStd("invalid sample spec")).
		Component(ComponentDevice).
		Category(errors.CategoryValidation).
		Build()
)

// Device is a PCM device. The route opens it when it becomes used and closes
// it when it is disabled or repathed; streams only borrow it.
type Device interface {
	Open(spec audio.SampleSpec) error
	Close() error
	IsOpen() bool
	Name() string
}

// Memory is a Device without hardware. It records its open and close calls,
// which is what dry runs and tests need.
type Memory struct {
	name string

	mu      sync.Mutex
	open    bool
	spec    audio.SampleSpec
	opens   int
	closes  int
	openErr error
}

// NewMemory returns a closed in-memory device.
func NewMemory(name string) *Memory {
	return &Memory{name: name}
}

// Name returns the device name
func (m *Memory) Name() string { return m.name }

// Open marks the device open with spec.
func (m *Memory) Open(spec audio.SampleSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.openErr != nil {
		return m.openErr
	}
	if m.open {
		return errors.New(ErrAlreadyOpen).
			Component(ComponentDevice).
			Category(errors.CategoryState).
			Context("device", m.name).
			Build()
	}
	if !spec.IsValid() {
		return errors.New(ErrInvalidSpec).
			Component(ComponentDevice).
			Category(errors.CategoryValidation).
			Context("device", m.name).
			Context("spec", spec.String()).
			Build()
	}
	m.open = true
	m.spec = spec
	m.opens++
	return nil
}

// Close marks the device closed. Closing a closed device is a no-op.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return nil
	}
	m.open = false
	m.closes++
	return nil
}

// IsOpen reports whether the device is open
func (m *Memory) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Spec returns the spec of the last successful Open.
func (m *Memory) Spec() audio.SampleSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spec
}

// Counts returns how many times the device was opened and closed.
func (m *Memory) Counts() (opens, closes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens, m.closes
}

// FailOpen makes every following Open return err. A nil err clears it.
func (m *Memory) FailOpen(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = err
}
