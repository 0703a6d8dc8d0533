// Package malgo implements device.Device on top of miniaudio through malgo.
package malgo

import (
	"runtime"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/tphakala/routemgr/internal/audio"
	"github.com/tphakala/routemgr/internal/device"
	"github.com/tphakala/routemgr/internal/errors"
)

// Config describes which hardware device to open.
type Config struct {
	// DeviceName selects a device by substring of its name. Empty selects the
	// backend default.
	DeviceName  string
	Direction   audio.Direction
	PeriodSize  uint32 // frames per period, 0 for the backend default
	PeriodCount uint32
}

// DataFunc fills (playback) or consumes (capture) one period of samples.
type DataFunc func(samples []byte, frames uint32)

// Device is a malgo backed PCM device.
type Device struct {
	name   string
	config Config

	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	data   DataFunc
}

var _ device.Device = (*Device)(nil)

// New returns a closed device. data may be nil, in which case playback
// renders silence and capture discards its input.
func New(name string, config Config, data DataFunc) *Device {
	return &Device{name: name, config: config, data: data}
}

// Name returns the device name
func (d *Device) Name() string { return d.name }

// IsOpen reports whether the device is started
func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.device != nil
}

// getBackendForPlatform returns the malgo backend for the current platform
func getBackendForPlatform() malgo.Backend {
	switch runtime.GOOS {
	case "linux":
		return malgo.BackendAlsa
	case "windows":
		return malgo.BackendWasapi
	case "darwin":
		return malgo.BackendCoreaudio
	default:
		return malgo.BackendNull
	}
}

func formatType(f audio.Format) (malgo.FormatType, bool) {
	switch f {
	case audio.FormatPCM16:
		return malgo.FormatS16, true
	case audio.FormatPCM24Packed:
		return malgo.FormatS24, true
	case audio.FormatPCM32, audio.FormatPCM8_24:
		return malgo.FormatS32, true
	case audio.FormatFloat32:
		return malgo.FormatF32, true
	default:
		return malgo.FormatUnknown, false
	}
}

// Open initialises a malgo context and starts the device with spec.
func (d *Device) Open(spec audio.SampleSpec) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device != nil {
		return errors.New(device.ErrAlreadyOpen).
			Component(device.ComponentDevice).
			Category(errors.CategoryState).
			Context("device", d.name).
			Build()
	}

	format, ok := formatType(spec.Format)
	if !ok || !spec.IsValid() {
		return errors.New(device.ErrInvalidSpec).
			Component(device.ComponentDevice).
			Category(errors.CategoryValidation).
			Context("device", d.name).
			Context("spec", spec.String()).
			Build()
	}

	ctx, err := malgo.InitContext([]malgo.Backend{getBackendForPlatform()}, malgo.ContextConfig{}, nil)
	if err != nil {
		return errors.New(err).
			Component(device.ComponentDevice).
			Category(errors.CategoryDevice).
			Context("device", d.name).
			Context("backend", runtime.GOOS).
			Context("operation", "init_context").
			Build()
	}

	deviceType := malgo.Playback
	if d.config.Direction == audio.Input {
		deviceType = malgo.Capture
	}

	deviceConfig := malgo.DefaultDeviceConfig(deviceType)
	deviceConfig.SampleRate = spec.Rate
	deviceConfig.PeriodSizeInFrames = d.config.PeriodSize
	deviceConfig.Periods = d.config.PeriodCount
	deviceConfig.Alsa.NoMMap = 1

	var deviceID *malgo.DeviceID
	if d.config.DeviceName != "" {
		deviceID, err = findDevice(ctx, deviceType, d.config.DeviceName)
		if err != nil {
			_ = ctx.Uninit()
			ctx.Free()
			return err
		}
	}

	if deviceType == malgo.Capture {
		deviceConfig.Capture.Format = format
		deviceConfig.Capture.Channels = uint32(spec.Channels.Count())
		if deviceID != nil {
			deviceConfig.Capture.DeviceID = deviceID.Pointer()
		}
	} else {
		deviceConfig.Playback.Format = format
		deviceConfig.Playback.Channels = uint32(spec.Channels.Count())
		if deviceID != nil {
			deviceConfig.Playback.DeviceID = deviceID.Pointer()
		}
	}

	callbacks := malgo.DeviceCallbacks{
		Data: d.onData,
	}

	dev, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return errors.New(err).
			Component(device.ComponentDevice).
			Category(errors.CategoryDevice).
			Context("device", d.name).
			Context("operation", "init_device").
			Build()
	}

	if err := dev.Start(); err != nil {
		dev.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return errors.New(err).
			Component(device.ComponentDevice).
			Category(errors.CategoryDevice).
			Context("device", d.name).
			Context("operation", "start_device").
			Build()
	}

	d.ctx = ctx
	d.device = dev
	return nil
}

// Close stops the device and releases the context. Closing a closed device is a no-op.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return nil
	}

	var stopErr error
	if err := d.device.Stop(); err != nil {
		stopErr = errors.New(err).
			Component(device.ComponentDevice).
			Category(errors.CategoryDevice).
			Context("device", d.name).
			Context("operation", "stop_device").
			Build()
	}
	d.device.Uninit()
	d.device = nil

	if d.ctx != nil {
		_ = d.ctx.Uninit()
		d.ctx.Free()
		d.ctx = nil
	}
	return stopErr
}

// onData is called by malgo on its own thread
func (d *Device) onData(output, input []byte, frames uint32) {
	if d.config.Direction == audio.Input {
		if d.data != nil {
			d.data(input, frames)
		}
		return
	}
	if d.data != nil {
		d.data(output, frames)
		return
	}
	clear(output)
}

// findDevice looks up a device whose name contains name
func findDevice(ctx *malgo.AllocatedContext, deviceType malgo.DeviceType, name string) (*malgo.DeviceID, error) {
	infos, err := ctx.Devices(deviceType)
	if err != nil {
		return nil, errors.New(err).
			Component(device.ComponentDevice).
			Category(errors.CategoryDevice).
			Context("operation", "enumerate_devices").
			Build()
	}

	for i := range infos {
		if strings.Contains(infos[i].Name(), name) {
			id := infos[i].ID
			return &id, nil
		}
	}

	return nil, errors.NotFound(device.ComponentDevice, "audio device", name)
}
