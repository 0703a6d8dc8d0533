// Package audio holds the small value types shared by the routing engine and
// the streams: directions, sample formats, channel masks and device bitmasks.
package audio

import (
	"fmt"
	"strings"
)

// Direction identifies whether a route or stream carries playback or capture audio.
type Direction int

const (
	// Output is playback (host -> hardware)
	Output Direction = iota
	// Input is capture (hardware -> host)
	Input

	// NumDirections is the number of directions, used to size per-direction arrays
	NumDirections
)

// String returns the direction name used in logs and configuration
func (d Direction) String() string {
	switch d {
	case Output:
		return "output"
	case Input:
		return "input"
	default:
		return "unknown"
	}
}

// ParseDirection converts a configuration literal into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "output", "out", "playback":
		return Output, nil
	case "input", "in", "capture":
		return Input, nil
	default:
		return Output, fmt.Errorf("unknown direction %q", s)
	}
}

// Format is a PCM sample format.
type Format int

const (
	FormatInvalid Format = iota
	FormatPCM16
	FormatPCM8_24 // 24 bit samples in a 32 bit container
	FormatPCM24Packed
	FormatPCM32
	FormatFloat32
)

var formatNames = map[Format]string{
	FormatInvalid:     "invalid",
	FormatPCM16:       "pcm16",
	FormatPCM8_24:     "pcm8_24",
	FormatPCM24Packed: "pcm24_packed",
	FormatPCM32:       "pcm32",
	FormatFloat32:     "float32",
}

// String returns the configuration literal of the format
func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "invalid"
}

// ParseFormat converts a configuration literal into a Format.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for f, name := range formatNames {
		if f != FormatInvalid && name == s {
			return f, nil
		}
	}
	return FormatInvalid, fmt.Errorf("unknown sample format %q", s)
}

// BytesPerSample returns the container size of one sample.
func (f Format) BytesPerSample() int {
	switch f {
	case FormatPCM16:
		return 2
	case FormatPCM24Packed:
		return 3
	case FormatPCM8_24, FormatPCM32, FormatFloat32:
		return 4
	default:
		return 0
	}
}

// ChannelMask describes the channel layout of a stream or a route.
type ChannelMask uint32

const (
	ChannelMono    ChannelMask = 0x1
	ChannelStereo  ChannelMask = 0x3
	Channel5Point1 ChannelMask = 0x3f
	Channel7Point1 ChannelMask = 0xff
	ChannelInvalid ChannelMask = 0
)

var channelNames = map[ChannelMask]string{
	ChannelMono:    "mono",
	ChannelStereo:  "stereo",
	Channel5Point1: "5.1",
	Channel7Point1: "7.1",
}

// Count returns the number of channels in the mask.
func (c ChannelMask) Count() int {
	n := 0
	for m := uint32(c); m != 0; m &= m - 1 {
		n++
	}
	return n
}

// String returns the configuration literal of the layout
func (c ChannelMask) String() string {
	if name, ok := channelNames[c]; ok {
		return name
	}
	return fmt.Sprintf("0x%x", uint32(c))
}

// ParseChannelMask converts a configuration literal into a ChannelMask.
func ParseChannelMask(s string) (ChannelMask, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, name := range channelNames {
		if name == s {
			return c, nil
		}
	}
	return ChannelInvalid, fmt.Errorf("unknown channel layout %q", s)
}

// Devices is a bitmask of logical devices (speaker, headset, ...) a stream targets.
type Devices uint32

// Intersects reports whether the two masks share at least one device.
func (d Devices) Intersects(other Devices) bool {
	return d&other != 0
}

// SampleSpec is the negotiated PCM configuration of a stream or route.
type SampleSpec struct {
	Rate     uint32
	Format   Format
	Channels ChannelMask
}

// FrameSize returns the size in bytes of one frame.
func (s SampleSpec) FrameSize() int {
	return s.Format.BytesPerSample() * s.Channels.Count()
}

// BytesPerMs returns the number of bytes one millisecond of audio occupies.
func (s SampleSpec) BytesPerMs() int {
	return s.FrameSize() * int(s.Rate) / 1000
}

// IsValid reports whether every field of the spec is set.
func (s SampleSpec) IsValid() bool {
	return s.Rate > 0 && s.Format != FormatInvalid && s.Channels != ChannelInvalid
}

// Equal compares two specs field by field.
func (s SampleSpec) Equal(other SampleSpec) bool {
	return s == other
}

// String renders the spec as rate/format/channels
func (s SampleSpec) String() string {
	return fmt.Sprintf("%dHz/%s/%s", s.Rate, s.Format, s.Channels)
}
