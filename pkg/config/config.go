// Package config defines the persisted menu settings for the pfod menu device.
// The struct is designed for zero-allocation binary serialization.
package config

import (
	"encoding/binary"
	"errors"
	"io"
)

// CurrentVersion is the settings format version.
// Bump this when making breaking changes to the settings layout.
// When firmware boots and finds a different version in flash, settings are wiped.
const CurrentVersion uint16 = 1

// SettingsSize is the encoded size of MenuSettings in bytes.
const SettingsSize = 24

// Default values used on first boot.
const (
	DefaultBackground  = 'w'
	DefaultMenuVersion = "V1"
)

// MenuSettings holds the menu screen settings sent to the client.
// Total size: 24 bytes
// Layout:
//
//	[0-1]:   Version (uint16)
//	[2-5]:   RefreshMs (uint32)
//	[6]:     Background (uint8, pfod colour code)
//	[7]:     Reserved (uint8)
//	[8-23]:  MenuVersion ([16]byte)
type MenuSettings struct {
	Version     uint16   // Settings format version
	RefreshMs   uint32   // Client re-request interval, 0 disables
	Background  uint8    // Background colour code, e.g. 'w' for white
	Reserved    uint8    // Padding
	MenuVersion [16]byte // Menu version string (null-terminated if shorter)
}

// Errors
var (
	ErrInvalidSize       = errors.New("invalid settings size")
	ErrInvalidVersion    = errors.New("invalid menu version")
	ErrInvalidBackground = errors.New("invalid background colour")
)

// DefaultSettings returns the settings written on first boot.
func DefaultSettings() MenuSettings {
	s := MenuSettings{
		Version:    CurrentVersion,
		Background: DefaultBackground,
	}
	s.SetMenuVersion(DefaultMenuVersion)
	return s
}

// Marshal writes the settings to w in binary format.
// Returns the number of bytes written.
func (s *MenuSettings) Marshal(w io.Writer) (int, error) {
	data, err := s.MarshalBinary()
	if err != nil {
		return 0, err
	}
	return w.Write(data)
}

// Unmarshal reads the settings from r in binary format.
func (s *MenuSettings) Unmarshal(r io.Reader) error {
	buf := make([]byte, SettingsSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	return s.UnmarshalBinary(buf)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s *MenuSettings) MarshalBinary() ([]byte, error) {
	buf := make([]byte, SettingsSize)
	binary.LittleEndian.PutUint16(buf[0:], s.Version)
	binary.LittleEndian.PutUint32(buf[2:], s.RefreshMs)
	buf[6] = s.Background
	buf[7] = s.Reserved
	copy(buf[8:], s.MenuVersion[:])
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *MenuSettings) UnmarshalBinary(data []byte) error {
	if len(data) != SettingsSize {
		return ErrInvalidSize
	}
	s.Version = binary.LittleEndian.Uint16(data[0:])
	s.RefreshMs = binary.LittleEndian.Uint32(data[2:])
	s.Background = data[6]
	s.Reserved = data[7]
	copy(s.MenuVersion[:], data[8:])
	return nil
}

// SetMenuVersion sets the menu version string, truncating to 15 bytes.
func (s *MenuSettings) SetMenuVersion(version string) {
	for i := range s.MenuVersion {
		s.MenuVersion[i] = 0
	}
	n := len(version)
	if n > len(s.MenuVersion)-1 {
		n = len(s.MenuVersion) - 1
	}
	copy(s.MenuVersion[:], version[:n])
}

// GetMenuVersion returns the menu version as a string.
func (s *MenuSettings) GetMenuVersion() string {
	for i, b := range s.MenuVersion {
		if b == 0 {
			return string(s.MenuVersion[:i])
		}
	}
	return string(s.MenuVersion[:])
}

// BackgroundColour returns the background colour code as a string.
func (s *MenuSettings) BackgroundColour() string {
	if s.Background == 0 {
		return string(rune(DefaultBackground))
	}
	return string(rune(s.Background))
}

// Validate checks that the settings can be sent on the wire.
// The menu version must not contain pfod delimiters, since clients echo it
// back as the prefix of refresh requests.
func (s *MenuSettings) Validate() error {
	for _, c := range []byte(s.GetMenuVersion()) {
		switch c {
		case '{', '}', ':', '~', '`', '|':
			return ErrInvalidVersion
		}
		if c < 0x20 || c > 0x7e {
			return ErrInvalidVersion
		}
	}
	switch s.Background {
	case '{', '}', '<', '>', '~', '`', '|':
		return ErrInvalidBackground
	}
	return nil
}
