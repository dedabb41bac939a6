// Package storage provides persistent menu settings storage using LittleFS.
// It handles atomic writes, version checking, and cleanup of temporary files.
package storage

import (
	"errors"
	"io"
	"os"
	"path"
	"strings"

	"github.com/tuffrabit/tinygo-pfod-menu/pkg/config"

	"tinygo.org/x/tinyfs"
	"tinygo.org/x/tinyfs/littlefs"
)

const (
	configDir    = "/config"
	settingsFile = "/config/menu.bin"
	tempSuffix   = ".tmp"
)

var (
	ErrSettingsNotFound = errors.New("settings not found")
	ErrInvalidSettings  = errors.New("invalid settings data")
)

// Manager handles settings persistence using LittleFS.
type Manager struct {
	fs       *littlefs.LFS
	blockDev tinyfs.BlockDevice
	mounted  bool
}

// Stats provides information about storage usage.
type Stats struct {
	TotalSpace  int64
	UsedSpace   int64
	FreeSpace   int64
	HasSettings bool
}

// New initializes the storage system with the given block device.
// It mounts the filesystem and performs boot-time cleanup.
// If format is true and mount fails, it will format the filesystem.
func New(blockDev tinyfs.BlockDevice, format bool) (*Manager, error) {
	lfs := littlefs.New(blockDev)

	// Conservative settings for RP2040 flash
	lfs.Configure(&littlefs.Config{
		CacheSize:     512,
		LookaheadSize: 128,
	})

	err := lfs.Mount()
	if err != nil {
		if !format {
			return nil, err
		}
		if err := lfs.Format(); err != nil {
			return nil, err
		}
		if err := lfs.Mount(); err != nil {
			return nil, err
		}
	}

	m := &Manager{
		fs:       lfs,
		blockDev: blockDev,
		mounted:  true,
	}

	// Leftover temp files are harmless; keep booting if cleanup fails.
	_ = m.bootCleanup()

	needsWipe, err := m.checkVersion()
	if err != nil {
		// Unreadable settings are treated like a first boot
		needsWipe = false
	}

	if needsWipe {
		// Layout changed in a firmware update; defaults are written on next load
		if err := m.wipeAll(); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Close unmounts the filesystem.
func (m *Manager) Close() error {
	if m.mounted {
		m.mounted = false
		return m.fs.Unmount()
	}
	return nil
}

// bootCleanup removes temporary files left over from interrupted writes.
func (m *Manager) bootCleanup() error {
	entries, err := m.readDir(configDir)
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, tempSuffix) {
			m.fs.Remove(path.Join(configDir, name))
		}
	}

	return nil
}

// readDir reads the directory entries at the given path.
func (m *Manager) readDir(dirPath string) ([]os.FileInfo, error) {
	f, err := m.fs.Open(dirPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !f.IsDir() {
		return nil, errors.New("not a directory")
	}

	return f.Readdir(-1)
}

// checkVersion reads stored settings and reports whether they must be wiped.
func (m *Manager) checkVersion() (bool, error) {
	var settings config.MenuSettings
	if err := m.LoadSettings(&settings); err != nil {
		if err == ErrSettingsNotFound {
			return false, nil
		}
		return false, err
	}

	return settings.Version != config.CurrentVersion, nil
}

// wipeAll removes all settings files.
func (m *Manager) wipeAll() error {
	// A missing file is already wiped
	m.fs.Remove(settingsFile)
	return nil
}

// ensureDirs creates the config directory if it doesn't exist.
func (m *Manager) ensureDirs() error {
	if err := m.fs.Mkdir(configDir, 0755); err != nil && !isExist(err) {
		return err
	}
	return nil
}

// isExist checks if an error is "already exists".
// LittleFS errors don't always match os.IsExist, so we check the message too.
func isExist(err error) bool {
	if err == nil {
		return false
	}
	if os.IsExist(err) {
		return true
	}
	return strings.Contains(err.Error(), "already exists")
}

// isNotExist is the "no such entry" counterpart of isExist.
func isNotExist(err error) bool {
	if err == nil {
		return false
	}
	if os.IsNotExist(err) {
		return true
	}
	return strings.Contains(err.Error(), "No directory entry")
}

// LoadSettings loads the menu settings.
func (m *Manager) LoadSettings(settings *config.MenuSettings) error {
	f, err := m.fs.Open(settingsFile)
	if err != nil {
		if isNotExist(err) {
			return ErrSettingsNotFound
		}
		return err
	}
	defer f.Close()

	if err := settings.Unmarshal(f); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrInvalidSettings
		}
		return err
	}
	return nil
}

// SaveSettings saves the menu settings atomically.
func (m *Manager) SaveSettings(settings *config.MenuSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := m.ensureDirs(); err != nil {
		return err
	}

	settings.Version = config.CurrentVersion

	return m.atomicWrite(settingsFile, settings)
}

// LoadOrDefault loads the stored settings, writing defaults on first boot.
func (m *Manager) LoadOrDefault() (config.MenuSettings, error) {
	var settings config.MenuSettings
	err := m.LoadSettings(&settings)
	if err == nil {
		return settings, nil
	}
	if err != ErrSettingsNotFound {
		return config.DefaultSettings(), err
	}

	settings = config.DefaultSettings()
	if err := m.SaveSettings(&settings); err != nil {
		return settings, err
	}
	return settings, nil
}

// SettingsExist checks if settings have been saved.
func (m *Manager) SettingsExist() bool {
	f, err := m.fs.Open(settingsFile)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// GetStats returns storage statistics.
func (m *Manager) GetStats() (*Stats, error) {
	hasSettings := m.SettingsExist()

	// LittleFS has no free-space call; estimate from what we store.
	// Settings: 24 bytes + ~32 bytes LittleFS overhead, plus directory entries
	used := int64(100)
	if hasSettings {
		used += 56
	}

	total := m.blockDev.Size()

	return &Stats{
		TotalSpace:  total,
		UsedSpace:   used,
		FreeSpace:   total - used,
		HasSettings: hasSettings,
	}, nil
}

// atomicWrite writes settings to a temporary file, syncs it, then renames.
// The file being replaced is never in a partially written state.
func (m *Manager) atomicWrite(filepath string, settings *config.MenuSettings) error {
	tempPath := filepath + tempSuffix

	m.fs.Remove(tempPath)

	f, err := m.fs.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return err
	}

	if _, err := settings.Marshal(f); err != nil {
		f.Close()
		m.fs.Remove(tempPath)
		return err
	}

	// Sync ensures data hits flash
	if syncer, ok := f.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			f.Close()
			m.fs.Remove(tempPath)
			return err
		}
	}

	if err := f.Close(); err != nil {
		m.fs.Remove(tempPath)
		return err
	}

	// LittleFS rename doesn't replace
	m.fs.Remove(filepath)

	if err := m.fs.Rename(tempPath, filepath); err != nil {
		m.fs.Remove(tempPath)
		return err
	}

	return nil
}
