package storage

import (
	"os"
	"testing"

	"github.com/tuffrabit/tinygo-pfod-menu/pkg/config"

	"tinygo.org/x/tinyfs"
)

func newTestStorage(t *testing.T) (*Manager, *tinyfs.MemBlockDevice) {
	// Memory-backed block device simulating RP2040 flash
	// 256 byte page size, 4096 byte block size, 64 blocks = 256KB
	blockDev := tinyfs.NewMemoryDevice(256, 4096, 64)

	mgr, err := New(blockDev, true)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	return mgr, blockDev
}

func TestSettingsSaveLoad(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	original := config.MenuSettings{
		RefreshMs:  2000,
		Background: 'b',
	}
	original.SetMenuVersion("V7")

	// Save
	if err := mgr.SaveSettings(&original); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	// Load
	var loaded config.MenuSettings
	if err := mgr.LoadSettings(&loaded); err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}

	// Verify version was set
	if loaded.Version != config.CurrentVersion {
		t.Errorf("Version not set: expected %d, got %d", config.CurrentVersion, loaded.Version)
	}

	// Verify other fields
	if loaded.RefreshMs != original.RefreshMs {
		t.Errorf("RefreshMs: expected %d, got %d", original.RefreshMs, loaded.RefreshMs)
	}
	if loaded.Background != original.Background {
		t.Errorf("Background: expected %c, got %c", original.Background, loaded.Background)
	}
	if loaded.GetMenuVersion() != "V7" {
		t.Errorf("MenuVersion: expected 'V7', got '%s'", loaded.GetMenuVersion())
	}
}

func TestSettingsNotFound(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	var settings config.MenuSettings
	err := mgr.LoadSettings(&settings)

	if err != ErrSettingsNotFound {
		t.Errorf("Expected ErrSettingsNotFound, got %v", err)
	}
	if mgr.SettingsExist() {
		t.Error("SettingsExist should be false on a fresh filesystem")
	}
}

func TestSaveRejectsInvalidSettings(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	settings := config.DefaultSettings()
	settings.SetMenuVersion("V:1")

	if err := mgr.SaveSettings(&settings); err != config.ErrInvalidVersion {
		t.Errorf("Expected ErrInvalidVersion, got %v", err)
	}
	if mgr.SettingsExist() {
		t.Error("Invalid settings should not be written")
	}
}

func TestLoadOrDefault(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	// First boot writes defaults
	settings, err := mgr.LoadOrDefault()
	if err != nil {
		t.Fatalf("LoadOrDefault failed: %v", err)
	}
	if settings.GetMenuVersion() != config.DefaultMenuVersion {
		t.Errorf("Expected default menu version, got '%s'", settings.GetMenuVersion())
	}
	if !mgr.SettingsExist() {
		t.Error("Defaults should have been persisted")
	}

	// Later boots return what was saved
	settings.RefreshMs = 500
	if err := mgr.SaveSettings(&settings); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	again, err := mgr.LoadOrDefault()
	if err != nil {
		t.Fatalf("LoadOrDefault failed: %v", err)
	}
	if again.RefreshMs != 500 {
		t.Errorf("Expected RefreshMs 500, got %d", again.RefreshMs)
	}
}

func TestAtomicWrite(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	first := config.DefaultSettings()
	first.SetMenuVersion("Original")
	mgr.SaveSettings(&first)

	// Save new version (should atomically replace)
	second := config.DefaultSettings()
	second.SetMenuVersion("Updated")
	second.RefreshMs = 42
	mgr.SaveSettings(&second)

	var loaded config.MenuSettings
	mgr.LoadSettings(&loaded)

	if loaded.GetMenuVersion() != "Updated" {
		t.Errorf("Expected 'Updated', got '%s'", loaded.GetMenuVersion())
	}
	if loaded.RefreshMs != 42 {
		t.Errorf("Expected RefreshMs 42, got %d", loaded.RefreshMs)
	}
}

func TestBootCleanupRemovesTempFiles(t *testing.T) {
	blockDev := tinyfs.NewMemoryDevice(256, 4096, 64)

	mgr, err := New(blockDev, true)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	settings := config.DefaultSettings()
	if err := mgr.SaveSettings(&settings); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	// Simulate a write interrupted before the rename
	data, _ := settings.MarshalBinary()
	f, err := mgr.fs.OpenFile(settingsFile+tempSuffix, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err == nil {
		f.Write(data)
		f.Close()
	}
	mgr.Close()

	mgr2, err := New(blockDev, false)
	if err != nil {
		t.Fatalf("Failed to reopen storage: %v", err)
	}
	defer mgr2.Close()

	entries, err := mgr2.readDir(configDir)
	if err != nil {
		t.Fatalf("readDir failed: %v", err)
	}
	for _, entry := range entries {
		if entry.Name() == "menu.bin"+tempSuffix {
			t.Error("Temp file should have been removed at boot")
		}
	}
	if !mgr2.SettingsExist() {
		t.Error("Settings should survive boot cleanup")
	}
}

func TestVersionMatchKeepsSettings(t *testing.T) {
	blockDev := tinyfs.NewMemoryDevice(256, 4096, 64)

	mgr, err := New(blockDev, true)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	settings := config.DefaultSettings()
	settings.SetMenuVersion("Keep")
	mgr.SaveSettings(&settings)
	mgr.Close()

	mgr2, err := New(blockDev, false)
	if err != nil {
		t.Fatalf("Failed to reopen storage: %v", err)
	}
	defer mgr2.Close()

	var loaded config.MenuSettings
	if err := mgr2.LoadSettings(&loaded); err != nil {
		t.Fatalf("Settings should exist: %v", err)
	}
	if loaded.GetMenuVersion() != "Keep" {
		t.Errorf("Expected 'Keep', got '%s'", loaded.GetMenuVersion())
	}
}

func TestVersionMismatchWipe(t *testing.T) {
	blockDev := tinyfs.NewMemoryDevice(256, 4096, 64)

	mgr, err := New(blockDev, true)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	// Write settings stamped with a layout version from another firmware
	stale := config.DefaultSettings()
	stale.Version = config.CurrentVersion + 1
	if err := mgr.ensureDirs(); err != nil {
		t.Fatalf("ensureDirs failed: %v", err)
	}
	if err := mgr.atomicWrite(settingsFile, &stale); err != nil {
		t.Fatalf("atomicWrite failed: %v", err)
	}
	mgr.Close()

	mgr2, err := New(blockDev, false)
	if err != nil {
		t.Fatalf("Failed to reopen storage: %v", err)
	}
	defer mgr2.Close()

	if mgr2.SettingsExist() {
		t.Error("Settings with a mismatched version should be wiped")
	}
}

func TestTruncatedSettingsRejected(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	if err := mgr.ensureDirs(); err != nil {
		t.Fatalf("ensureDirs failed: %v", err)
	}
	f, err := mgr.fs.OpenFile(settingsFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	f.Write([]byte{1, 0, 0})
	f.Close()

	var loaded config.MenuSettings
	if err := mgr.LoadSettings(&loaded); err != ErrInvalidSettings {
		t.Errorf("Expected ErrInvalidSettings, got %v", err)
	}
}

func TestStorageStats(t *testing.T) {
	mgr, blockDev := newTestStorage(t)
	defer mgr.Close()

	stats1, err := mgr.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}

	if stats1.HasSettings {
		t.Error("Expected no settings initially")
	}
	if stats1.TotalSpace != blockDev.Size() {
		t.Errorf("TotalSpace: expected %d, got %d", blockDev.Size(), stats1.TotalSpace)
	}

	settings := config.DefaultSettings()
	mgr.SaveSettings(&settings)

	stats2, err := mgr.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}

	if !stats2.HasSettings {
		t.Error("Expected settings after save")
	}
	if stats2.UsedSpace <= stats1.UsedSpace {
		t.Errorf("UsedSpace should grow after save: %d -> %d", stats1.UsedSpace, stats2.UsedSpace)
	}
	if stats2.UsedSpace+stats2.FreeSpace != stats2.TotalSpace {
		t.Error("Used + Free should equal Total")
	}
}

func BenchmarkSettingsSave(b *testing.B) {
	mgr, _ := newTestStorage(nil)
	defer mgr.Close()

	settings := config.DefaultSettings()
	settings.RefreshMs = 1000

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mgr.SaveSettings(&settings)
	}
}

func BenchmarkSettingsLoad(b *testing.B) {
	mgr, _ := newTestStorage(nil)
	defer mgr.Close()

	settings := config.DefaultSettings()
	mgr.SaveSettings(&settings)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var loaded config.MenuSettings
		mgr.LoadSettings(&loaded)
	}
}
