package steam

import (
	"os"
	"path/filepath"
	"testing"
)

const modernManifest = `"libraryfolders"
{
	"0"
	{
		"path"		"C:\\Program Files (x86)\\Steam"
		"label"		""
		"apps"
		{
			"400"		"3076529"
			"228980"	"456108"
		}
	}
	"1"
	{
		"path"		"D:\\SteamLibrary"
		"apps"
		{
		}
	}
}
`

const legacyManifest = `"LibraryFolders"
{
	"TimeNextStatsReport"		"1500000000"
	"ContentStatsID"		"-123"
	"1"		"D:\\Games\\Steam"
}
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "libraryfolders.vdf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLibrariesFromModernManifest(t *testing.T) {
	libs, err := librariesFrom(writeManifest(t, modernManifest))
	if err != nil {
		t.Fatalf("librariesFrom: %v", err)
	}
	if len(libs) != 2 {
		t.Fatalf("libs = %+v, want 2", libs)
	}
	if libs[0].Path != `C:\Program Files (x86)\Steam` {
		t.Fatalf("path = %q", libs[0].Path)
	}
	if len(libs[0].Apps) != 2 || libs[0].Apps[0] != "228980" || libs[0].Apps[1] != "400" {
		t.Fatalf("apps = %v", libs[0].Apps)
	}
	if libs[1].Path != `D:\SteamLibrary` || len(libs[1].Apps) != 0 {
		t.Fatalf("second lib = %+v", libs[1])
	}
}

func TestLibrariesFromLegacyManifest(t *testing.T) {
	libs, err := librariesFrom(writeManifest(t, legacyManifest))
	if err != nil {
		t.Fatalf("librariesFrom: %v", err)
	}
	if len(libs) != 1 || libs[0].Path != `D:\Games\Steam` {
		t.Fatalf("libs = %+v", libs)
	}
}

func TestLibrariesFromMissingManifest(t *testing.T) {
	libs, err := librariesFrom(filepath.Join(t.TempDir(), "absent.vdf"))
	if err != nil || libs != nil {
		t.Fatalf("libs, err = %+v, %v, want nil, nil", libs, err)
	}
}
