// Package patches embeds the demo instrument patches.
package patches

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed *.yml
var files embed.FS

// FS returns the demo patch files.
func FS() fs.FS {
	return files
}

// Names lists the demo patches by file name without extension.
func Names() []string {
	entries, _ := fs.ReadDir(files, ".")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// Read returns the YAML of the demo patch called name.
func Read(name string) ([]byte, error) {
	if !strings.HasSuffix(name, ".yml") {
		name += ".yml"
	}
	return fs.ReadFile(files, name)
}
