package pathutil

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToRelative(t *testing.T) {
	tests := []struct {
		name     string
		absPath  string
		rootDir  string
		expected string
	}{
		{"simple relative path", "/home/user/project/src/main.go", "/home/user/project", "src/main.go"},
		{"nested relative path", "/home/user/project/internal/core/search.go", "/home/user/project", "internal/core/search.go"},
		{"root level file", "/home/user/project/README.md", "/home/user/project", "README.md"},
		{"same directory", "/home/user/project", "/home/user/project", "."},
		{"already relative path", "src/main.go", "/home/user/project", "src/main.go"},
		{"path outside root falls back to absolute", "/other/location/file.go", "/home/user/project", "/other/location/file.go"},
		{"empty root directory falls back to absolute", "/home/user/project/file.go", "", "/home/user/project/file.go"},
		{"empty absolute path stays empty", "", "/home/user/project", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToRelative(tt.absPath, tt.rootDir)
			expected := tt.expected
			if runtime.GOOS == "windows" {
				result = filepath.ToSlash(result)
				expected = filepath.ToSlash(expected)
			}
			assert.Equal(t, expected, result)
		})
	}
}

func TestSplitPlaceholders(t *testing.T) {
	p := Split(filepath.FromSlash("/home/user/project/src/main.go"))

	assert.Equal(t, filepath.FromSlash("/home/user/project/src/main.go"), p.Full)
	assert.Equal(t, filepath.FromSlash("/home/user/project/src"), p.Dir)
	assert.Equal(t, "main.go", p.Base)
	assert.Equal(t, "main", p.BaseNoExt)
	assert.Equal(t, filepath.FromSlash("/home/user/project/src/main"), p.NoExt)
	assert.Equal(t, filepath.FromSlash("/home/user/project"), p.GrandparentDir)
}

func TestSplitNoExtension(t *testing.T) {
	p := Split(filepath.FromSlash("/a/b/Makefile"))
	assert.Equal(t, "Makefile", p.Base)
	assert.Equal(t, "Makefile", p.BaseNoExt)
	assert.Equal(t, filepath.FromSlash("/a/b/Makefile"), p.NoExt)
}

func TestSplitTopLevelFile(t *testing.T) {
	p := Split(filepath.FromSlash("/file.txt"))
	assert.Equal(t, string(filepath.Separator), p.Dir)
	assert.Equal(t, "file.txt", p.Base)
	assert.Equal(t, "file", p.BaseNoExt)
}
