package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"plain name", "notes.txt", "notes.txt", true},
		{"unix path stripped", "/home/joe/notes.txt", "notes.txt", true},
		{"relative traversal stripped", "../../etc/passwd", "passwd", true},
		{"windows path stripped", `C:\Users\joe\notes.txt`, "notes.txt", true},
		{"empty", "", "", false},
		{"dot", ".", "", false},
		{"dot dot", "..", "", false},
		{"root", "/", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := sanitizeFilename(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidFileID(t *testing.T) {
	assert.True(t, validFileID("1700000000_report.pdf"))
	assert.True(t, validFileID("readme"))

	assert.False(t, validFileID(""))
	assert.False(t, validFileID("../../etc/passwd"))
	assert.False(t, validFileID("uploads/secret"))
	assert.False(t, validFileID(`uploads\secret`))
	assert.False(t, validFileID("1700000000_.."))
}

func TestDisplayFilename(t *testing.T) {
	assert.Equal(t, "report.pdf", displayFilename("1700000000_report.pdf"))
	assert.Equal(t, "a_b.txt", displayFilename("1700000000_a_b.txt"))

	// Ids without a numeric timestamp prefix come back verbatim.
	assert.Equal(t, "readme", displayFilename("readme"))
	assert.Equal(t, "abc_def", displayFilename("abc_def"))
	assert.Equal(t, "1700000000_", displayFilename("1700000000_"))
	assert.Equal(t, "_hidden", displayFilename("_hidden"))
}
