package document

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/carbon-tracker/constants"
	"github.com/joseph-ayodele/carbon-tracker/internal/common"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want constants.DocumentKind
	}{
		{"bill.pdf", constants.PDF},
		{"BILL.PDF", constants.PDF},
		{"scan.jpg", constants.JPEG},
		{"scan.jpeg", constants.JPEG},
		{"scan.png", constants.PNG},
		{"scan.tif", constants.TIFF},
		{"dir.with.dots/scan.tiff", constants.TIFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := Classify(tt.name)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestClassify_Unsupported(t *testing.T) {
	for _, name := range []string{"bill.docx", "bill.txt", "bill", "bill.heic", "archive.pdf.zip"} {
		t.Run(name, func(t *testing.T) {
			_, err := Classify(name)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrUnsupportedFileType)
		})
	}
}

func TestKindForContentType(t *testing.T) {
	kind, ok := KindForContentType("image/jpeg")
	assert.True(t, ok)
	assert.Equal(t, constants.JPEG, kind)

	kind, ok = KindForContentType("application/pdf; charset=binary")
	assert.True(t, ok)
	assert.Equal(t, constants.PDF, kind)

	_, ok = KindForContentType("application/msword")
	assert.False(t, ok)
	assert.Equal(t, "image/png", MediaType("IMAGE/PNG"))
}

func TestStageAndRemove(t *testing.T) {
	dir := t.TempDir()
	path, size, err := Stage(dir, "march.PDF", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.EqualValues(t, 8, size)
	assert.Equal(t, ".pdf", filepath.Ext(path))

	Remove(path, nil)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// second removal is a no-op
	Remove(path, nil)
}
