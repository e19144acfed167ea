package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cat := Default()
	require.NoError(t, cat.Validate())
	assert.Len(t, cat.Diseases, 5)
	assert.Len(t, cat.Severities, 5)
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cat, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cat)
}

func TestLoadShippedFileMatchesDefault(t *testing.T) {
	cat, err := Load(filepath.Join("..", "..", "configs", "catalog.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cat)
}

func TestLoadRejectsBadSeverityOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `
severities:
  - {level: 2, name: Urgent}
  - {level: 1, name: Critical}
  - {level: 3, name: Medium}
  - {level: 4, name: Low}
  - {level: 5, name: Minimal}
diseases:
  - {id: 1, name: Flu, symptoms: [fever]}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLookups(t *testing.T) {
	cat := Default()

	d, err := cat.Disease(5)
	require.NoError(t, err)
	assert.Equal(t, "Tuberculosis", d.Name)
	assert.True(t, d.HighRisk)

	_, err = cat.Disease(99)
	assert.True(t, errors.Is(err, ErrUnknownDisease))

	byName, ok := cat.DiseaseByName("skin INFECTION")
	require.True(t, ok)
	assert.Equal(t, uint(3), byName.ID)

	assert.Equal(t, "Critical", cat.SeverityByLevel(0).Name)
	assert.Equal(t, "Minimal", cat.SeverityByLevel(9).Name)
	sev, ok := cat.SeverityByName("low")
	require.True(t, ok)
	assert.Equal(t, 4, sev.Level)
}
