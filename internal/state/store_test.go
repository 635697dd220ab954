package state

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dockside/internal/unit"
)

func TestWriteUnit(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, WriteUnit(dir, "web-abc123", []byte(`{"services":{"web":{}}}`)))
	assert.FileExists(t, unit.DescriptorPath(dir, "web-abc123"))

	data, err := ReadUnit(dir, "web-abc123")
	require.NoError(t, err)
	assert.JSONEq(t, `{"services":{"web":{}}}`, string(data))
}

func TestWriteUnit_Duplicate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteUnit(dir, "web-abc123", []byte(`{}`)))

	err := WriteUnit(dir, "web-abc123", []byte(`{"other":true}`))
	var dup *DuplicateUnitError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "web-abc123", dup.ID)

	// The first store is untouched.
	data, err := ReadUnit(dir, "web-abc123")
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestUnits_MissingDir(t *testing.T) {
	ids, err := Units(t.TempDir() + "/nope")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestWriteUnit_WriteFailureRemovesStore(t *testing.T) {
	original := writeFile
	defer func() { writeFile = original }()
	writeFile = func(string, []byte, os.FileMode) error {
		return errors.New("no space left on device")
	}

	dir := t.TempDir()
	err := WriteUnit(dir, "web-abc123", []byte(`{}`))
	var transitionErr *TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, "write", transitionErr.Op)

	assert.NoDirExists(t, StorePath(dir, "web-abc123"))
	ids, err := Units(dir)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
