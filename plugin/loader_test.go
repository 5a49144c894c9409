package plugin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mfkiwl/dspatch/plugin"
)

func TestLoaderDegradesToEmptyOnMissingFile(t *testing.T) {
	l := plugin.Open("/nonexistent/path/to/plugin.so")

	assert.False(t, l.IsLoaded())
	assert.Empty(t, l.GetCreateParams())
	assert.Nil(t, l.Create(plugin.CreateParams{}))
}
