package camera

import (
	"testing"

	"github.com/andresmejia3/lookout/internal/source"
	"github.com/stretchr/testify/assert"
)

var _ source.Source = (*Camera)(nil)

func TestStopBeforeStart(t *testing.T) {
	c := New(0, 320, 240)
	assert.NoError(t, c.Stop())
	assert.False(t, c.Ready())

	w, h := c.Size()
	assert.Equal(t, 320, w)
	assert.Equal(t, 240, h)
}
