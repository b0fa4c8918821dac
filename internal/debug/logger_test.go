package debug

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitWith(t *testing.T) {
	defer InitWith(nil, false, false)

	var buf bytes.Buffer
	InitWith(&buf, true, true)
	assert.True(t, Enabled())
	With("session", "abc").Info("opened")
	assert.Contains(t, buf.String(), `"msg":"opened"`)
	assert.Contains(t, buf.String(), `"session":"abc"`)

	buf.Reset()
	InitWith(&buf, false, false)
	assert.False(t, Enabled())
	Warn("dropped")
	assert.Empty(t, buf.String())
}
