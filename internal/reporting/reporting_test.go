package reporting

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_WithoutKeyIsNop(t *testing.T) {
	r := New("", "test")
	_, ok := r.(NopReporter)
	assert.True(t, ok)
	assert.NotPanics(t, func() {
		r.Report(errors.New("x"), []string{"sync"}, map[string]any{"a": 1})
		r.Flush()
	})
}

func TestNew_WithKeyIsHoneybadger(t *testing.T) {
	r := New("hb-key", "test")
	hb, ok := r.(*HoneybadgerReporter)
	assert.True(t, ok)
	assert.NotNil(t, hb.client)
}

func TestHoneybadgerReporter_NilErrorIgnored(t *testing.T) {
	r := NewHoneybadgerReporter("hb-key", "test")
	assert.NotPanics(t, func() { r.Report(nil, nil, nil) })
}
