package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRotationSpecBareNumber(t *testing.T) {
	hz, err := parseRotationSpec("1602")
	assert.NoError(t, err)
	assert.InDelta(t, 1602.0, hz, 1e-9)
}

func TestParseRotationSpecHzSuffix(t *testing.T) {
	hz, err := parseRotationSpec("1602hz")
	assert.NoError(t, err)
	assert.InDelta(t, 1602.0, hz, 1e-9)
}

func TestParseRotationSpecMicroseconds(t *testing.T) {
	hz, err := parseRotationSpec("624us")
	assert.NoError(t, err)
	assert.InDelta(t, 1602.564, hz, 1e-2)
}

func TestParseRotationSpecRejectsGarbage(t *testing.T) {
	_, err := parseRotationSpec("banana")
	assert.Error(t, err)
}
