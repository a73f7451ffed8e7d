package stt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAudio(t *testing.T) {
	b, err := DecodeAudio("aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), b)

	b, err = DecodeAudio("data:audio/wav;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), b)

	_, err = DecodeAudio("%%%")
	assert.Error(t, err)
}
