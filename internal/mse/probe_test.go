package mse

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProbeDurationRejectsNonMP4(t *testing.T) {
	_, err := ProbeDuration(bytes.NewReader([]byte("not an mp4 init segment")))
	require.Error(t, err)
}

func TestProbeDurationRejectsEmpty(t *testing.T) {
	_, err := ProbeDuration(bytes.NewReader(nil))
	require.Error(t, err)
}
