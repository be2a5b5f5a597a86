package scoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputePoints_Table(t *testing.T) {
	tests := []struct {
		correct    bool
		confidence int
		want       int
	}{
		{true, 3, 3},
		{true, 2, 2},
		{true, 1, 1},
		{false, 3, -2},
		{false, 2, -1},
		{false, 1, -1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("correct=%v/confidence=%d", tt.correct, tt.confidence), func(t *testing.T) {
			assert.Equal(t, tt.want, ComputePoints(tt.correct, tt.confidence))
		})
	}
}

func TestComputePoints_ClampsConfidence(t *testing.T) {
	assert.Equal(t, 1, ComputePoints(true, 0))
	assert.Equal(t, 3, ComputePoints(true, 7))
	assert.Equal(t, -2, ComputePoints(false, 9))
}

func TestNetPoints_HintPenaltyHasNoFloor(t *testing.T) {
	assert.Equal(t, 3, NetPoints(true, 3, 0))
	assert.Equal(t, 1, NetPoints(true, 3, 1))
	assert.Equal(t, -1, NetPoints(true, 1, 1))
	assert.Equal(t, -6, NetPoints(false, 3, 2))
	assert.Equal(t, 2, NetPoints(true, 2, -4), "negative hint counts are ignored")
}

func TestCalibrationBonus_Boundary(t *testing.T) {
	tests := []struct {
		actual, predicted, want int
	}{
		{10, 10, 3},
		{10, 12, 3},
		{12, 10, 3},
		{10, 13, 0},
		{13, 10, 0},
		{-2, 0, 3},
		{-3, 0, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_vs_%d", tt.actual, tt.predicted), func(t *testing.T) {
			assert.Equal(t, tt.want, CalibrationBonus(tt.actual, tt.predicted))
		})
	}
}

func TestFinalScore_Examples(t *testing.T) {
	assert.Equal(t, 3, CalibrationBonus(15, 14))
	assert.Equal(t, 18, FinalScore(15, 14))

	assert.Equal(t, 0, CalibrationBonus(15, 10))
	assert.Equal(t, 15, FinalScore(15, 10))
}

func TestAccuracy(t *testing.T) {
	assert.Equal(t, 0, Accuracy(0, 0))
	assert.Equal(t, 100, Accuracy(5, 5))
	assert.Equal(t, 67, Accuracy(2, 3))
	assert.Equal(t, 33, Accuracy(1, 3))
	assert.Equal(t, 50, Accuracy(1, 2))
}
