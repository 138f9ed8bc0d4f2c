package models

import "testing"

func TestBPMLabel(t *testing.T) {
	tests := []struct {
		analysis Analysis
		expected string
	}{
		{Analysis{Status: StatusOK, BPM: 120}, "120"},
		{Analysis{Status: StatusOK, BPM: 0}, "--"},
		{Analysis{Status: StatusNoViableTempo}, "--"},
		{Analysis{Status: StatusInsufficientData, BPM: 99}, "--"},
	}

	for _, tt := range tests {
		if got := tt.analysis.BPMLabel(); got != tt.expected {
			t.Errorf("BPMLabel() for %+v = %q, expected %q", tt.analysis, got, tt.expected)
		}
	}
}
