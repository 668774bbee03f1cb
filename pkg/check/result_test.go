package check

import "testing"

func TestResultOK(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusOK, true},
		{StatusFail, false},
		{"", false},
	}

	for _, tt := range tests {
		if got := (Result{Status: tt.status}).OK(); got != tt.want {
			t.Errorf("Result{Status: %q}.OK() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
