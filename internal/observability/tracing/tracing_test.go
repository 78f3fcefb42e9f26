package tracing

import "testing"

func TestSampleRatio(t *testing.T) {
	cases := []struct {
		value string
		want  float64
	}{
		{"", 1.0},
		{"0.25", 0.25},
		{"1", 1.0},
		{"0", 0},
		{"2.5", 1.0},
		{"-1", 1.0},
		{"not-a-number", 1.0},
	}
	for _, tc := range cases {
		t.Setenv("OTEL_TRACES_SAMPLER_ARG", tc.value)
		if got := sampleRatio(); got != tc.want {
			t.Errorf("ratio %q: expected %v, got %v", tc.value, tc.want, got)
		}
	}
}
