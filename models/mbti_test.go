package models

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNormalizePairsSumsToOne(t *testing.T) {
	p := Probabilities{E: 0.8, I: 0.4, S: 0.3, N: 0.9, T: 0.5, F: 0.5, J: 0.2, P: 0.6}
	n := p.NormalizePairs()

	pairs := [][2]float64{
		{n.E, n.I},
		{n.S, n.N},
		{n.T, n.F},
		{n.J, n.P},
	}
	for i, pair := range pairs {
		if !almostEqual(pair[0]+pair[1], 1.0) {
			t.Errorf("pair %d: sum = %v, want 1.0", i, pair[0]+pair[1])
		}
	}
	if !almostEqual(n.E, 0.8/1.2) {
		t.Errorf("E = %v, want %v", n.E, 0.8/1.2)
	}
}

func TestNormalizePairsZeroPair(t *testing.T) {
	p := Probabilities{E: 0, I: 0, S: 1, N: 0, T: 0.5, F: 0.5, J: 0.3, P: 0.7}
	n := p.NormalizePairs()
	if !almostEqual(n.E, 0.5) || !almostEqual(n.I, 0.5) {
		t.Errorf("zero pair should normalize to 0.5/0.5, got E=%v I=%v", n.E, n.I)
	}
	if !almostEqual(n.S, 1.0) || !almostEqual(n.N, 0.0) {
		t.Errorf("S/N pair changed unexpectedly: S=%v N=%v", n.S, n.N)
	}
}

func TestDeriveType(t *testing.T) {
	tests := []struct {
		name  string
		probs Probabilities
		want  string
	}{
		{
			name:  "clear ENFP",
			probs: Probabilities{E: 0.9, I: 0.1, S: 0.2, N: 0.8, T: 0.3, F: 0.7, J: 0.1, P: 0.9},
			want:  "ENFP",
		},
		{
			name:  "clear ISTJ",
			probs: Probabilities{E: 0.1, I: 0.9, S: 0.8, N: 0.2, T: 0.7, F: 0.3, J: 0.9, P: 0.1},
			want:  "ISTJ",
		},
		{
			name:  "all ties resolve to first letter",
			probs: NeutralProbabilities(),
			want:  "ESTJ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.probs.DeriveType(); got != tt.want {
				t.Errorf("DeriveType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfidenceScores(t *testing.T) {
	p := Probabilities{E: 0.9, I: 0.1, S: 0.5, N: 0.5, T: 0.75, F: 0.25, J: 0.5, P: 0.5}
	c := p.ConfidenceScores()

	if !almostEqual(c.EI, 0.8) {
		t.Errorf("EI confidence = %v, want 0.8", c.EI)
	}
	if !almostEqual(c.SN, 0.0) {
		t.Errorf("SN confidence = %v, want 0 for neutral pair", c.SN)
	}
	if !almostEqual(c.TF, 0.5) {
		t.Errorf("TF confidence = %v, want 0.5", c.TF)
	}
}

func TestVectorOrder(t *testing.T) {
	p := Probabilities{E: 1, I: 2, S: 3, N: 4, T: 5, F: 6, J: 7, P: 8}
	v := p.Vector()
	want := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	if len(v) != len(want) {
		t.Fatalf("Vector() length = %d, want %d", len(v), len(want))
	}
	for i := range want {
		if v[i] != want[i] {
			t.Errorf("Vector()[%d] = %v, want %v", i, v[i], want[i])
		}
	}
}

func TestGetSetRoundTrip(t *testing.T) {
	var p Probabilities
	for i, trait := range Traits {
		p.Set(trait, float64(i)*0.1)
	}
	for i, trait := range Traits {
		if !almostEqual(p.Get(trait), float64(i)*0.1) {
			t.Errorf("Get(%q) = %v, want %v", trait, p.Get(trait), float64(i)*0.1)
		}
	}
}

func TestNewNeutralProfile(t *testing.T) {
	p := NewNeutralProfile(42)
	if p.UserID != 42 {
		t.Errorf("UserID = %d, want 42", p.UserID)
	}
	if p.MBTIType != "ESTJ" {
		t.Errorf("neutral MBTIType = %q, want ESTJ", p.MBTIType)
	}
	if p.Confidence.EI != 0 || p.Confidence.JP != 0 {
		t.Errorf("neutral profile should have zero confidence, got %+v", p.Confidence)
	}
}
