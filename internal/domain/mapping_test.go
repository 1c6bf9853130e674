package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCriteriaTupleEquals(t *testing.T) {
	tests := []struct {
		name string
		a, b CriteriaTuple
		want bool
	}{
		{
			name: "same pairs same order",
			a:    CriteriaTuple{{Criteria: "Location", Value: "x"}, {Criteria: "Language", Value: "Hindi"}},
			b:    CriteriaTuple{{Criteria: "Location", Value: "x"}, {Criteria: "Language", Value: "Hindi"}},
			want: true,
		},
		{
			name: "same pairs reordered",
			a:    CriteriaTuple{{Criteria: "Location", Value: "x"}, {Criteria: "Language", Value: "Hindi"}},
			b:    CriteriaTuple{{Criteria: "Language", Value: "Hindi"}, {Criteria: "Location", Value: "x"}},
			want: true,
		},
		{
			name: "different value",
			a:    CriteriaTuple{{Criteria: "Language", Value: "Hindi"}},
			b:    CriteriaTuple{{Criteria: "Language", Value: "Telugu"}},
			want: false,
		},
		{
			name: "length mismatch",
			a:    CriteriaTuple{{Criteria: "Language", Value: "Hindi"}},
			b:    CriteriaTuple{{Criteria: "Language", Value: "Hindi"}, {Criteria: "Gender", Value: "Female"}},
			want: false,
		},
		{
			name: "repeated pair does not match distinct pairs",
			a:    CriteriaTuple{{Criteria: "Language", Value: "Hindi"}, {Criteria: "Language", Value: "Hindi"}},
			b:    CriteriaTuple{{Criteria: "Language", Value: "Hindi"}, {Criteria: "Gender", Value: "Female"}},
			want: false,
		},
		{
			name: "repeated pair matches the same repetition",
			a:    CriteriaTuple{{Criteria: "Language", Value: "Hindi"}, {Criteria: "Language", Value: "Hindi"}},
			b:    CriteriaTuple{{Criteria: "Language", Value: "Hindi"}, {Criteria: "Language", Value: "Hindi"}},
			want: true,
		},
		{
			name: "empty tuples",
			a:    CriteriaTuple{},
			b:    CriteriaTuple{},
			want: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Equals(tc.b))
			assert.Equal(t, tc.want, tc.b.Equals(tc.a))
		})
	}
}
