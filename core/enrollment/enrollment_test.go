package enrollment

import (
	"testing"

	"github.com/irsalhamdi/course-marketplace/validate"
)

func TestProgressUpValidation(t *testing.T) {
	ptr := func(v int) *int { return &v }

	tests := []struct {
		up    ProgressUp
		valid bool
	}{
		{ProgressUp{Progress: ptr(0)}, true},
		{ProgressUp{Progress: ptr(55)}, true},
		{ProgressUp{Progress: ptr(100)}, true},
		{ProgressUp{Progress: ptr(101)}, false},
		{ProgressUp{Progress: ptr(-1)}, false},
		{ProgressUp{}, false},
	}

	for i, tt := range tests {
		err := validate.Check(tt.up)
		if (err == nil) != tt.valid {
			t.Errorf("case %d: expected valid=%v, got %v", i, tt.valid, err)
		}
	}
}
