package zipimport_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/upk240z/zipimport/pkg/zipimport"
)

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, zipimport.ExitSuccess},
		{"usage", zipimport.ErrUsage, zipimport.ExitFailure},
		{"truncate failed", fmt.Errorf("truncate zip: %w", zipimport.ErrTruncateFailed), zipimport.ExitFailure},
		{"general error", errors.New("something went wrong"), zipimport.ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := zipimport.ExitCodeForError(tt.err); got != tt.want {
				t.Errorf("ExitCodeForError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
