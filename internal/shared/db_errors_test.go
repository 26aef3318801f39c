package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsConflictError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"sqlite busy", errors.New("SQLITE_BUSY: database busy"), true},
		{"sqlite locked", fmt.Errorf("save: %w", errors.New("database is locked")), true},
		{"pq serialization", fmt.Errorf("save: %w", &pq.Error{Code: "40001"}), true},
		{"pq deadlock", &pq.Error{Code: "40P01"}, true},
		{"pq unique violation", &pq.Error{Code: "23505"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, IsConflictError(tc.err))
		})
	}
}
