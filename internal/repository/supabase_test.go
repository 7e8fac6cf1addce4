package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeleteResult(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr error
	}{
		{"renumbered", "2", 2, nil},
		{"last record", "0", 0, nil},
		{"missing record", "-1", 0, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDeleteResult(tt.body)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDeleteResultRejectsErrorBody(t *testing.T) {
	for _, body := range []string{"", `{"code":"42883","message":"function delete_record does not exist"}`} {
		_, err := parseDeleteResult(body)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "failed to delete record")
	}
}

func TestSupabaseSchemaRenumbersInOneCall(t *testing.T) {
	assert.Contains(t, SupabaseSchema, "CREATE OR REPLACE FUNCTION delete_record(p_person_id TEXT, p_record_id INTEGER)")
	assert.Contains(t, SupabaseSchema, "ORDER BY record_id")
	assert.Contains(t, SupabaseSchema, "RETURN -1")
}
