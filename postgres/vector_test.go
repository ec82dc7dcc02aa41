package postgres_test

import (
	"testing"

	"github.com/fwojciec/docharvest/postgres"
	"github.com/stretchr/testify/assert"
)

func TestTableName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		index string
		want  string
	}{
		{"docharvest", "docharvest_vectors_docharvest"},
		{"My-Docs.v2", "docharvest_vectors_my_docs_v2"},
		{"x; DROP TABLE users", "docharvest_vectors_x_drop_table_users"},
	}
	for _, tt := range tests {
		t.Run(tt.index, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, postgres.TableName(tt.index))
		})
	}
}
