package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchCondition(t *testing.T) {
	testCases := []struct {
		name      string
		tokens    []string
		wantWhere string
		wantArgs  []interface{}
	}{
		{
			name:   "empty",
			tokens: nil,
		},
		{
			name:      "single name token",
			tokens:    []string{"ana"},
			wantWhere: "(first_name ILIKE $1 OR middle_name ILIKE $2 OR last_name ILIKE $3)",
			wantArgs:  []interface{}{"%ana%", "%ana%", "%ana%"},
		},
		{
			name:      "numeric token also matches id",
			tokens:    []string{"12"},
			wantWhere: "(first_name ILIKE $1 OR middle_name ILIKE $2 OR last_name ILIKE $3 OR id::text LIKE $4)",
			wantArgs:  []interface{}{"%12%", "%12%", "%12%", "%12%"},
		},
		{
			name:      "first and last",
			tokens:    []string{"John", "Doe"},
			wantWhere: "(first_name ILIKE $1 AND last_name ILIKE $2)",
			wantArgs:  []interface{}{"%John%", "%Doe%"},
		},
		{
			name:   "three tokens add the middle name branch",
			tokens: []string{"John", "Paul", "Doe"},
			wantWhere: "((first_name ILIKE $1 AND last_name ILIKE $2) OR " +
				"(first_name ILIKE $3 AND middle_name ILIKE $4 AND last_name ILIKE $5))",
			wantArgs: []interface{}{"%John%", "%Paul%", "%John%", "%Paul%", "%Doe%"},
		},
		{
			name:      "wildcards are escaped",
			tokens:    []string{"50%_off"},
			wantWhere: "(first_name ILIKE $1 OR middle_name ILIKE $2 OR last_name ILIKE $3)",
			wantArgs:  []interface{}{`%50\%\_off%`, `%50\%\_off%`, `%50\%\_off%`},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			where, args := searchCondition(tc.tokens)
			assert.Equal(t, tc.wantWhere, where)
			assert.Equal(t, tc.wantArgs, args)
		})
	}
}
