package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigratorLoadSortsAndSkips(t *testing.T) {
	files := fstest.MapFS{
		"010_reports.sql": {Data: []byte("SELECT 10;")},
		"002_second.sql":  {Data: []byte("SELECT 2;")},
		"001_init.sql":    {Data: []byte("SELECT 1;")},
		"readme.md":       {Data: []byte("notes")},
		"draft.sql":       {Data: []byte("SELECT 0;")},
		"abc_bad.sql":     {Data: []byte("SELECT -1;")},
	}

	migrations, err := NewMigrator(nil, files).Load()
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "001_init.sql", migrations[0].Name)
	assert.Equal(t, "SELECT 1;", migrations[0].SQL)
	assert.Equal(t, 2, migrations[1].Version)
	assert.Equal(t, 10, migrations[2].Version)
}

func TestEmbeddedSchema(t *testing.T) {
	migrations, err := NewMigrator(nil, nil).Load()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	schema := migrations[0].SQL
	for _, want := range []string{
		constraintAccountEmail,
		constraintSingleClinicDoc,
		constraintExaminationCode,
		"file_number_sequences",
		"outbox_events_deadletter",
	} {
		assert.Contains(t, schema, want)
	}
}
