package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesSortedAndFiltered(t *testing.T) {
	schema := fstest.MapFS{
		"002_loads.sql":      {Data: []byte("ALTER TABLE cars ADD COLUMN x INT;")},
		"001_cars.sql":       {Data: []byte("CREATE TABLE cars ();")},
		"README.md":          {Data: []byte("notes")},
		"nested/003_idx.sql": {Data: []byte("CREATE INDEX;")},
	}

	files, err := Files(schema)

	require.NoError(t, err)
	assert.Equal(t, []string{"001_cars.sql", "002_loads.sql", "nested/003_idx.sql"}, files)
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "001_cars", Version("001_cars.sql"))
	assert.Equal(t, "003_idx", Version("nested/003_idx.sql"))
}
