package github_test

import (
	"testing"

	"github.com/fwojciec/docharvest/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractComments(t *testing.T) {
	t.Parallel()

	t.Run("C-style block and line comments", func(t *testing.T) {
		t.Parallel()

		src := `package store

/**
 * Store persists documents and serves lookups by identifier.
 * It is safe for concurrent use.
 */
type Store struct{}

// Get returns the document with the given identifier, or an error
// when it does not exist in the store.
func Get(id string) {}

// short
`
		got := github.ExtractComments("store.go", src)

		require.Len(t, got, 2)
		assert.Equal(t, "Store persists documents and serves lookups by identifier.\nIt is safe for concurrent use.", got[0])
		assert.Equal(t, "Get returns the document with the given identifier, or an error\nwhen it does not exist in the store.", got[1])
	})

	t.Run("python docstrings and hash comments", func(t *testing.T) {
		t.Parallel()

		src := `#!/usr/bin/env python
def load(path):
    """Load a configuration file from path and return the parsed mapping."""
    # Fall back to defaults when the file is missing on this system.
    return {}
`
		got := github.ExtractComments("load.py", src)

		require.Len(t, got, 2)
		assert.Equal(t, "Load a configuration file from path and return the parsed mapping.", got[0])
		assert.Equal(t, "Fall back to defaults when the file is missing on this system.", got[1])
	})

	t.Run("SQL line comments", func(t *testing.T) {
		t.Parallel()

		src := "-- accounts holds one row per registered user of the service\nCREATE TABLE accounts (id INT);\n"

		got := github.ExtractComments("schema.sql", src)

		assert.Equal(t, []string{"accounts holds one row per registered user of the service"}, got)
	})

	t.Run("unknown extension", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, github.ExtractComments("notes.txt", "// a long comment that would otherwise be extracted"))
	})
}

func TestIsImportantFile(t *testing.T) {
	t.Parallel()

	for _, p := range []string{"src/config.ts", "lib/types.go", "api/service.proto", "schema.graphql", "index.d.ts", "app/constants.py", "settings/config.yaml"} {
		assert.True(t, github.IsImportantFile(p), p)
	}
	for _, p := range []string{"src/handler.go", "README.md", "config.png"} {
		assert.False(t, github.IsImportantFile(p), p)
	}
}
