package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notebook/pkg/adapters/fs"
)

func TestFindRoot(t *testing.T) {
	markers := []struct {
		name  string
		place func(t *testing.T, root string)
	}{
		{"System dir", func(t *testing.T, root string) {
			require.NoError(t, os.Mkdir(filepath.Join(root, fs.DefaultSystemDir), 0755))
		}},
		{"Git work tree", func(t *testing.T, root string) {
			require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0755))
		}},
		{"Marker file", func(t *testing.T, root string) {
			require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFile), nil, 0644))
		}},
	}

	for _, mk := range markers {
		t.Run(mk.name, func(t *testing.T) {
			root := filepath.Join(t.TempDir(), "notes")
			nested := filepath.Join(root, "a", "b")
			require.NoError(t, os.MkdirAll(nested, 0755))
			mk.place(t, root)

			for _, start := range []string{root, filepath.Join(root, "a"), nested} {
				got, err := FindRoot(start)
				require.NoError(t, err, "from %s", start)
				assert.Equal(t, root, got)
			}
		})
	}

	t.Run("Nearest marker wins", func(t *testing.T) {
		outer := t.TempDir()
		inner := filepath.Join(outer, "inner")
		require.NoError(t, os.MkdirAll(filepath.Join(inner, fs.DefaultSystemDir), 0755))
		require.NoError(t, os.Mkdir(filepath.Join(outer, ".git"), 0755))

		got, err := FindRoot(inner)
		require.NoError(t, err)
		assert.Equal(t, inner, got)
	})

	t.Run("Relative start", func(t *testing.T) {
		root, err := filepath.EvalSymlinks(t.TempDir())
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFile), nil, 0644))
		t.Chdir(root)

		got, err := FindRoot(".")
		require.NoError(t, err)
		assert.Equal(t, root, got)
	})
}
