package version

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table(major, minor, security, patch string) map[string]string {
	return map[string]string{
		"DEFAULT_VERSION_MAJOR":    major,
		"DEFAULT_VERSION_MINOR":    minor,
		"DEFAULT_VERSION_SECURITY": security,
		"DEFAULT_VERSION_PATCH":    patch,
	}
}

func staticLoader(t map[string]string) Loader {
	return func() (map[string]string, error) { return t, nil }
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"9", "0", "0", "0"}, "9"},
		{[]string{"9", "1", "0", "0"}, "9.1"},
		{[]string{"9", "0", "1", "0"}, "9.0.1"},
		{[]string{"9", "0", "0", "1"}, "9.0.0.1"},
		{[]string{"10", "1", "0", "0"}, "10.1"},
		{[]string{"10", "0", "0", "0"}, "10"},
		{[]string{"0", "0", "0", "0"}, "0"},
		{[]string{"9", "0", "10", "0"}, "9.0.10"},
	}
	for _, tc := range tests {
		got, err := Format(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "Format(%v)", tc.in)
	}
}

func TestFormat_NotNumeric(t *testing.T) {
	_, err := Format([]string{"9", "x", "0", "0"})
	require.ErrorIs(t, err, ErrMissingComponent)
}

func TestResolve_Overrides(t *testing.T) {
	r := NewResolver(staticLoader(table("9", "0", "0", "0")))

	got, err := r.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "9", got)

	got, err = r.Resolve("", "2")
	require.NoError(t, err)
	assert.Equal(t, "9.2", got)

	got, err = r.Resolve("10", "", "", "3")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.3", got)

	_, err = r.Resolve("1", "2", "3", "4", "5")
	require.Error(t, err)
}

func TestResolve_MissingKey(t *testing.T) {
	tbl := table("9", "0", "0", "0")
	delete(tbl, "DEFAULT_VERSION_PATCH")
	r := NewResolver(staticLoader(tbl))

	_, err := r.Resolve()
	require.ErrorIs(t, err, ErrMissingComponent)
	assert.Contains(t, err.Error(), "DEFAULT_VERSION_PATCH")

	// An override fills the gap.
	got, err := r.Resolve("", "", "", "0")
	require.NoError(t, err)
	assert.Equal(t, "9", got)
}

func TestResolve_LoadFailureIsFatal(t *testing.T) {
	boom := errors.New("boom")
	r := NewResolver(func() (map[string]string, error) { return nil, boom })
	_, err := r.Resolve()
	require.ErrorIs(t, err, boom)
}

func TestResolve_LoadsOnce(t *testing.T) {
	var calls atomic.Int32
	r := NewResolver(func() (map[string]string, error) {
		calls.Add(1)
		return table("11", "0", "2", "0"), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := r.Resolve()
			assert.NoError(t, err)
			assert.Equal(t, "11.0.2", v)
		}()
	}
	wg.Wait()

	_, err := r.Resolve()
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolve_FailedLoadIsRetried(t *testing.T) {
	var calls int
	r := NewResolver(func() (map[string]string, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient")
		}
		return table("9", "0", "0", "0"), nil
	})
	_, err := r.Resolve()
	require.Error(t, err)

	got, err := r.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "9", got)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "version-numbers")
	content := `# Version numbers
! legacy comment
DEFAULT_VERSION_MAJOR=9
DEFAULT_VERSION_MINOR = 0
DEFAULT_VERSION_SECURITY:1

DEFAULT_VERSION_PATCH=0
PRODUCT_NAME=OpenJDK
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tbl, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "9", tbl["DEFAULT_VERSION_MAJOR"])
	assert.Equal(t, "0", tbl["DEFAULT_VERSION_MINOR"])
	assert.Equal(t, "1", tbl["DEFAULT_VERSION_SECURITY"])
	assert.Equal(t, "OpenJDK", tbl["PRODUCT_NAME"])

	v, err := FileResolver(path).Resolve()
	require.NoError(t, err)
	assert.Equal(t, "9.0.1", v)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := FileResolver(filepath.Join(t.TempDir(), "nope")).Resolve()
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
