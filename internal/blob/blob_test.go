package blob

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPut_ContentAddressed(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "images"))

	p1, err := s.Put([]byte("png-a"))
	require.NoError(t, err)
	p2, err := s.Put([]byte("png-a"))
	require.NoError(t, err)
	p3, err := s.Put([]byte("png-b"))
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
	assert.NotEqual(t, p1, p3)
	assert.Equal(t, s.Path(Hash([]byte("png-a"))), p1)

	b, err := s.Read(p1)
	require.NoError(t, err)
	assert.Equal(t, "png-a", string(b))
}

func TestPut_Empty(t *testing.T) {
	_, err := New(t.TempDir()).Put(nil)
	assert.Error(t, err)
}

func TestRead_OutsideStore(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "images"))
	outside := filepath.Join(dir, "secret.png")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))

	_, err := s.Read(outside)
	assert.Error(t, err)
	_, err = s.Read(filepath.Join(s.Dir(), "..", "secret.png"))
	assert.Error(t, err)
}

func TestPrune(t *testing.T) {
	s := New(t.TempDir())
	keep, err := s.Put([]byte("keep"))
	require.NoError(t, err)
	drop, err := s.Put([]byte("drop"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0o600))

	n, err := s.Prune(func() []string { return []string{keep} })
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.FileExists(t, keep)
	assert.NoFileExists(t, drop)
	assert.FileExists(t, filepath.Join(s.Dir(), "notes.txt"))
}

func TestPrune_SparesHeldBlobs(t *testing.T) {
	s := New(t.TempDir())
	path, release, err := s.Hold([]byte("fresh"))
	require.NoError(t, err)

	none := func() []string { return nil }
	n, err := s.Prune(none)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.FileExists(t, path)

	release()
	release()
	n, err = s.Prune(none)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, path)
}

func TestPrune_ReleaseWaitsForPrune(t *testing.T) {
	s := New(t.TempDir())
	path, release, err := s.Hold([]byte("img"))
	require.NoError(t, err)

	inKeep, proceed := make(chan struct{}), make(chan struct{})
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := s.Prune(func() []string {
			close(inKeep)
			<-proceed
			return nil
		})
		done <- result{n, err}
	}()
	<-inKeep

	released := make(chan struct{})
	go func() {
		release()
		close(released)
	}()
	select {
	case <-released:
		t.Fatal("release completed while Prune was running")
	case <-time.After(20 * time.Millisecond):
	}

	close(proceed)
	r := <-done
	require.NoError(t, r.err)
	assert.Zero(t, r.n)
	assert.FileExists(t, path)
	<-released
}

func TestPrune_MissingDir(t *testing.T) {
	n, err := New(filepath.Join(t.TempDir(), "nope")).Prune(func() []string { return nil })
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHash_Stable(t *testing.T) {
	assert.Equal(t, Hash([]byte("x")), Hash([]byte("x")))
	assert.Len(t, Hash([]byte("x")), 32)
}

func TestResolve_Relative(t *testing.T) {
	s := New(t.TempDir())
	p, err := s.Put([]byte("legacy"))
	require.NoError(t, err)

	rel := filepath.Base(p)
	assert.Equal(t, p, s.Resolve(rel))
	b, err := s.Read(rel)
	require.NoError(t, err)
	assert.Equal(t, "legacy", string(b))

	n, err := s.Prune(func() []string { return []string{rel} })
	require.NoError(t, err)
	assert.Zero(t, n)
}
