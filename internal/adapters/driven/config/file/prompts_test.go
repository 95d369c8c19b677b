package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
)

var testDefaults = map[string]string{
	driven.PromptDocumentAnalysis: "Analyse this: %s",
}

func TestNewPromptStore_NoIO(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")

	store, err := NewPromptStore(dir, testDefaults)
	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "constructor must not create the directory")
}

func TestPromptStore_WritesDefaultsOnFirstLoad(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir, testDefaults)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptDocumentAnalysis)
	require.NoError(t, err)
	assert.Equal(t, "Analyse this: %s", prompt)

	data, err := os.ReadFile(filepath.Join(dir, "document_analysis.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Analyse this: %s", string(data))
}

func TestPromptStore_UserEditWins(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "document_analysis.txt"), []byte("\n  Custom %s  \n"), 0600))

	store, err := NewPromptStore(dir, testDefaults)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptDocumentAnalysis)
	require.NoError(t, err)
	assert.Equal(t, "Custom %s", prompt)

	data, err := os.ReadFile(filepath.Join(dir, "document_analysis.txt"))
	require.NoError(t, err)
	assert.Equal(t, "\n  Custom %s  \n", string(data), "existing file must not be overwritten")
}

func TestPromptStore_ReloadPicksUpEdits(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir, testDefaults)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptDocumentAnalysis)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "document_analysis.txt"), []byte("Edited %s"), 0600))

	prompt, err := store.Load(driven.PromptDocumentAnalysis)
	require.NoError(t, err)
	assert.Equal(t, "Analyse this: %s", prompt, "cached until reload")

	store.Reload()
	prompt, err = store.Load(driven.PromptDocumentAnalysis)
	require.NoError(t, err)
	assert.Equal(t, "Edited %s", prompt)
}

func TestPromptStore_EmptyFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "document_analysis.txt"), []byte("   "), 0600))

	store, err := NewPromptStore(dir, testDefaults)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptDocumentAnalysis)
	require.NoError(t, err)
	assert.Equal(t, "Analyse this: %s", prompt)
}

func TestPromptStore_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir(), testDefaults)
	require.NoError(t, err)

	_, err = store.Load("nonexistent")
	assert.Error(t, err)
}

func TestPromptStore_InitFailureUsesDefaults(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	store, err := NewPromptStore(filepath.Join(blocker, "prompts"), testDefaults)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptDocumentAnalysis)
	require.NoError(t, err)
	assert.Equal(t, "Analyse this: %s", prompt)
}

func TestPromptStore_ConcurrentLoad(t *testing.T) {
	store, err := NewPromptStore(t.TempDir(), testDefaults)
	require.NoError(t, err)

	const goroutines = 50
	var wg sync.WaitGroup
	results := make(chan string, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prompt, err := store.Load(driven.PromptDocumentAnalysis)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			results <- prompt
		}()
	}
	wg.Wait()
	close(results)

	for prompt := range results {
		assert.Equal(t, "Analyse this: %s", prompt)
	}
}
