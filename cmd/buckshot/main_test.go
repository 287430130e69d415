package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/buckshot/internal/config"
	"github.com/tatianab/buckshot/internal/models"
)

func writeConfig(t *testing.T, saveDir string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "buckshot.yaml")
	data := "save_dir: " + saveDir + "\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRecordsEmpty(t *testing.T) {
	path := writeConfig(t, filepath.Join(t.TempDir(), "saves"))
	out, err := execute(t, "records", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No saved records.")
}

func TestRecordsLists(t *testing.T) {
	saves := t.TempDir()
	record := &models.GameRecord{
		Model:   "gemini-2.5-flash",
		Outcome: "finished",
		Final:   models.GameState{PlayerHealth: 2, DealerHealth: 0},
		Actions: []models.ActionEntry{{Turn: 1, Command: "shoot dealer"}},
	}
	require.NoError(t, record.Save(saves, "first"))

	out, err := execute(t, "records", "--config", writeConfig(t, saves))
	require.NoError(t, err)
	assert.Contains(t, out, "first\tfinished\t1 actions\tyou 2 / dealer 0")
}

func TestPlayNeedsAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := execute(t, "play", "--config", writeConfig(t, t.TempDir()))
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
}
