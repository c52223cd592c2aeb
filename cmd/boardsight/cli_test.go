package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/thyrook/boardsight/internal/config"
	"github.com/thyrook/boardsight/internal/model"
	"github.com/thyrook/boardsight/internal/vision"
)

const sampleFEN = "1B1K4-1p5N-7p-1qp5-n1P5-8-6k1-b7"

// testEnv points the global config at a temp directory
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	appLogger = zap.NewNop()
	cfg = config.DefaultConfig()
	cfg.Model.Path = filepath.Join(dir, "square_cnn.gob")
	cfg.Model.BatchSize = 16
	cfg.History.DBPath = filepath.Join(dir, "history.db")

	t.Cleanup(func() {
		cfg = nil
		dryRun, failFast, noHistory = false, false, false
		extension = ""
		encodeValidate, decodeDraw = false, false
		historyLimit, historyShow, historyPrune, historyExport = 10, 0, -1, ""
		renderOut, renderExt = ".", ""
	})
	return dir
}

func run(t *testing.T, fn func(*cobra.Command, []string) error, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	err := fn(cmd, args)
	return buf.String(), err
}

func TestSetupCreatesOutputDirectories(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvHistoryDB, "")

	c := config.DefaultConfig()
	c.Logging.Path = ""
	c.History.DBPath = filepath.Join(dir, "state", "boards", "history.db")
	path := filepath.Join(dir, "boardsight.yaml")
	require.NoError(t, c.Save(path))

	oldPath := configPath
	configPath = path
	t.Cleanup(func() {
		configPath = oldPath
		cfg, appLogger = nil, nil
	})

	require.NoError(t, setup())
	assert.Equal(t, c.History.DBPath, cfg.History.DBPath)
	assert.DirExists(t, filepath.Join(dir, "state", "boards"))
}

func TestEncodeDecodeCmd(t *testing.T) {
	testEnv(t)

	out, err := run(t, runEncode, sampleFEN)
	require.NoError(t, err)
	seq := strings.TrimSpace(out)
	assert.Len(t, seq, 64)

	out, err = run(t, runDecode, seq)
	require.NoError(t, err)
	assert.Equal(t, sampleFEN, strings.TrimSpace(out))

	_, err = run(t, runDecode, "too-short")
	assert.Error(t, err)

	decodeDraw = true
	out, err = run(t, runDecode, seq)
	require.NoError(t, err)
	assert.Contains(t, out, "A B C D E F G H")
}

func TestEncodeValidate(t *testing.T) {
	testEnv(t)

	encodeValidate = true
	_, err := run(t, runEncode, "9-7-8-8-8-8-8-8")
	assert.Error(t, err)

	_, err = run(t, runEncode, sampleFEN)
	assert.NoError(t, err)
}

func TestParseRegion(t *testing.T) {
	r, err := parseRegion("10, 20,400,400")
	require.NoError(t, err)
	assert.Equal(t, vision.CaptureRegion{X: 10, Y: 20, Width: 400, Height: 400}, r)

	_, err = parseRegion("1,2,3")
	assert.Error(t, err)
	_, err = parseRegion("a,b,c,d")
	assert.Error(t, err)
}

func TestRenderRejectsBadPlacement(t *testing.T) {
	testEnv(t)
	renderOut = t.TempDir()

	_, err := run(t, runRender, "9-8-8-8-8-8-8-8")
	assert.Error(t, err)
}

func TestPredictDirMissingModel(t *testing.T) {
	testEnv(t)

	_, err := run(t, runPredictDir, t.TempDir())
	assert.ErrorContains(t, err, "model checkpoint not found")
}

func TestPredictDirAndHistory(t *testing.T) {
	dir := testEnv(t)

	cnn, err := model.NewSquareCNN(cfg.Model.BatchSize)
	require.NoError(t, err)
	require.NoError(t, cnn.Save(cfg.Model.Path))
	require.NoError(t, cnn.Close())

	boards := filepath.Join(dir, "boards")
	renderOut = boards
	out, err := run(t, runRender, sampleFEN, "8-8-8-8-8-8-8-8")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(boards, sampleFEN+".jpeg"))

	out, err = run(t, runPredictDir, boards)
	require.NoError(t, err)
	assert.Contains(t, out, "Files:   2")
	assert.Contains(t, out, "Saved output to:")

	reports, err := filepath.Glob(filepath.Join(boards, "*.json"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	out, err = run(t, runHistory)
	require.NoError(t, err)
	assert.Contains(t, out, boards)

	historyShow = 1
	out, err = run(t, runHistory)
	require.NoError(t, err)
	assert.Contains(t, out, "Folder:  "+boards)

	out, err = run(t, runPredictFile, filepath.Join(boards, sampleFEN+".jpeg"))
	require.NoError(t, err)
	assert.Contains(t, out, "Truth:     "+"_B_K____")

	recognizeImage = filepath.Join(boards, sampleFEN+".jpeg")
	defer func() { recognizeImage = "" }()
	out, err = run(t, runRecognize)
	require.NoError(t, err)
	assert.Equal(t, 8, strings.Count(strings.TrimSpace(out), "-")+1)
}
