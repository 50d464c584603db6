package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Skufu/GlucoRisk/internal/features"
)

// writeArtifacts stores a zero-weight logistic model so every record scores 0.5.
func writeArtifacts(t *testing.T) (model, schema string) {
	t.Helper()
	dir := t.TempDir()
	model = filepath.Join(dir, "model.json")
	schema = filepath.Join(dir, "columns.json")
	require.NoError(t, os.WriteFile(model, []byte(`{"weights":[0,0,0,0],"bias":0}`), 0o600))
	require.NoError(t, os.WriteFile(schema, []byte(`["age","bmi","gender_Male","gender_Female"]`), 0o600))
	return model, schema
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(context.Background(), append([]string{"riskctl"}, args...))
	return out.String(), err
}

func TestScoreText(t *testing.T) {
	model, schema := writeArtifacts(t)

	out, err := run(t, "score", "--model", model, "--schema", schema, "--model-format", "logistic", "--age", "55")
	require.NoError(t, err)
	assert.Contains(t, out, "Estimated probability of diabetes: 0.500")
	assert.Contains(t, out, "Risk level: Medium")
}

func TestScoreJSON(t *testing.T) {
	model, schema := writeArtifacts(t)

	out, err := run(t, "--format", "json", "score", "--model", model, "--schema", schema, "--model-format", "logistic")
	require.NoError(t, err)

	var got struct {
		Probability float64 `json:"probability"`
		Display     string  `json:"display"`
		Tier        string  `json:"tier"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 0.5, got.Probability)
	assert.Equal(t, "0.500", got.Display)
	assert.Equal(t, "Medium", got.Tier)
}

func TestScoreRejectsOutOfRange(t *testing.T) {
	model, schema := writeArtifacts(t)

	_, err := run(t, "score", "--model", model, "--schema", schema, "--model-format", "logistic", "--systolic-bp", "10")
	require.Error(t, err)
	var fe features.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "systolic_bp", fe[0].Field)
}

func TestScoreRejectsBadSet(t *testing.T) {
	model, schema := writeArtifacts(t)

	_, err := run(t, "score", "--model", model, "--schema", schema, "--model-format", "logistic", "--set", "blood_type=O")
	assert.ErrorContains(t, err, "unknown field")

	_, err = run(t, "score", "--model", model, "--schema", schema, "--model-format", "logistic", "--set", "diet_score")
	assert.ErrorContains(t, err, "expected name=value")

	_, err = run(t, "score", "--model", model, "--schema", schema, "--model-format", "logistic", "--set", "diet_score=high")
	assert.Error(t, err)
}

func TestScoreMissingArtifacts(t *testing.T) {
	_, err := run(t, "score", "--model", filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestExplainYAML(t *testing.T) {
	model, schema := writeArtifacts(t)

	out, err := run(t, "--format", "yaml", "explain",
		"--model", model, "--schema", schema, "--model-format", "logistic",
		"--gender", "Female", "--set", "ethnicity=Asian")
	require.NoError(t, err)

	var got features.Alignment
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"age", "bmi", "gender_Female"}, got.Matched)
	assert.Contains(t, got.Dropped, "ethnicity_Asian")
	assert.Contains(t, got.Dropped, "smoking_status_Never")
	assert.Equal(t, 1, got.ZeroFilled)
}

func TestColumns(t *testing.T) {
	model, schema := writeArtifacts(t)

	out, err := run(t, "columns", "--model", model, "--schema", schema, "--model-format", "logistic")
	require.NoError(t, err)
	assert.Contains(t, out, "   0  age")
	assert.Contains(t, out, "   3  gender_Female")
}

func TestUnknownFormat(t *testing.T) {
	model, schema := writeArtifacts(t)

	_, err := run(t, "--format", "xml", "columns", "--model", model, "--schema", schema, "--model-format", "logistic")
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestPublishRequiresDB(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	model, schema := writeArtifacts(t)

	_, err := run(t, "publish", "--model", model, "--schema", schema, "--model-format", "logistic")
	assert.ErrorContains(t, err, "--db is required")
}

func TestFlagName(t *testing.T) {
	assert.Equal(t, "waist-to-hip-ratio", flagName("waist_to_hip_ratio"))
	assert.Equal(t, "age", flagName("age"))
}
