package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
)

const ordersSchema = `name: orders
fields:
  - name: Id
    type: int
    auto_increment: true
  - name: Amt
    type: real
    attribute: amount
  - name: Name
    type: text
`

const ordersData = `{"Id": 1, "amount": 10, "Name": "a"}
{"Id": 2, "amount": 20, "Name": "b"}
{"Id": 3, "amount": 30, "Name": "c"}
`

// setup writes a schema and data file into a fresh working directory and
// returns the global flags that point at them.
func setup(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.yaml"), []byte(ordersSchema), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.jsonl"), []byte(ordersData), 0o600))
	return []string{"--schema", "orders.yaml", "--file-path", "orders.jsonl"}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestSelectJSON(t *testing.T) {
	global := setup(t)
	out, err := run(t, append(global, "-o", "json", "select",
		"-w", "Amt > 15", "--order-by", "-Amt", "--include", "SUM(Amt), Total")...)
	require.NoError(t, err)

	var resp struct {
		Total      int              `json:"total"`
		Results    []map[string]any `json:"results"`
		Aggregates map[string]any   `json:"aggregates"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "c", resp.Results[0]["Name"])
	assert.Equal(t, "b", resp.Results[1]["Name"])
	assert.Equal(t, 50.0, resp.Aggregates["SUM(Amt)"])
}

func TestSelectTable(t *testing.T) {
	global := setup(t)
	out, err := run(t, append(global, "select", "--fields", "Name", "--take", "1", "--order-by", "Name")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Name")
	assert.Contains(t, out, "a")
	assert.NotContains(t, out, "Amt")

	out, err = run(t, append(global, "select", "-w", "Amt > 100")...)
	require.NoError(t, err)
	assert.Contains(t, out, "(0 rows)")
}

func TestCount(t *testing.T) {
	global := setup(t)
	out, err := run(t, append(global, "count", "-w", "Name In (a, c)")...)
	require.NoError(t, err)
	assert.Equal(t, "2", strings.TrimSpace(out))
}

func TestAggregate(t *testing.T) {
	global := setup(t)

	out, err := run(t, append(global, "aggregate", "AVG", "Amt")...)
	require.NoError(t, err)
	assert.Equal(t, "20", strings.TrimSpace(out))

	out, err = run(t, append(global, "aggregate", "count", "Name", "--distinct")...)
	require.NoError(t, err)
	assert.Equal(t, "3", strings.TrimSpace(out))

	out, err = run(t, append(global, "aggregate", "LAST", "Name", "--order-by", "Amt")...)
	require.NoError(t, err)
	assert.Equal(t, "c", strings.TrimSpace(out))

	_, err = run(t, append(global, "aggregate", "MEDIAN", "Amt")...)
	assert.True(t, mserrors.IsCode(err, mserrors.ErrUnsupportedAggregate))
}

func TestDefineCondition(t *testing.T) {
	global := setup(t)
	out, err := run(t, append(global, "count",
		"--define", "near=field > operand - 5.0 && field < operand + 5.0",
		"-w", "Amt near 12")...)
	require.NoError(t, err)
	assert.Equal(t, "1", strings.TrimSpace(out))
}

func TestSchemaCommand(t *testing.T) {
	global := setup(t)
	out, err := run(t, append(global, "-o", "json", "schema")...)
	require.NoError(t, err)

	var got struct {
		PrimaryKey string `json:"primaryKey"`
		Fields     []struct {
			Name      string `json:"name"`
			Attribute string `json:"attribute"`
		} `json:"fields"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Id", got.PrimaryKey)
	require.Len(t, got.Fields, 3)
	assert.Equal(t, "amount", got.Fields[1].Attribute)
}

func TestImportIntoSQLite(t *testing.T) {
	setup(t)
	sqliteFlags := []string{"--schema", "orders.yaml", "--backend", "sqlite", "--sqlite-path", "orders.db"}

	out, err := run(t, append(sqliteFlags, "import", "--init", "orders.jsonl")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Inserted 3 records into sqlite")

	out, err = run(t, append(sqliteFlags, "aggregate", "SUM", "Amt", "-w", "Id >= 2")...)
	require.NoError(t, err)
	assert.Equal(t, "50", strings.TrimSpace(out))
}

func TestMissingSchema(t *testing.T) {
	setup(t)
	_, err := run(t, "count")
	assert.True(t, mserrors.IsCode(err, mserrors.ErrConfig))
}

func TestConfigFileAndEnv(t *testing.T) {
	setup(t)
	require.NoError(t, os.WriteFile("dynaquery.yaml", []byte("schema: orders.yaml\nfile:\n  path: orders.jsonl\n"), 0o600))
	t.Setenv("DYNAQUERY_OUTPUT", "json")

	out, err := run(t, "count", "-w", "Amt >= 20")
	require.NoError(t, err)
	assert.JSONEq(t, `{"count": 2}`, out)
}
