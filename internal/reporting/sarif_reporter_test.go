// internal/reporting/sarif_reporter_test.go
package reporting_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/analysis"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/engine"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/reporting"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/reporting/sarif"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/rules"
)

// MockWriteCloser allows capturing output and simulating I/O errors.
type MockWriteCloser struct {
	Buffer    *bytes.Buffer
	FailWrite bool
	FailClose bool
}

// Write writes to the internal buffer, simulating a write error if configured.
func (m *MockWriteCloser) Write(p []byte) (n int, err error) {
	if m.FailWrite {
		return 0, errors.New("simulated write error")
	}
	return m.Buffer.Write(p)
}

// Close simulates a closing error if configured.
func (m *MockWriteCloser) Close() error {
	if m.FailClose {
		return errors.New("simulated close error")
	}
	return nil
}

func setupSARIFTest(t *testing.T) (*reporting.SARIFReporter, *MockWriteCloser) {
	mockWriter := &MockWriteCloser{Buffer: new(bytes.Buffer)}
	reporter := reporting.NewSARIFReporter(mockWriter, "v1.2.3-test", zaptest.NewLogger(t))
	return reporter, mockWriter
}

func vuln(method, path string, line int) rules.Vulnerability {
	v := rules.Vulnerability{
		Method:      method,
		Finding:     "F004",
		Description: "Remote command execution.",
		Path:        path,
		Line:        line,
		Column:      5,
		Sink:        "Runtime.getRuntime().exec",
		Snippet:     "Runtime.getRuntime().exec(cmd);",
		Triggers:    []string{"userparams"},
		Trace:       []int{2, 3, line},
	}
	v.ID = rules.Identify(v)
	return v
}

func scanOf(files ...*analysis.FileResult) *engine.ScanResult {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &engine.ScanResult{ID: "scan-1", StartedAt: now, FinishedAt: now.Add(time.Second), Files: files}
}

func decode(t *testing.T, w *MockWriteCloser) sarif.Log {
	t.Helper()
	var log sarif.Log
	require.NoError(t, json.Unmarshal(w.Buffer.Bytes(), &log), "Output should be valid SARIF JSON")
	return log
}

// TestSARIFReporter_Initialization verifies the structure of an empty report.
func TestSARIFReporter_Initialization(t *testing.T) {
	reporter, writer := setupSARIFTest(t)
	require.NoError(t, reporter.Close())

	log := decode(t, writer)
	assert.Equal(t, reporting.SARIFVersion, log.Version)
	require.Len(t, log.Runs, 1)
	run := log.Runs[0]

	require.NotNil(t, run.Tool)
	require.NotNil(t, run.Tool.Driver)
	assert.Equal(t, reporting.ToolName, run.Tool.Driver.Name)
	assert.Equal(t, "v1.2.3-test", *run.Tool.Driver.Version)

	// Ensure Results slice is initialized (JSON "[]") not null
	require.NotNil(t, run.Results)
	assert.Empty(t, run.Results)
	assert.Empty(t, run.Tool.Driver.Rules)
}

// TestSARIFReporter_WriteAndClose verifies the end-to-end process.
func TestSARIFReporter_WriteAndClose(t *testing.T) {
	reporter, writer := setupSARIFTest(t)

	v1 := vuln("java_remote_command_execution", "src/A.java", 5)
	v2 := vuln("java_remote_command_execution", "src/B.java", 9)
	v3 := vuln("java_sql_injection", "src/B.java", 12)
	v3.Finding = "F001"
	v3.Description = "SQL injection."

	res := scanOf(
		&analysis.FileResult{Path: "src/A.java", Vulnerabilities: []rules.Vulnerability{v1}},
		&analysis.FileResult{Path: "src/B.java", Vulnerabilities: []rules.Vulnerability{v3, v2}},
	)
	require.NoError(t, reporter.Write(res))
	require.NoError(t, reporter.Close())

	run := decode(t, writer).Runs[0]
	require.Len(t, run.Results, 3)
	require.Len(t, run.Tool.Driver.Rules, 2)

	// Results follow the scan order: file, then line.
	first := run.Results[0]
	assert.Equal(t, "SKIMS-JAVA_REMOTE_COMMAND_EXECUTION", first.RuleID)
	assert.Equal(t, 0, first.RuleIndex)
	assert.Equal(t, sarif.LevelError, first.Level)
	assert.Equal(t, "Remote command execution. Untrusted input (userparams) reaches Runtime.getRuntime().exec.", *first.Message.Text)
	assert.Equal(t, v1.ID, first.PartialFingerprints[reporting.VulnerabilityIDKey])
	assert.NotEmpty(t, first.Fingerprints[reporting.SnippetKey])

	loc := first.Locations[0].PhysicalLocation
	assert.Equal(t, "src/A.java", *loc.ArtifactLocation.URI)
	assert.Equal(t, 5, loc.Region.StartLine)
	assert.Equal(t, 5, loc.Region.StartColumn)
	assert.Equal(t, "Runtime.getRuntime().exec(cmd);", *loc.Region.Snippet.Text)

	require.Len(t, first.CodeFlows, 1)
	steps := first.CodeFlows[0].ThreadFlows[0].Locations
	require.Len(t, steps, 3)
	assert.Equal(t, "entry", *steps[0].Location.Message.Text)
	assert.Equal(t, "sink", *steps[2].Location.Message.Text)
	assert.Equal(t, 5, steps[2].Location.PhysicalLocation.Region.StartLine)

	assert.Equal(t, first.RuleID, run.Results[1].RuleID)
	assert.Equal(t, "SKIMS-JAVA_SQL_INJECTION", run.Results[2].RuleID)
	assert.Equal(t, 1, run.Results[2].RuleIndex)

	// Same snippet in different files gives different fingerprints.
	assert.NotEqual(t, first.Fingerprints[reporting.SnippetKey], run.Results[1].Fingerprints[reporting.SnippetKey])

	rule := run.Tool.Driver.Rules[1]
	assert.Equal(t, "SQL injection.", *rule.FullDescription.Text)
	assert.Equal(t, "F001", (*rule.Properties)["finding"])

	require.Len(t, run.Invocations, 1)
	assert.True(t, run.Invocations[0].ExecutionSuccessful)
	assert.Equal(t, "2024-05-01T12:00:00Z", run.Invocations[0].StartTimeUTC)
}

// TestSARIFReporter_SnippetFingerprintIgnoresLine checks that a finding
// moved to another line keeps its snippet fingerprint.
func TestSARIFReporter_SnippetFingerprintIgnoresLine(t *testing.T) {
	fingerprint := func(line int) string {
		reporter, writer := setupSARIFTest(t)
		v := vuln("java_remote_command_execution", "src/A.java", line)
		require.NoError(t, reporter.Write(scanOf(&analysis.FileResult{Path: v.Path, Vulnerabilities: []rules.Vulnerability{v}})))
		require.NoError(t, reporter.Close())
		r := decode(t, writer).Runs[0].Results[0]
		assert.Equal(t, v.ID, r.PartialFingerprints[reporting.VulnerabilityIDKey])
		return r.Fingerprints[reporting.SnippetKey]
	}
	assert.Equal(t, fingerprint(5), fingerprint(40))
}

// TestSARIFReporter_RuleCollisionHandling verifies that vulnerabilities with
// the same method id but different meaning generate distinct rules.
func TestSARIFReporter_RuleCollisionHandling(t *testing.T) {
	reporter, writer := setupSARIFTest(t)

	a := vuln("custom", "a.py", 1)
	b := vuln("custom", "b.py", 1)
	b.Description = "Something else entirely."

	require.NoError(t, reporter.Write(scanOf(
		&analysis.FileResult{Path: "a.py", Vulnerabilities: []rules.Vulnerability{a}},
		&analysis.FileResult{Path: "b.py", Vulnerabilities: []rules.Vulnerability{b}},
	)))
	require.NoError(t, reporter.Close())

	run := decode(t, writer).Runs[0]
	require.Len(t, run.Tool.Driver.Rules, 2)
	assert.Equal(t, "SKIMS-CUSTOM", run.Results[0].RuleID)
	assert.Equal(t, "SKIMS-CUSTOM-1", run.Results[1].RuleID)
}

func TestSARIFReporter_RuleIDSanitization(t *testing.T) {
	testCases := []struct {
		method string
		want   string
	}{
		{"java_sql_injection", "SKIMS-JAVA_SQL_INJECTION"},
		{"my method (v2)!", "SKIMS-MY-METHOD-V2"},
		{"a--b..c", "SKIMS-A-B..C"},
		{"", "SKIMS-UNNAMED-METHOD"},
		{"!!!", "SKIMS-UNKNOWN-METHOD"},
	}
	for _, tc := range testCases {
		t.Run(tc.method, func(t *testing.T) {
			reporter, writer := setupSARIFTest(t)
			v := vuln(tc.method, "a.py", 1)
			require.NoError(t, reporter.Write(scanOf(&analysis.FileResult{Path: "a.py", Vulnerabilities: []rules.Vulnerability{v}})))
			require.NoError(t, reporter.Close())
			assert.Equal(t, tc.want, decode(t, writer).Runs[0].Results[0].RuleID)
		})
	}
}

// TestSARIFReporter_FailedFiles verifies failed and skipped files surface
// as invocation notifications.
func TestSARIFReporter_FailedFiles(t *testing.T) {
	reporter, writer := setupSARIFTest(t)
	require.NoError(t, reporter.Write(scanOf(
		&analysis.FileResult{Path: "ok.py"},
		&analysis.FileResult{Path: "bad.py", Error: "analysis panicked: boom"},
		&analysis.FileResult{Path: "big.py", Error: "file exceeds the size limit", Skipped: true},
	)))
	require.NoError(t, reporter.Close())

	inv := decode(t, writer).Runs[0].Invocations[0]
	assert.False(t, inv.ExecutionSuccessful)
	require.Len(t, inv.ToolExecutionNotifications, 2)
	assert.Equal(t, sarif.LevelError, inv.ToolExecutionNotifications[0].Level)
	assert.Equal(t, "bad.py", *inv.ToolExecutionNotifications[0].Locations[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, sarif.LevelNote, inv.ToolExecutionNotifications[1].Level)
}

// TestSARIFReporter_Concurrency ensures Write is safe to call from many goroutines.
func TestSARIFReporter_Concurrency(t *testing.T) {
	reporter, writer := setupSARIFTest(t)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := fmt.Sprintf("f%02d.py", i)
			v := vuln("python_remote_command_execution", path, i+1)
			assert.NoError(t, reporter.Write(scanOf(&analysis.FileResult{Path: path, Vulnerabilities: []rules.Vulnerability{v}})))
		}(i)
	}
	wg.Wait()
	require.NoError(t, reporter.Close())

	run := decode(t, writer).Runs[0]
	assert.Len(t, run.Results, writers)
	assert.Len(t, run.Tool.Driver.Rules, 1)
	assert.Len(t, run.Invocations, writers)
}

func TestSARIFReporter_ErrorHandling(t *testing.T) {
	t.Run("Close Error", func(t *testing.T) {
		reporter, writer := setupSARIFTest(t)
		writer.FailClose = true
		err := reporter.Close()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to close output writer")
	})

	t.Run("Encode Error (simulated by write failure)", func(t *testing.T) {
		reporter, writer := setupSARIFTest(t)
		writer.FailWrite = true
		writer.FailClose = true
		err := reporter.Close()
		require.Error(t, err)
		// The encoding error takes priority over the close error.
		assert.Contains(t, err.Error(), "failed to encode SARIF output")
	})

	t.Run("Nil Result", func(t *testing.T) {
		reporter, _ := setupSARIFTest(t)
		assert.Error(t, reporter.Write(nil))
	})
}
