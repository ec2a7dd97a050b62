// File: cmd/main_test.go
package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/mock"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/analysis"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/config"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/cst"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/engine"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/mocks"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/observability"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/reporting"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/rules"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/service"
)

// resetForTest isolates a test from the global logger, the working
// directory and SKIMS_ variables of the environment.
func resetForTest(t *testing.T) {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)
	// Keeps a stray ./skims.yaml out of the test.
	t.Chdir(t.TempDir())
	t.Setenv("SKIMS_LOGGER_LEVEL", "error")
}

// mockStoreProvider is a storeProvider returning a fixed store.
type mockStoreProvider struct {
	mock.Mock
}

func (m *mockStoreProvider) Create(ctx context.Context, cfg config.Interface) (service.ScanStore, func(), error) {
	args := m.Called(ctx, cfg)
	st, _ := args.Get(0).(service.ScanStore)
	cleanup, _ := args.Get(1).(func())
	return st, cleanup, args.Error(2)
}

// newTestRoot builds a root command whose dependencies are mocks.
func newTestRoot(factory service.ComponentFactory, provider storeProvider) *cobra.Command {
	if factory == nil {
		factory = new(mocks.MockComponentFactory)
	}
	if provider == nil {
		provider = new(mockStoreProvider)
	}
	return newRootCmd(factory, provider, reporting.New)
}

// executeCommand runs root with args and returns everything it printed.
func executeCommand(root *cobra.Command, args ...string) (string, error) {
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// sampleResult is a finished scan with one vulnerable file.
func sampleResult() *engine.ScanResult {
	v := rules.Vulnerability{
		ID:          "vuln-1",
		Method:      "js_remote_command_execution",
		Finding:     "F004",
		Description: "User input reaches an operating system command.",
		Path:        "src/app.js",
		Line:        2,
		Column:      3,
		Sink:        "eval",
		Snippet:     "eval(req.body.code);",
		Triggers:    []string{"userparams"},
		Trace:       []int{1, 2},
	}
	return &engine.ScanResult{
		ID: "scan-1",
		Files: []*analysis.FileResult{
			{Path: "src/app.js", Language: cst.JavaScript, Vulnerabilities: []rules.Vulnerability{v}},
			{Path: "src/util.js", Language: cst.JavaScript},
		},
	}
}
