// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/config"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/engine"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/rules"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/service"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Database() config.DatabaseConfig {
	args := m.Called()
	return args.Get(0).(config.DatabaseConfig)
}

func (m *MockConfig) Engine() config.EngineConfig {
	args := m.Called()
	return args.Get(0).(config.EngineConfig)
}

func (m *MockConfig) Analysis() config.AnalysisConfig {
	args := m.Called()
	return args.Get(0).(config.AnalysisConfig)
}

func (m *MockConfig) Discovery() config.DiscoveryConfig {
	args := m.Called()
	return args.Get(0).(config.DiscoveryConfig)
}

func (m *MockConfig) Report() config.ReportConfig {
	args := m.Called()
	return args.Get(0).(config.ReportConfig)
}

// --- Setters ---

func (m *MockConfig) SetEngineWorkerConcurrency(w int) { m.Called(w) }
func (m *MockConfig) SetAnalysisMaxPaths(n int)        { m.Called(n) }
func (m *MockConfig) SetAnalysisCatalogPath(p string)  { m.Called(p) }
func (m *MockConfig) SetDiscoveryUseGit(b bool)        { m.Called(b) }
func (m *MockConfig) SetReportFormat(f string)         { m.Called(f) }
func (m *MockConfig) SetReportOutput(o string)         { m.Called(o) }
func (m *MockConfig) SetDatabaseEnabled(b bool)        { m.Called(b) }

// -- Service Mocks --

// MockComponentFactory mocks service.ComponentFactory.
type MockComponentFactory struct {
	mock.Mock
}

func (m *MockComponentFactory) Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*service.Components, error) {
	args := m.Called(ctx, cfg, logger)
	components, _ := args.Get(0).(*service.Components)
	return components, args.Error(1)
}

// MockDiscoverer mocks service.FileDiscoverer.
type MockDiscoverer struct {
	mock.Mock
}

func (m *MockDiscoverer) Discover(ctx context.Context, targets []string) ([]string, error) {
	args := m.Called(ctx, targets)
	files, _ := args.Get(0).([]string)
	return files, args.Error(1)
}

// MockRunner mocks service.ScanRunner.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, files []string) (*engine.ScanResult, error) {
	args := m.Called(ctx, files)
	result, _ := args.Get(0).(*engine.ScanResult)
	return result, args.Error(1)
}

// MockStore mocks service.ScanStore.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) PersistScan(ctx context.Context, scan *engine.ScanResult) error {
	args := m.Called(ctx, scan)
	return args.Error(0)
}

func (m *MockStore) GetScan(ctx context.Context, scanID string) (*engine.ScanResult, error) {
	args := m.Called(ctx, scanID)
	scan, _ := args.Get(0).(*engine.ScanResult)
	return scan, args.Error(1)
}

func (m *MockStore) GetVulnerabilities(ctx context.Context, scanID string) ([]rules.Vulnerability, error) {
	args := m.Called(ctx, scanID)
	vulns, _ := args.Get(0).([]rules.Vulnerability)
	return vulns, args.Error(1)
}

// -- Reporting Mock --

// MockReporter mocks reporting.Reporter.
type MockReporter struct {
	mock.Mock
}

func (m *MockReporter) Write(scan *engine.ScanResult) error {
	args := m.Called(scan)
	return args.Error(0)
}

func (m *MockReporter) Close() error {
	args := m.Called()
	return args.Error(0)
}
