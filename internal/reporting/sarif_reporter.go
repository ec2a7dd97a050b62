// internal/reporting/sarif_reporter.go
package reporting

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/engine"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/reporting/sarif"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/rules"
)

// Constants for tool identification in the SARIF report.
const (
	ToolName     = "skims"
	ToolInfoURI  = "https://github.com/jeanbaptistemora/fluidattacks-universe2-sub022"
	SARIFVersion = "2.1.0"
	SARIFSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"

	// Keys of the result fingerprints.
	VulnerabilityIDKey = "skimsVulnerabilityId/v1"
	SnippetKey         = "skimsSnippetHash/v1"
)

// ruleIDSanitizer replaces characters not typically safe or allowed in SARIF Rule IDs.
// We allow alphanumeric, underscore, and dot. Everything else is replaced by a
// single hyphen, collapsing consecutive sequences.
var ruleIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_.]+`)

// RuleFingerprint is used to uniquely identify a rule definition based on its content.
type RuleFingerprint string

// calculateFingerprint hashes what defines the rule behind a vulnerability,
// so two catalogs that reuse a method id with different meanings get
// distinct rules.
func calculateFingerprint(v rules.Vulnerability) RuleFingerprint {
	data := struct {
		Method      string
		Finding     string
		Description string
	}{
		Method:      v.Method,
		Finding:     v.Finding,
		Description: v.Description,
	}
	h := sha1.New()
	// Encoding errors are highly unlikely for this simple struct.
	_ = json.NewEncoder(h).Encode(data)
	return RuleFingerprint(hex.EncodeToString(h.Sum(nil)))
}

// snippetFingerprint survives line shifts: it hashes the method, the file
// and the flagged source line but not the line number.
func snippetFingerprint(v rules.Vulnerability) string {
	sum := sha1.Sum([]byte(v.Method + "\x00" + filepath.ToSlash(v.Path) + "\x00" + v.Snippet))
	return hex.EncodeToString(sum[:])
}

// SARIFReporter implements the Reporter interface for the SARIF 2.1.0 format.
// It is thread safe.
type SARIFReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	log    *sarif.Log
	// mu protects the log structure and the maps.
	mu sync.Mutex
	// rulesByFingerprint maps a content fingerprint to the index of its rule.
	rulesByFingerprint map[RuleFingerprint]int
	// ruleIDUsage tracks how many times a base Rule ID has been used, to handle collisions.
	ruleIDUsage map[string]int
}

// NewSARIFReporter creates a new reporter that writes SARIF output.
func NewSARIFReporter(writer io.WriteCloser, toolVersion string, logger *zap.Logger) *SARIFReporter {
	log := &sarif.Log{
		Version: SARIFVersion,
		Schema:  SARIFSchema,
		Runs: []*sarif.Run{
			{
				Tool: &sarif.Tool{
					Driver: &sarif.ToolComponent{
						Name:           ToolName,
						Version:        pString(toolVersion),
						InformationURI: pString(ToolInfoURI),
						// Initialize empty slices (not nil) for proper JSON marshalling
						Rules: []*sarif.ReportingDescriptor{},
					},
				},
				Results: []*sarif.Result{},
			},
		},
	}

	return &SARIFReporter{
		writer:             writer,
		logger:             logger.Named("sarif_reporter"),
		log:                log,
		rulesByFingerprint: make(map[RuleFingerprint]int),
		ruleIDUsage:        make(map[string]int),
	}
}

// Write converts the vulnerabilities of a scan into SARIF results and
// records the scan as an invocation.
func (r *SARIFReporter) Write(result *engine.ScanResult) error {
	if result == nil {
		return fmt.Errorf("scan result cannot be nil")
	}
	startTime := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	vulns := result.Vulnerabilities()
	for _, v := range vulns {
		index := r.ensureRule(v)
		run.Results = append(run.Results, &sarif.Result{
			RuleID:    run.Tool.Driver.Rules[index].ID,
			RuleIndex: index,
			Message:   &sarif.Message{Text: pString(resultMessage(v))},
			Level:     sarif.LevelError,
			Locations: []*sarif.Location{location(v.Path, v.Line, v.Column, v.Snippet, "")},
			CodeFlows: codeFlows(v),
			Fingerprints: map[string]string{
				SnippetKey: snippetFingerprint(v),
			},
			PartialFingerprints: map[string]string{
				VulnerabilityIDKey: v.ID,
			},
			Properties: &sarif.PropertyBag{
				"finding":  v.Finding,
				"triggers": v.Triggers,
			},
		})
	}
	run.Invocations = append(run.Invocations, invocation(result))

	r.logger.Debug("Wrote vulnerabilities to SARIF buffer",
		zap.String("scan_id", result.ID),
		zap.Int("results_count", len(vulns)),
		zap.Duration("duration_ms", time.Since(startTime)),
	)
	return nil
}

// Close finalizes the SARIF log and writes it to the output writer.
func (r *SARIFReporter) Close() error {
	startTime := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	r.logger.Info("Finalizing SARIF report",
		zap.Int("total_results", len(run.Results)),
		zap.Int("total_rules", len(run.Tool.Driver.Rules)),
	)

	data, encodeErr := json.MarshalIndent(r.log, "", "  ")
	if encodeErr == nil {
		_, encodeErr = r.writer.Write(append(data, '\n'))
	}
	// Always attempt to close the writer, regardless of encoding success.
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode SARIF log to JSON", zap.Error(encodeErr))
		// Prioritize the encoding error as it indicates corrupted/incomplete output.
		return fmt.Errorf("failed to encode SARIF output: %w", encodeErr)
	}
	if closeErr != nil {
		r.logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}

	r.logger.Info("Successfully wrote SARIF report",
		zap.Duration("duration_ms", time.Since(startTime)),
	)
	return nil
}

// sanitizeRuleName creates a standardized base name for the rule ID.
func sanitizeRuleName(name string) string {
	if name == "" {
		return "UNNAMED-METHOD"
	}
	sanitizedName := strings.ToUpper(name)
	sanitizedName = ruleIDSanitizer.ReplaceAllString(sanitizedName, "-")
	sanitizedName = strings.Trim(sanitizedName, "-")
	if sanitizedName == "" {
		return "UNKNOWN-METHOD"
	}
	return sanitizedName
}

// ensureRule ensures a unique rule definition exists for the vulnerability
// and returns its index in the driver rules.
// NOTE: Must be called while holding the mutex.
func (r *SARIFReporter) ensureRule(v rules.Vulnerability) int {
	fingerprint := calculateFingerprint(v)
	if index, exists := r.rulesByFingerprint[fingerprint]; exists {
		return index
	}

	baseRuleID := "SKIMS-" + sanitizeRuleName(v.Method)
	usageCount := r.ruleIDUsage[baseRuleID]
	r.ruleIDUsage[baseRuleID] = usageCount + 1

	finalRuleID := baseRuleID
	if usageCount > 0 {
		finalRuleID = fmt.Sprintf("%s-%d", baseRuleID, usageCount)
		r.logger.Debug("Rule ID collision detected, generated new ID with suffix",
			zap.String("base_id", baseRuleID),
			zap.String("final_id", finalRuleID),
		)
	}
	r.logger.Debug("Registering new SARIF rule definition", zap.String("rule_id", finalRuleID))

	description := v.Description
	if description == "" {
		description = v.Method
	}
	markdownHelp := fmt.Sprintf("**Method:** `%s`\n\n**Finding:** %s\n\n**Description:**\n%s",
		v.Method, v.Finding, description)

	driver := r.log.Runs[0].Tool.Driver
	driver.Rules = append(driver.Rules, &sarif.ReportingDescriptor{
		ID:               finalRuleID,
		Name:             pString(v.Method),
		ShortDescription: &sarif.MultiformatMessageString{Text: pString(v.Method)},
		FullDescription:  &sarif.MultiformatMessageString{Text: pString(description)},
		Help: &sarif.MultiformatMessageString{
			Text:     pString(description),
			Markdown: pString(markdownHelp),
		},
		Properties: &sarif.PropertyBag{
			"tags":      []string{"security", "taint"},
			"precision": "high",
			"finding":   v.Finding,
		},
	})
	index := len(driver.Rules) - 1
	r.rulesByFingerprint[fingerprint] = index
	return index
}

func resultMessage(v rules.Vulnerability) string {
	flow := fmt.Sprintf("Untrusted input (%s) reaches %s.", strings.Join(v.Triggers, ", "), v.Sink)
	if v.Description == "" {
		return flow
	}
	return strings.TrimSuffix(v.Description, ".") + ". " + flow
}

func location(path string, line, column int, snippet, message string) *sarif.Location {
	loc := &sarif.Location{
		PhysicalLocation: &sarif.PhysicalLocation{
			ArtifactLocation: &sarif.ArtifactLocation{URI: pString(filepath.ToSlash(path))},
		},
	}
	if line > 0 {
		region := &sarif.Region{StartLine: line}
		if column > 0 {
			region.StartColumn = column
		}
		if snippet != "" {
			region.Snippet = &sarif.ArtifactContent{Text: pString(snippet)}
		}
		loc.PhysicalLocation.Region = region
	}
	if message != "" {
		loc.Message = &sarif.Message{Text: pString(message)}
	}
	return loc
}

// codeFlows renders the witness path, one thread flow location per line.
func codeFlows(v rules.Vulnerability) []*sarif.CodeFlow {
	if len(v.Trace) == 0 {
		return nil
	}
	flow := &sarif.ThreadFlow{}
	for i, line := range v.Trace {
		msg := "step"
		switch i {
		case 0:
			msg = "entry"
		case len(v.Trace) - 1:
			msg = "sink"
		}
		flow.Locations = append(flow.Locations, &sarif.ThreadFlowLocation{
			Location: location(v.Path, line, 0, "", msg),
		})
	}
	return []*sarif.CodeFlow{{ThreadFlows: []*sarif.ThreadFlow{flow}}}
}

// invocation reports failed and skipped files as notifications.
func invocation(result *engine.ScanResult) *sarif.Invocation {
	inv := &sarif.Invocation{
		ExecutionSuccessful: result.Failed() == 0,
		StartTimeUTC:        result.StartedAt.UTC().Format(time.RFC3339),
		EndTimeUTC:          result.FinishedAt.UTC().Format(time.RFC3339),
	}
	for _, f := range result.Files {
		if f.Error == "" {
			continue
		}
		level := sarif.LevelError
		if f.Skipped {
			level = sarif.LevelNote
		}
		inv.ToolExecutionNotifications = append(inv.ToolExecutionNotifications, &sarif.Notification{
			Level:     level,
			Message:   &sarif.Message{Text: pString(f.Error)},
			Locations: []*sarif.Location{location(f.Path, 0, 0, "", "")},
		})
	}
	return inv
}

// pString returns a pointer to the given string value. Helper for optional SARIF fields.
func pString(s string) *string {
	return &s
}
