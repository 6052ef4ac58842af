package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/temirov/socialmigrate/internal/migration"
)

const (
	reportFilePermissionsConstant = 0o644
	writeReportTemplateConstant   = "write run report %s: %w"
	encodeReportTemplateConstant  = "encode run report: %w"
)

// RunReport is the document written by migrate --report.
type RunReport struct {
	RunID      string                  `yaml:"run_id"`
	StartedAt  time.Time               `yaml:"started_at"`
	FinishedAt time.Time               `yaml:"finished_at"`
	Groups     []migration.GroupReport `yaml:"groups"`
}

// Succeeded reports whether every group reached Done.
func (report RunReport) Succeeded() bool {
	for _, group := range report.Groups {
		if group.FinalState != migration.StateDone {
			return false
		}
	}
	return true
}

// EncodeRunReport writes report as YAML.
func EncodeRunReport(writer io.Writer, report RunReport) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if encodeError := encoder.Encode(report); encodeError != nil {
		return fmt.Errorf(encodeReportTemplateConstant, encodeError)
	}
	if closeError := encoder.Close(); closeError != nil {
		return fmt.Errorf(encodeReportTemplateConstant, closeError)
	}
	return nil
}

// WriteRunReport writes report as YAML to filePath, replacing an existing file.
func WriteRunReport(filePath string, report RunReport) error {
	reportFile, openError := os.OpenFile(filePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, reportFilePermissionsConstant)
	if openError != nil {
		return fmt.Errorf(writeReportTemplateConstant, filePath, openError)
	}
	encodeError := EncodeRunReport(reportFile, report)
	closeError := reportFile.Close()
	if encodeError != nil {
		return fmt.Errorf(writeReportTemplateConstant, filePath, encodeError)
	}
	if closeError != nil {
		return fmt.Errorf(writeReportTemplateConstant, filePath, closeError)
	}
	return nil
}
