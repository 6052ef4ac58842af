package ui_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/temirov/socialmigrate/internal/migration"
	"github.com/temirov/socialmigrate/internal/ui"
)

func sampleRunReport() ui.RunReport {
	return ui.RunReport{
		RunID:      "3f1c2d9e-0000-4000-8000-000000000001",
		StartedAt:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC),
		Groups: []migration.GroupReport{
			{
				GroupID:     "group-1",
				CommunityID: "community-1",
				FinalState:  migration.StateDone,
				Transitions: []migration.State{migration.StateGroupPending, migration.StateDone},
				Progress: map[migration.ProgressKind]migration.ProgressSnapshot{
					migration.ProgressPosts: {Total: 2, Created: 2},
				},
			},
		},
	}
}

func TestEncodeRunReportWritesYAML(testInstance *testing.T) {
	buffer := &bytes.Buffer{}
	require.NoError(testInstance, ui.EncodeRunReport(buffer, sampleRunReport()))

	var decoded map[string]any
	require.NoError(testInstance, yaml.Unmarshal(buffer.Bytes(), &decoded))
	require.Equal(testInstance, "3f1c2d9e-0000-4000-8000-000000000001", decoded["run_id"])

	groups, isList := decoded["groups"].([]any)
	require.True(testInstance, isList)
	require.Len(testInstance, groups, 1)
	group := groups[0].(map[string]any)
	require.Equal(testInstance, "done", group["final_state"])
	require.Equal(testInstance, "community-1", group["community_id"])
	require.NotContains(testInstance, group, "failure")

	progress := group["progress"].(map[string]any)
	posts := progress["posts"].(map[string]any)
	require.Equal(testInstance, 2, posts["created"])
}

func TestWriteRunReportCreatesFile(testInstance *testing.T) {
	reportPath := filepath.Join(testInstance.TempDir(), "report.yaml")
	require.NoError(testInstance, ui.WriteRunReport(reportPath, sampleRunReport()))

	contents, readError := os.ReadFile(reportPath)
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(contents), "run_id: 3f1c2d9e-0000-4000-8000-000000000001")

	require.Error(testInstance, ui.WriteRunReport(filepath.Join(reportPath, "nested.yaml"), sampleRunReport()))
}

func TestRunReportSucceeded(testInstance *testing.T) {
	report := sampleRunReport()
	require.True(testInstance, report.Succeeded())

	report.Groups = append(report.Groups, migration.GroupReport{GroupID: "group-2", FinalState: migration.StateFailed})
	require.False(testInstance, report.Succeeded())
}
