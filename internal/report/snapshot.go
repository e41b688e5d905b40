package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
	"github.com/yorozuya-cybersecurity/yoro-audit/pkg/utils"
)

// Snapshot is the persisted record of the latest run. Findings is used when
// one kind of analyzer ran; Code and Dependencies when both did.
type Snapshot struct {
	RunID        string            `json:"run_id"`
	GeneratedAt  time.Time         `json:"generated_at"`
	Root         string            `json:"root"`
	Findings     *[]schema.Finding `json:"findings,omitempty"`
	Code         *[]schema.Finding `json:"code,omitempty"`
	Dependencies *[]schema.Finding `json:"dependencies,omitempty"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// WriteSnapshot writes last_run.json into outDir.
func WriteSnapshot(in Input, runID, outDir string) (string, error) {
	if runID == "" {
		runID = NewRunID()
	}
	snap := Snapshot{RunID: runID, GeneratedAt: in.generatedAt(), Root: in.Root}
	if in.Partitioned {
		code, deps := nonNil(in.Code), nonNil(in.Dependencies)
		snap.Code, snap.Dependencies = &code, &deps
	} else {
		all := nonNil(in.All())
		snap.Findings = &all
	}
	path := filepath.Join(outDir, SnapshotFile)
	if err := utils.WriteJSON(path, snap); err != nil {
		return "", wrap(path, err)
	}
	return path, nil
}

// LoadSnapshot reads last_run.json from dir and rebuilds the report input.
func LoadSnapshot(dir string) (Input, Snapshot, error) {
	var snap Snapshot
	path := filepath.Join(dir, SnapshotFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return Input{}, snap, fmt.Errorf("read %s: %w", SnapshotFile, err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return Input{}, snap, fmt.Errorf("parse %s: %w", SnapshotFile, err)
	}

	in := Input{Root: snap.Root, GeneratedAt: snap.GeneratedAt}
	if snap.Code != nil || snap.Dependencies != nil {
		in.Partitioned = true
		if snap.Code != nil {
			in.Code = *snap.Code
		}
		if snap.Dependencies != nil {
			in.Dependencies = *snap.Dependencies
		}
		return in, snap, nil
	}
	if snap.Findings != nil {
		for _, f := range *snap.Findings {
			if f.IsDependency() {
				in.Dependencies = append(in.Dependencies, f)
			} else {
				in.Code = append(in.Code, f)
			}
		}
	}
	return in, snap, nil
}
