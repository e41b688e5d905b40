package report

import (
	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
	"github.com/yorozuya-cybersecurity/yoro-audit/pkg/utils"
)

type partitionedFindings struct {
	Code         []schema.Finding `json:"code"`
	Dependencies []schema.Finding `json:"dependencies"`
}

// WriteJSON dumps findings as a plain list, or as {code, dependencies} when
// both kinds of analyzers ran.
func WriteJSON(in Input, path string) error {
	if in.Partitioned {
		return utils.WriteJSON(path, partitionedFindings{Code: nonNil(in.Code), Dependencies: nonNil(in.Dependencies)})
	}
	return utils.WriteJSON(path, nonNil(in.All()))
}

func nonNil(fs []schema.Finding) []schema.Finding {
	if fs == nil {
		return []schema.Finding{}
	}
	return fs
}
