package runtime

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Jeffail/gabs/v2"
)

// ExportLog writes the run record as an indented JSON document: sequence
// name, final state, counts, errors, variables, and the per-block log.
func (e *Executor) ExportLog(path string) error {
	e.mu.Lock()
	state := e.ctl.current()
	doc := gabs.New()
	doc.Set(e.seq.Name, "sequence_name")
	doc.Set(string(state), "state")
	doc.Set(e.executed, "blocks_executed")

	doc.Array("errors")
	for _, msg := range e.errs {
		doc.ArrayAppend(msg, "errors")
	}

	doc.Set(e.ctx.Snapshot(), "variables")

	doc.Array("log_entries")
	for _, entry := range e.entries {
		rec := gabs.New()
		rec.Set(entry.Elapsed.Seconds(), "elapsed_time")
		rec.Set(entry.Block, "block")
		rec.Set(entry.BlockID, "block_id")
		rec.Set(entry.Index, "index")
		rec.Set(entry.Success, "success")
		if entry.Error != "" {
			rec.Set(entry.Error, "error")
		}
		if entry.Outcome != nil {
			rec.Set(map[string]any(entry.Outcome), "outcome")
		}
		doc.ArrayAppend(rec, "log_entries")
	}
	e.mu.Unlock()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating export directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(doc.StringIndent("", "  ")), 0o644); err != nil {
		return fmt.Errorf("writing execution log: %w", err)
	}
	e.log.Info("execution log exported", "path", path)
	return nil
}
