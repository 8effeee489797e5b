package protocol

import (
	"context"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/astgrepmcp/astgrepmcp/internal/backup"
)

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}

// BackupsListParams is the backups_list tool's input (none needed).
type BackupsListParams struct{}

// BackupsList returns every backup C3 currently retains.
func BackupsList(ctx context.Context, rt *Runtime, _ BackupsListParams) ([]backup.Info, error) {
	return rt.Backups.List()
}

func backupsListTool() ToolDescriptor {
	return ToolDescriptor{
		Name:        "backups_list",
		Description: "List every retained backup, oldest first.",
		InputSchema: &jsonschema.Schema{Type: "object"},
		Handler:     typed(BackupsList),
	}
}

// BackupsRestoreParams is the backups_restore tool's input.
type BackupsRestoreParams struct {
	ID string `json:"id"`
}

// BackupsRestoreResult reports which paths were restored.
type BackupsRestoreResult struct {
	RestoredPaths []string `json:"restored_paths"`
}

// BackupsRestore restores every file a backup captured, per C3's
// best-effort restore (a *backup.PartialRestoreError surfaces which
// paths failed without losing the ones that succeeded).
func BackupsRestore(ctx context.Context, rt *Runtime, p BackupsRestoreParams) (BackupsRestoreResult, error) {
	restored, err := rt.Backups.Restore(p.ID)
	return BackupsRestoreResult{RestoredPaths: restored}, err
}

func backupsRestoreTool() ToolDescriptor {
	return ToolDescriptor{
		Name:        "backups_restore",
		Description: "Restore every file captured by a given backup ID.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{"id": {Type: "string"}},
			Required:   []string{"id"},
		},
		Handler: typed(BackupsRestore),
	}
}

// BackupsPruneParams is the backups_prune tool's input.
type BackupsPruneParams struct {
	OlderThanSeconds int `json:"older_than_seconds"`
	KeepLastN        int `json:"keep_last_n"`
}

// BackupsPruneResult reports which backup IDs were removed.
type BackupsPruneResult struct {
	RemovedIDs []string `json:"removed_ids"`
}

// BackupsPrune deletes backups in one of two modes: with KeepLastN > 0
// it deletes all but the KeepLastN most recent, whatever their age, and
// OlderThanSeconds is ignored; otherwise it deletes every backup older
// than OlderThanSeconds.
func BackupsPrune(ctx context.Context, rt *Runtime, p BackupsPruneParams) (BackupsPruneResult, error) {
	removed, err := rt.Backups.Prune(secondsToDuration(p.OlderThanSeconds), p.KeepLastN)
	return BackupsPruneResult{RemovedIDs: removed}, err
}

func backupsPruneTool() ToolDescriptor {
	return ToolDescriptor{
		Name:        "backups_prune",
		Description: "Delete all but the most recent keep_last_n backups when keep_last_n > 0; otherwise delete backups older than older_than_seconds.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"older_than_seconds": {Type: "integer"},
				"keep_last_n":        {Type: "integer"},
			},
			Required: []string{"older_than_seconds", "keep_last_n"},
		},
		Handler: typed(BackupsPrune),
	}
}
