package rewrite

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/astgrepmcp/astgrepmcp/internal/backup"
	"github.com/astgrepmcp/astgrepmcp/internal/errors"
)

// ApplyOptions controls how a Plan is committed to disk.
type ApplyOptions struct {
	MakeBackup     bool
	ValidateSyntax bool
	Validator      Validator // defaults to DefaultValidator when ValidateSyntax is set
}

// ApplyResult reports what an Apply actually did.
type ApplyResult struct {
	AppliedPaths []string
	BackupID     string // empty if MakeBackup was false
}

// Engine carries out Preview, Apply, and Rollback against a backup
// store, per the rewrite invariants: a dry run never touches disk, a
// validation failure aborts the whole plan and restores from backup,
// and a partial write failure is reported distinctly from any
// subsequent rollback failure.
type Engine struct {
	Backups *backup.Store
}

// NewEngine wires an Engine to the given backup store.
func NewEngine(store *backup.Store) *Engine {
	return &Engine{Backups: store}
}

// Preview computes the FileDiff for every edit in the plan against the
// file's current on-disk content, without writing anything.
func (e *Engine) Preview(plan Plan) ([]FileDiff, error) {
	diffs := make([]FileDiff, 0, len(plan.Edits))
	for _, edit := range plan.Edits {
		before, err := os.ReadFile(edit.Path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, errors.New(errors.KindIO, "rewrite.Preview", err).WithPath(edit.Path)
			}
			before = nil
		}
		diffs = append(diffs, Diff(edit.Path, before, edit.NewBytes))
	}
	return diffs, nil
}

// Apply commits a plan in the six phases the rewrite engine invariants
// describe: gather candidate paths, optionally snapshot them, validate
// each edit's new bytes in deterministic (path-sorted) order, abort and
// restore on the first validation failure, otherwise write every file
// atomically, and on any write failure restore from backup and surface
// both the write error and any restore error.
func (e *Engine) Apply(plan Plan, opts ApplyOptions) (ApplyResult, error) {
	paths := plan.Paths()

	var backupID string
	if opts.MakeBackup {
		existing := make([]string, 0, len(paths))
		for _, p := range paths {
			if _, err := os.Stat(p); err == nil {
				existing = append(existing, p)
			}
		}
		if len(existing) > 0 {
			id, err := e.Backups.Create(existing)
			if err != nil {
				return ApplyResult{}, err
			}
			backupID = id
		}
	}

	ordered := make([]Edit, len(plan.Edits))
	copy(ordered, plan.Edits)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Path < ordered[j].Path })

	if opts.ValidateSyntax {
		validator := opts.Validator
		if validator == nil {
			validator = DefaultValidator
		}
		for _, edit := range ordered {
			result := validator(edit.Language, edit.NewBytes)
			if !result.OK {
				restoreErr := e.restoreIfPossible(backupID)
				base := errors.New(errors.KindValidationFailed, "rewrite.Apply", fmt.Errorf("%s: %v", edit.Path, result.Errors)).WithPath(edit.Path)
				if restoreErr != nil {
					return ApplyResult{}, errors.New(errors.KindRollbackFailed, "rewrite.Apply", restoreErr).WithDetail("validation_error", base.Error())
				}
				return ApplyResult{}, base
			}
		}
	}

	var applied []string
	for _, edit := range ordered {
		if err := writeAtomic(edit.Path, edit.NewBytes); err != nil {
			writeErr := errors.New(errors.KindIO, "rewrite.Apply", err).WithPath(edit.Path)
			restoreErr := e.restoreIfPossible(backupID)
			if restoreErr != nil {
				return ApplyResult{AppliedPaths: applied}, errors.New(errors.KindRollbackFailed, "rewrite.Apply", restoreErr).WithDetail("write_error", writeErr.Error())
			}
			return ApplyResult{AppliedPaths: applied}, writeErr
		}
		applied = append(applied, edit.Path)
	}

	return ApplyResult{AppliedPaths: applied, BackupID: backupID}, nil
}

func (e *Engine) restoreIfPossible(backupID string) error {
	if backupID == "" {
		return nil
	}
	_, err := e.Backups.Restore(backupID)
	return err
}

// Rollback restores every file captured by backupID, delegating
// directly to the backup store.
func (e *Engine) Rollback(backupID string) ([]string, error) {
	return e.Backups.Restore(backupID)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".rewrite-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
