// internal/discovery/discovery.go
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/config"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/cst"
)

// Discoverer turns scan targets into the list of files to analyze.
type Discoverer struct {
	scope          *Scope
	useGit         bool
	followSymlinks bool
	logger         *zap.Logger
}

// New creates a discoverer for the given languages.
func New(cfg config.DiscoveryConfig, langs []cst.Language, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{
		scope:          NewScope(cfg.Exclude, langs),
		useGit:         cfg.UseGit,
		followSymlinks: cfg.FollowSymlinks,
		logger:         logger.Named("discovery"),
	}
}

// Discover expands targets into a sorted list of analyzable files. A file
// target is kept when its language is in scope, even if an exclusion would
// match it. Directories are walked, or listed from git HEAD when use_git is
// set and the directory is inside a repository.
func (d *Discoverer) Discover(ctx context.Context, targets []string) ([]string, error) {
	seen := make(map[string]struct{})
	add := func(p string) { seen[filepath.Clean(p)] = struct{}{} }

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := os.Stat(target)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", target, err)
		}
		if !info.IsDir() {
			if _, ok := d.scope.Language(target); ok {
				add(target)
			}
			continue
		}

		var files []string
		if d.useGit {
			files, err = d.tracked(ctx, target)
			if errors.Is(err, git.ErrRepositoryNotExists) {
				d.logger.Warn("Target is not in a git repository, walking it instead.", zap.String("target", target))
				files, err = d.walk(ctx, target)
			}
		} else {
			files, err = d.walk(ctx, target)
		}
		if err != nil {
			return nil, fmt.Errorf("discovering %s: %w", target, err)
		}
		for _, f := range files {
			add(f)
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	d.logger.Info("Discovery complete.", zap.Int("targets", len(targets)), zap.Int("files", len(out)))
	return out, nil
}

func (d *Discoverer) walk(ctx context.Context, root string) ([]string, error) {
	var out []string
	visited := make(map[string]struct{})
	var walkDir func(dir, prefix string) error
	walkDir = func(dir, prefix string) error {
		// WalkDir does not descend into a root that is itself a link.
		if real, err := filepath.EvalSymlinks(dir); err == nil {
			if _, ok := visited[real]; ok {
				return nil
			}
			visited[real] = struct{}{}
			dir = real
		}
		return filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				d.logger.Warn("Skipping unreadable path.", zap.String("path", path), zap.Error(err))
				if entry != nil && entry.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil || rel == "." {
				return nil
			}
			rel = filepath.Join(prefix, rel)

			if entry.Type()&fs.ModeSymlink != 0 {
				if !d.followSymlinks {
					return nil
				}
				info, err := os.Stat(path)
				if err != nil {
					return nil
				}
				if info.IsDir() {
					if d.scope.Excluded(rel, true) {
						return nil
					}
					return walkDir(path, rel)
				}
			}

			if entry.IsDir() {
				if d.scope.Excluded(rel, true) {
					return fs.SkipDir
				}
				return nil
			}
			if d.scope.Excluded(rel, false) {
				return nil
			}
			if _, ok := d.scope.Language(path); ok {
				out = append(out, filepath.Join(root, rel))
			}
			return nil
		})
	}
	if err := walkDir(root, ""); err != nil {
		return nil, err
	}
	return out, nil
}

// tracked lists the regular files git tracks at HEAD below root.
func (d *Discoverer) tracked(ctx context.Context, root string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	top := wt.Filesystem.Root()
	if real, err := filepath.EvalSymlinks(top); err == nil {
		top = real
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}

	ref, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}

	var out []string
	err = tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.Mode != filemode.Regular && f.Mode != filemode.Executable {
			return nil
		}
		rel, err := filepath.Rel(abs, filepath.Join(top, filepath.FromSlash(f.Name)))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}
		if d.scope.ExcludedPath(rel) {
			return nil
		}
		if _, ok := d.scope.Language(rel); ok {
			out = append(out, filepath.Join(root, rel))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.logger.Debug("Listed git tracked files.", zap.String("root", top), zap.String("head", ref.Hash().String()), zap.Int("files", len(out)))
	return out, nil
}
