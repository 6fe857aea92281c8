package sharing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rohits-web03/filepod/internal/logging"
	"github.com/rohits-web03/filepod/internal/models"
)

// TreeSource is the part of the metadata store the collector walks.
type TreeSource interface {
	ListFilesInFolder(ctx context.Context, folderID uuid.UUID) ([]models.File, error)
	ListSubfolders(ctx context.Context, folderID uuid.UUID) ([]models.Folder, error)
}

// Tree is a flattened folder subtree: every folder visited and every file found,
// both in traversal order.
type Tree struct {
	FolderIDs []uuid.UUID
	Files     []models.File
}

// SizeBytes is the sum of the collected file sizes.
func (t *Tree) SizeBytes() int64 {
	var total int64
	for _, f := range t.Files {
		total += f.SizeBytes
	}
	return total
}

// Collector flattens folder subtrees into file lists.
type Collector struct {
	source   TreeSource
	maxDepth int
}

func NewCollector(source TreeSource, maxDepth int) *Collector {
	if maxDepth <= 0 {
		maxDepth = 64
	}
	return &Collector{source: source, maxDepth: maxDepth}
}

type frame struct {
	id    uuid.UUID
	depth int
}

// Walk visits rootID and all of its descendants using an explicit stack.
// A folder reached twice is visited once; a chain deeper than the
// configured limit fails with ErrTreeTooDeep.
func (c *Collector) Walk(ctx context.Context, rootID uuid.UUID) (*Tree, error) {
	tree := &Tree{}
	visited := make(map[uuid.UUID]struct{})
	stack := []frame{{id: rootID}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := visited[top.id]; seen {
			logging.WithContext(ctx).Warn("folder revisited during tree walk",
				zap.String("root_id", rootID.String()),
				zap.String("folder_id", top.id.String()))
			continue
		}
		if top.depth > c.maxDepth {
			return nil, fmt.Errorf("folder %s: %w", top.id, ErrTreeTooDeep)
		}
		visited[top.id] = struct{}{}
		tree.FolderIDs = append(tree.FolderIDs, top.id)

		files, err := c.source.ListFilesInFolder(ctx, top.id)
		if err != nil {
			return nil, err
		}
		tree.Files = append(tree.Files, files...)

		subfolders, err := c.source.ListSubfolders(ctx, top.id)
		if err != nil {
			return nil, err
		}
		for _, sf := range subfolders {
			stack = append(stack, frame{id: sf.ID, depth: top.depth + 1})
		}
	}
	return tree, nil
}

// Collect returns every file transitively contained in rootID.
func (c *Collector) Collect(ctx context.Context, rootID uuid.UUID) ([]models.File, error) {
	tree, err := c.Walk(ctx, rootID)
	if err != nil {
		return nil, err
	}
	return tree.Files, nil
}
