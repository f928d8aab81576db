package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/google/uuid"
)

// LineageNode is an immutable view of one Document in a supersession chain
type LineageNode struct {
	DocumentID   uuid.UUID  `json:"document_id"`
	Version      int        `json:"version"`
	IsSuperseded bool       `json:"is_superseded"`
	SupersededBy *uuid.UUID `json:"superseded_by,omitempty"`
	FilePath     string     `json:"file_path"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Lineage holds the documents sharing a document number. Nodes live in an
// arena slice and are addressed through an id index; nothing is mutated after
// construction.
type Lineage struct {
	ProjectID      uuid.UUID
	DocumentNumber string

	nodes []LineageNode
	index map[uuid.UUID]int
}

// NewLineage builds a lineage from document rows in any order
func NewLineage(projectID uuid.UUID, documentNumber string, documents []models.Document) *Lineage {
	l := &Lineage{
		ProjectID:      projectID,
		DocumentNumber: documentNumber,
		nodes:          make([]LineageNode, 0, len(documents)),
		index:          make(map[uuid.UUID]int, len(documents)),
	}

	sorted := append([]models.Document(nil), documents...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Version != sorted[j].Version {
			return sorted[i].Version < sorted[j].Version
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	for _, d := range sorted {
		l.index[d.ID] = len(l.nodes)
		l.nodes = append(l.nodes, LineageNode{
			DocumentID:   d.ID,
			Version:      d.Version,
			IsSuperseded: d.IsSuperseded,
			SupersededBy: d.SupersededBy,
			FilePath:     d.FilePath,
			CreatedAt:    d.CreatedAt,
		})
	}
	return l
}

func (l *Lineage) Len() int {
	return len(l.nodes)
}

// Node returns the node for a document id
func (l *Lineage) Node(id uuid.UUID) (LineageNode, bool) {
	i, ok := l.index[id]
	if !ok {
		return LineageNode{}, false
	}
	return l.nodes[i], true
}

// Heads returns every node that has not been superseded
func (l *Lineage) Heads() []LineageNode {
	var heads []LineageNode
	for _, n := range l.nodes {
		if !n.IsSuperseded {
			heads = append(heads, n)
		}
	}
	return heads
}

// Head returns the single head node. ok is false when there is no head or more than one.
func (l *Lineage) Head() (LineageNode, bool) {
	heads := l.Heads()
	if len(heads) != 1 {
		return LineageNode{}, false
	}
	return heads[0], true
}

// Chain walks superseded_by links from the oldest root to the head
func (l *Lineage) Chain() []LineageNode {
	if len(l.nodes) == 0 {
		return nil
	}

	pointedTo := make(map[uuid.UUID]bool, len(l.nodes))
	for _, n := range l.nodes {
		if n.SupersededBy != nil {
			pointedTo[*n.SupersededBy] = true
		}
	}

	var root *LineageNode
	for i := range l.nodes {
		if !pointedTo[l.nodes[i].DocumentID] {
			root = &l.nodes[i]
			break
		}
	}
	if root == nil {
		return nil
	}

	chain := []LineageNode{*root}
	seen := map[uuid.UUID]bool{root.DocumentID: true}
	current := *root
	for current.SupersededBy != nil {
		next, ok := l.Node(*current.SupersededBy)
		if !ok || seen[next.DocumentID] {
			break
		}
		seen[next.DocumentID] = true
		chain = append(chain, next)
		current = next
	}
	return chain
}

// Validate checks head uniqueness, flag/link agreement and that each
// superseding document is exactly one version ahead of the one it replaced.
func (l *Lineage) Validate() error {
	if len(l.nodes) == 0 {
		return nil
	}

	if heads := l.Heads(); len(heads) != 1 {
		return fmt.Errorf("%w: %d heads for %q", ErrInvalidLineage, len(heads), l.DocumentNumber)
	}

	for _, n := range l.nodes {
		if n.Version < 1 {
			return fmt.Errorf("%w: document %s has version %d", ErrInvalidLineage, n.DocumentID, n.Version)
		}
		if n.IsSuperseded != (n.SupersededBy != nil) {
			return fmt.Errorf("%w: document %s superseded flag disagrees with link", ErrInvalidLineage, n.DocumentID)
		}
		if n.SupersededBy == nil {
			continue
		}
		next, ok := l.Node(*n.SupersededBy)
		if !ok {
			return fmt.Errorf("%w: document %s superseded by unknown %s", ErrInvalidLineage, n.DocumentID, *n.SupersededBy)
		}
		if next.Version != n.Version+1 {
			return fmt.Errorf("%w: document %s v%d superseded by v%d", ErrInvalidLineage, n.DocumentID, n.Version, next.Version)
		}
	}

	if chain := l.Chain(); len(chain) != len(l.nodes) {
		return fmt.Errorf("%w: chain covers %d of %d documents", ErrInvalidLineage, len(chain), len(l.nodes))
	}
	return nil
}

// LineageView is the serialisable form of a lineage
type LineageView struct {
	ProjectID      uuid.UUID     `json:"project_id"`
	DocumentNumber string        `json:"document_number"`
	Chain          []LineageNode `json:"chain"`
	HeadID         *uuid.UUID    `json:"head_id,omitempty"`
	Valid          bool          `json:"valid"`
	Problem        string        `json:"problem,omitempty"`
}

func (l *Lineage) View() LineageView {
	view := LineageView{
		ProjectID:      l.ProjectID,
		DocumentNumber: l.DocumentNumber,
		Chain:          l.Chain(),
		Valid:          true,
	}
	if head, ok := l.Head(); ok {
		id := head.DocumentID
		view.HeadID = &id
	}
	if err := l.Validate(); err != nil {
		view.Valid = false
		view.Problem = err.Error()
	}
	return view
}
