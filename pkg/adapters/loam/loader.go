package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Loader adapts a Loam repository of flow documents to ports.FlowSource.
type Loader struct {
	Repo *loam.TypedRepository[FlowMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[FlowMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Open initializes a read-only, strict Loam repository at dir.
// Extra options are applied after the defaults.
func Open(dir string, opts ...loam.Option) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	opts = append([]loam.Option{loam.WithStrict(true), loam.WithReadOnly(true)}, opts...)
	repo, err := loam.Init(absPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[FlowMetadata](repo)), nil
}

// LoadFlow reads the flow document with the given id.
// Loam resolves "welcome" to welcome.md (or .yaml, .json).
func (l *Loader) LoadFlow(ctx context.Context, id string) (domain.FlowDefinition, error) {
	doc, err := l.Repo.Get(ctx, id)
	if err != nil {
		return domain.FlowDefinition{}, fmt.Errorf("%w: loam get failed for %s: %v", domain.ErrFlowNotFound, id, err)
	}

	meta := doc.Data
	def := domain.FlowDefinition{
		ID:            meta.ID,
		Name:          meta.Name,
		Description:   meta.Description,
		Active:        meta.Active,
		SchemaVersion: domain.SchemaVersion,
		Nodes:         make([]domain.FlowNode, 0, len(meta.Nodes)),
	}
	if def.ID == "" {
		def.ID = trimExtension(doc.ID)
	}
	if def.Description == "" {
		def.Description = strings.TrimSpace(doc.Content)
	}

	for i, nm := range meta.Nodes {
		node, err := buildNode(nm)
		if err != nil {
			return domain.FlowDefinition{}, fmt.Errorf("flow %s: node %d (%s): %w", def.ID, i, nm.ID, err)
		}
		def.Nodes = append(def.Nodes, node)
	}
	return def, nil
}

func buildNode(meta NodeMetadata) (domain.FlowNode, error) {
	node := domain.FlowNode{
		ID:      meta.ID,
		Type:    domain.NodeType(meta.Type),
		Content: meta.Content,
	}

	next, err := buildTransition(meta)
	if err != nil {
		return domain.FlowNode{}, err
	}
	node.Next = next

	if len(meta.Position) > 0 {
		var pos domain.Position
		if err := weakDecode(meta.Position, &pos); err != nil {
			return domain.FlowNode{}, fmt.Errorf("position: %w", err)
		}
		node.Position = &pos
	}
	return node, nil
}

func buildTransition(meta NodeMetadata) (domain.Transition, error) {
	if len(meta.Options) > 0 {
		branches := make([]domain.Branch, 0, len(meta.Options))
		for _, opt := range meta.Options {
			branches = append(branches, domain.Branch{Label: opt.Text, Target: opt.To})
		}
		return domain.Branching(branches...), nil
	}
	if meta.To != "" {
		return domain.Direct(meta.To), nil
	}

	switch v := meta.Next.(type) {
	case nil:
		return domain.None(), nil
	case string:
		return domain.Direct(v), nil
	case map[string]any, map[any]any:
		var targets map[string]string
		if err := weakDecode(v, &targets); err != nil {
			return domain.Transition{}, fmt.Errorf("next: %w", err)
		}
		return domain.Branching(sortedBranches(targets)...), nil
	default:
		return domain.Transition{}, fmt.Errorf("next: expected node id or mapping, got %T", v)
	}
}

// sortedBranches orders labels alphabetically with the wildcard last.
func sortedBranches(targets map[string]string) []domain.Branch {
	labels := make([]string, 0, len(targets))
	for label := range targets {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i] == domain.WildcardBranch || labels[j] == domain.WildcardBranch {
			return labels[j] == domain.WildcardBranch && labels[i] != domain.WildcardBranch
		}
		return labels[i] < labels[j]
	})

	branches := make([]domain.Branch, 0, len(labels))
	for _, label := range labels {
		branches = append(branches, domain.Branch{Label: label, Target: targets[label]})
	}
	return branches
}

func weakDecode(input, output any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// ListFlows lists all flow ids in the repository.
func (l *Loader) ListFlows(ctx context.Context) ([]string, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	ids := make([]string, 0, len(docs))

	for _, doc := range docs {
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch emits the id of every flow document that changes on disk.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
