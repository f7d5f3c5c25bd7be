package pattern

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/metaforge-dev/metaforge/internal/catalog"
	"github.com/metaforge-dev/metaforge/internal/object"
)

// DefaultMaxDepth is the hard guard against runaway or malformed pattern
// trees.
const DefaultMaxDepth = 10

// SkippedNode records one pattern node the builder could not realize.
// The node's subtree is omitted with it.
type SkippedNode struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// BuildReport summarizes one build. The builder never asserts that the
// result satisfies the pattern; run Library.Validate for that.
type BuildReport struct {
	Created      int           `json:"created"`
	CreatedNames []string      `json:"createdNames,omitempty"`
	Skipped      []SkippedNode `json:"skipped,omitempty"`
	Partial      bool          `json:"partial"`
}

// Builder materializes pattern trees into object trees through the
// factory. Unknown or uncreatable node types are recorded and skipped
// while the rest of the tree still builds.
type Builder struct {
	factory  *object.Factory
	maxDepth int
	logger   *zap.Logger
}

// NewBuilder creates a Builder with the default depth guard.
func NewBuilder(factory *object.Factory, logger *zap.Logger) *Builder {
	return NewBuilderWithDepth(factory, DefaultMaxDepth, logger)
}

// NewBuilderWithDepth creates a Builder with an explicit depth guard.
func NewBuilderWithDepth(factory *object.Factory, maxDepth int, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Builder{
		factory:  factory,
		maxDepth: maxDepth,
		logger:   logger,
	}
}

// Build walks the pattern tree pre-order and materializes it into the
// container. Container pseudo-nodes create nothing and apply their
// restrictions to the current container; every other node becomes a new
// element with a generated name, attached to the current container's
// child collection and configured before its children build beneath it.
//
// The container is mutated in place and not persisted; saving the result
// is the caller's step, as is the final Library.Validate check.
func (b *Builder) Build(ctx context.Context, container *object.Instance, root *Node) (*BuildReport, error) {
	if container == nil {
		return nil, fmt.Errorf("cannot build into nil container")
	}
	if root == nil {
		return nil, fmt.Errorf("cannot build nil pattern node")
	}

	report := &BuildReport{}
	b.buildNode(ctx, container, root, 1, report)
	report.Partial = len(report.Skipped) > 0

	b.logger.Debug("pattern build finished",
		zap.String("container", container.Path()),
		zap.Int("created", report.Created),
		zap.Int("skipped", len(report.Skipped)))
	return report, nil
}

func (b *Builder) buildNode(ctx context.Context, container *object.Instance, node *Node, depth int, report *BuildReport) {
	if node == nil {
		return
	}
	if depth > b.maxDepth {
		b.logger.Warn("pattern depth guard tripped",
			zap.String("node", node.Label()),
			zap.Int("depth", depth))
		report.Skipped = append(report.Skipped, SkippedNode{
			Type:   node.Label(),
			Reason: fmt.Sprintf("depth limit %d exceeded", b.maxDepth),
		})
		return
	}

	current := container
	if !node.IsContainer() {
		element, ok := b.createElement(ctx, container, node, report)
		if !ok {
			return
		}
		current = element
	}

	// Restrictions are applied before recursing, so children always see a
	// fully configured parent.
	b.applyRestrictions(current, node)

	for _, child := range node.Children {
		b.buildNode(ctx, current, child, depth+1, report)
	}
}

// createElement instantiates and attaches one node's element. A false
// return means the node (and its subtree) was recorded as skipped.
func (b *Builder) createElement(ctx context.Context, container *object.Instance, node *Node, report *BuildReport) (*object.Instance, bool) {
	result, err := b.factory.Create(ctx, node.Type, map[string]interface{}{
		"name": generatedName(node.Type),
	})
	if err != nil {
		reason := "uncreatable type"
		if errors.Is(err, catalog.ErrTypeNotFound) {
			reason = "unknown type"
		}
		b.logger.Warn("skipping pattern node",
			zap.String("type", node.Type),
			zap.String("reason", reason),
			zap.Error(err))
		report.Skipped = append(report.Skipped, SkippedNode{
			Type:   node.Type,
			Reason: fmt.Sprintf("%s: %v", reason, err),
		})
		return nil, false
	}

	element := result.Instance
	if err := container.AddChild(element); err != nil {
		b.logger.Warn("skipping pattern node",
			zap.String("type", node.Type),
			zap.String("container", container.Path()),
			zap.Error(err))
		report.Skipped = append(report.Skipped, SkippedNode{
			Type:   node.Type,
			Reason: fmt.Sprintf("could not attach to %s: %v", container.Type(), err),
		})
		return nil, false
	}

	report.Created++
	report.CreatedNames = append(report.CreatedNames, element.Name())
	return element, true
}

// applyRestrictions pins the node's restricted properties on the target.
// A restriction that cannot apply is logged and dropped; the structural
// validation step is where unsatisfied patterns surface.
func (b *Builder) applyRestrictions(target *object.Instance, node *Node) {
	for _, r := range node.Restrictions {
		if err := target.SetProperty(r.Property, r.Value); err != nil {
			b.logger.Warn("pattern restriction not applied",
				zap.String("target", target.Path()),
				zap.String("property", r.Property),
				zap.Error(err))
		}
	}
}

// generatedName builds a unique element name that stays inside the usual
// identifier formats: lower-cased type, underscore, short uuid fragment.
func generatedName(typeName string) string {
	return strings.ToLower(typeName) + "_" + uuid.NewString()[:8]
}
