// Package patch repairs NFT records whose canonical metadata is missing or
// known to point at broken images.
package patch

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"hypeflow/internal/domain"
)

var numberPattern = regexp.MustCompile(`#\s*(\d+)`)

// Engine applies a RuleSet to records.
type Engine struct {
	rules       RuleSet
	collections map[string]Rule
	logger      *zap.Logger
}

// New creates an Engine for rs. A nil logger discards output.
func New(rs RuleSet, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	byID := make(map[string]Rule, len(rs.Collections))
	for _, r := range rs.Collections {
		byID[r.Match.CollectionID] = r
	}
	return &Engine{rules: rs, collections: byID, logger: logger}
}

// IsVerified reports whether collectionID has a collection rule.
func (e *Engine) IsVerified(collectionID string) bool {
	_, ok := e.collections[collectionID]
	return ok
}

// Apply mutates rec in place and reports whether it is acceptable for the
// cache, i.e. has both a name and an image after every stage ran.
func (e *Engine) Apply(rec *domain.NFTRecord) bool {
	if rec == nil {
		return false
	}
	md := &rec.Metadata

	if md.Name == "" || md.Image == "" {
		if md.Name == "" && rec.ID != "" {
			md.Name = PlaceholderName(rec.ID)
		}
		for _, r := range e.rules.Repair {
			if strings.Contains(md.Name, r.Match.NameContains) && e.apply(rec, r, "repair") {
				break
			}
		}
	}

	if r, ok := e.collections[rec.CollectionID]; ok {
		e.apply(rec, r, "collection")
	}

	for _, r := range e.rules.Overrides {
		if strings.Contains(md.Name, r.Match.NameContains) && e.apply(rec, r, "override") {
			break
		}
	}

	return rec.IsCacheable()
}

// apply runs one rule; false means the rule could not produce a URL.
func (e *Engine) apply(rec *domain.NFTRecord, r Rule, stage string) bool {
	image, ok := r.Action.Resolve(rec.Metadata.Name)
	if !ok {
		e.logger.Debug("patch rule skipped",
			zap.String("stage", stage),
			zap.String("rule", r.Name),
			zap.String("name", rec.Metadata.Name),
		)
		return false
	}
	rec.Metadata.Image = image
	e.logger.Debug("patch rule applied",
		zap.String("stage", stage),
		zap.String("rule", r.Name),
		zap.String("id", rec.ID),
		zap.String("image", image),
	)
	return true
}

// Resolve produces the image URL for a record named name.
func (a Action) Resolve(name string) (string, bool) {
	if a.Template == nil {
		return a.URL, a.URL != ""
	}
	n, ok := TokenNumber(name)
	if !ok {
		return "", false
	}
	idx := n + a.Template.Offset
	if idx < 0 {
		return "", false
	}
	return a.Template.Base + strconv.Itoa(idx) + a.Template.Ext, true
}

// TokenNumber extracts the last "#<digits>" token from name.
func TokenNumber(name string) (int, bool) {
	matches := numberPattern.FindAllStringSubmatch(name, -1)
	if len(matches) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(matches[len(matches)-1][1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// PlaceholderName is the synthetic name given to records without one.
func PlaceholderName(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return "NFT " + id + "..."
}
