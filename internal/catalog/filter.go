package catalog

import (
	"context"
	"strings"
	"unicode"

	"github.com/cloud-wave-best-zizon/storefront/internal/domain"
	"go.uber.org/zap"
)

type ProductLister interface {
	ListProducts(ctx context.Context, features []string) ([]domain.Product, error)
}

// Filter turns free-text criteria into a catalog query.
type Filter struct {
	lister ProductLister
	logger *zap.Logger
}

func NewFilter(lister ProductLister, logger *zap.Logger) *Filter {
	return &Filter{
		lister: lister,
		logger: logger,
	}
}

// ParseCriteria splits criteria on commas and whitespace. Terms are trimmed and
// de-duplicated case-insensitively, keeping the first spelling.
func ParseCriteria(criteria string) []string {
	fields := strings.FieldsFunc(criteria, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})

	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		key := strings.ToLower(f)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

// Filter lists products matching any feature term. Empty criteria list everything.
func (f *Filter) Filter(ctx context.Context, criteria string) ([]domain.Product, error) {
	terms := ParseCriteria(criteria)

	products, err := f.lister.ListProducts(ctx, terms)
	if err != nil {
		f.logger.Error("Failed to list products",
			zap.Strings("features", terms),
			zap.Error(err))
		return nil, err
	}

	f.logger.Debug("Catalog filtered",
		zap.Strings("features", terms),
		zap.Int("products", len(products)))
	return products, nil
}
