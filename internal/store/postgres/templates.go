package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"epistola/internal/store"

	"github.com/google/uuid"
)

// GetTemplate returns a template by id, scoped to the tenant.
func (s *Store) GetTemplate(ctx context.Context, tenantID, templateID uuid.UUID) (*store.Template, error) {
	query := `
		SELECT id, tenant_id, name, default_variant_id, theme_id, created_at
		FROM templates
		WHERE id = $1 AND tenant_id = $2
	`

	var t store.Template
	err := s.db.QueryRowContext(ctx, query, templateID, tenantID).Scan(
		&t.ID, &t.TenantID, &t.Name, &t.DefaultVariantID, &t.ThemeID, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetVariant returns a variant by id.
func (s *Store) GetVariant(ctx context.Context, variantID uuid.UUID) (*store.Variant, error) {
	query := `
		SELECT id, template_id, attributes, position, created_at
		FROM variants
		WHERE id = $1
	`
	return scanVariant(s.db.QueryRowContext(ctx, query, variantID))
}

// ListVariants returns a template's variants in creation order.
func (s *Store) ListVariants(ctx context.Context, templateID uuid.UUID) ([]store.Variant, error) {
	query := `
		SELECT id, template_id, attributes, position, created_at
		FROM variants
		WHERE template_id = $1
		ORDER BY position ASC
	`

	rows, err := s.db.QueryContext(ctx, query, templateID)
	if err != nil {
		return nil, fmt.Errorf("list variants query failed: %w", err)
	}
	defer rows.Close()

	var variants []store.Variant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("list variants scan failed: %w", err)
		}
		variants = append(variants, *v)
	}
	return variants, rows.Err()
}

// GetVersion returns a published version by id.
func (s *Store) GetVersion(ctx context.Context, versionID uuid.UUID) (*store.Version, error) {
	query := `
		SELECT id, variant_id, number, graph, theme_ref, created_at
		FROM versions
		WHERE id = $1
	`

	var v store.Version
	err := s.db.QueryRowContext(ctx, query, versionID).Scan(
		&v.ID, &v.VariantID, &v.Number, &v.Graph, &v.ThemeRef, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetActiveVersion resolves an environment name to its active version.
func (s *Store) GetActiveVersion(ctx context.Context, variantID uuid.UUID, environment string) (*store.Version, error) {
	query := `
		SELECT v.id, v.variant_id, v.number, v.graph, v.theme_ref, v.created_at
		FROM versions v
		JOIN environments e ON e.active_version_id = v.id
		WHERE e.variant_id = $1 AND e.name = $2
	`

	var v store.Version
	err := s.db.QueryRowContext(ctx, query, variantID, environment).Scan(
		&v.ID, &v.VariantID, &v.Number, &v.Graph, &v.ThemeRef, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetTheme returns a theme by id.
func (s *Store) GetTheme(ctx context.Context, themeID uuid.UUID) (*store.Theme, error) {
	query := `
		SELECT id, tenant_id, name, document_styles, page_settings, block_presets, created_at
		FROM themes
		WHERE id = $1
	`

	var t store.Theme
	err := s.db.QueryRowContext(ctx, query, themeID).Scan(
		&t.ID, &t.TenantID, &t.Name, &t.DocumentStyles, &t.PageSettings, &t.BlockPresets, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanVariant(row scanner) (*store.Variant, error) {
	var v store.Variant
	var attrs []byte

	if err := row.Scan(&v.ID, &v.TemplateID, &attrs, &v.Position, &v.CreatedAt); err != nil {
		return nil, err
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &v.Attributes); err != nil {
			return nil, fmt.Errorf("failed to decode variant attributes: %w", err)
		}
	}
	return &v, nil
}
