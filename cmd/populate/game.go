package populate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lepinkainen/catalogfill/internal/cms"
	"github.com/lepinkainen/catalogfill/internal/slugs"
	"github.com/lepinkainen/catalogfill/internal/storefront"
)

// createGame creates the game of a product unless one with the same title
// exists. The returned record is nil when the game was skipped or failed.
func (p *Pipeline) createGame(ctx context.Context, product storefront.Product) (*cms.GameRecord, ItemResult) {
	result := ItemResult{Title: product.Title, Slug: product.Slug}

	existing, err := p.backend.Games().FindByName(ctx, product.Title)
	if err != nil {
		slog.Error("Failed to look up game", "title", product.Title, "error", err)
		result.fail(fmt.Errorf("failed to look up game: %w", err))
		return nil, result
	}
	for _, g := range existing {
		if g.Name == product.Title {
			slog.Debug("Game already exists, skipping", "title", product.Title, "id", g.ID)
			result.Status = StatusSkipped
			result.GameID = g.ID
			return nil, result
		}
	}

	input := p.buildGameInput(ctx, product, &result)

	detail, err := p.store.FetchDetail(ctx, product.Slug)
	if err != nil {
		slog.Warn("Failed to scrape detail page, creating game without description", "title", product.Title, "slug", product.Slug, "error", err)
		result.warn(fmt.Errorf("detail page: %w", err))
	} else {
		input.Rating = detail.Rating
		input.ShortDescription = detail.ShortDescription
		input.Description = detail.Description
		result.DescriptionScraped = detail.Description != ""
	}

	game, err := p.backend.Games().Create(ctx, input)
	if errors.Is(err, cms.ErrConflict) {
		slog.Info("Game was created by another run, skipping", "title", product.Title)
		result.Status = StatusSkipped
		if winners, findErr := p.backend.Games().FindByName(ctx, product.Title); findErr == nil && len(winners) > 0 {
			result.GameID = winners[0].ID
		}
		return nil, result
	}
	if err != nil {
		slog.Error("Failed to create game", "title", product.Title, "error", err)
		result.fail(fmt.Errorf("failed to create game: %w", err))
		return nil, result
	}

	slog.Info("Created game", "title", game.Name, "id", game.ID, "slug", game.Slug)
	result.Status = StatusCreated
	result.GameID = game.ID
	return game, result
}

// buildGameInput maps a product to game attributes, resolving related
// entities by name. A relation that cannot be resolved is left out.
func (p *Pipeline) buildGameInput(ctx context.Context, product storefront.Product, result *ItemResult) cms.GameInput {
	input := cms.GameInput{
		Name:        product.Title,
		Slug:        slugs.ForGame(product.Slug, product.Title),
		Price:       product.Price.Amount,
		ReleaseDate: product.Released().ISO8601(),
	}

	input.Developers = p.resolveIDs(ctx, cms.Developer, []string{product.Developer}, result)
	if ids := p.resolveIDs(ctx, cms.Publisher, []string{product.Publisher}, result); len(ids) > 0 {
		input.Publisher = &ids[0]
	}
	input.Categories = p.resolveIDs(ctx, cms.Category, product.Genres, result)
	input.Platforms = p.resolveIDs(ctx, cms.Platform, product.SupportedOperatingSystems, result)

	return input
}

func (p *Pipeline) resolveIDs(ctx context.Context, kind cms.Kind, names []string, result *ItemResult) []cms.ID {
	var ids []cms.ID
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		entity, err := p.findByName(ctx, kind, name)
		if err != nil {
			result.warn(err)
			continue
		}
		if entity == nil {
			result.warn(fmt.Errorf("%s %q: %w", kind, name, cms.ErrNotFound))
			continue
		}
		ids = append(ids, entity.ID)
	}
	return ids
}
