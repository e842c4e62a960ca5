// seed carga ingredientes de ejemplo y las categorías de I+D iniciales.
//
// Uso: go run ./cmd/seed
// Es idempotente: los registros que ya existen se omiten.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cokelateh-api/internal/domain"
	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
	"github.com/jhoicas/cokelateh-api/internal/infrastructure/postgres"
	"github.com/jhoicas/cokelateh-api/pkg/config"
	"github.com/jhoicas/cokelateh-api/pkg/logger"
)

type ingredientFixture struct {
	name     string
	unit     string
	minStock string // vacío = sin umbral de stock bajo
}

var ingredientFixtures = []ingredientFixture{
	{"Cacao en polvo", "kg", "5"},
	{"Manteca de cacao", "kg", "3"},
	{"Azúcar", "kg", "10"},
	{"Leche en polvo", "kg", "4"},
	{"Avellanas", "kg", "2"},
	{"Vainilla", "l", ""},
}

var categoryFixtures = []struct{ name, desc string }{
	{"Bombones", "Rellenos y coberturas nuevas"},
	{"Tabletas", "Tabletas de origen y ediciones limitadas"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ingredients, err := buildIngredients(ingredientFixtures, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("ingredientes de ejemplo")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}

	ingredientRepo := postgres.NewIngredientRepository(pool)
	created := 0
	for _, ing := range ingredients {
		err := ingredientRepo.Create(ctx, ing)
		switch {
		case errors.Is(err, domain.ErrDuplicate):
			continue
		case err != nil:
			log.Fatal().Err(err).Str("ingredient", ing.Name).Msg("crear ingrediente")
		}
		created++
	}
	entries, err := postgres.NewStockRepository(pool).EnsureEntries(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("crear entradas de stock")
	}

	rdRepo := postgres.NewRDRepository(pool)
	categories := 0
	for _, c := range categoryFixtures {
		err := rdRepo.CreateCategory(ctx, &entity.RDCategory{
			ID:          uuid.New().String(),
			Name:        c.name,
			Description: c.desc,
			CreatedBy:   "seed",
			CreatedAt:   time.Now(),
		})
		if err != nil && !errors.Is(err, domain.ErrDuplicate) {
			log.Fatal().Err(err).Str("category", c.name).Msg("crear categoría")
		}
		if err == nil {
			categories++
		}
	}

	log.Info().
		Int("ingredients", created).
		Int("stock_entries", entries).
		Int("categories", categories).
		Msg("datos iniciales cargados")
}

// buildIngredients valida las fixtures y las convierte en entidades.
func buildIngredients(fixtures []ingredientFixture, now time.Time) ([]*entity.Ingredient, error) {
	seen := make(map[string]bool, len(fixtures))
	out := make([]*entity.Ingredient, 0, len(fixtures))
	for _, f := range fixtures {
		name, unit := strings.TrimSpace(f.name), strings.TrimSpace(f.unit)
		if name == "" || unit == "" {
			return nil, fmt.Errorf("ingrediente %q: nombre y unidad son obligatorios", f.name)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return nil, fmt.Errorf("ingrediente duplicado: %s", name)
		}
		seen[key] = true

		ing := &entity.Ingredient{
			ID:        uuid.New().String(),
			Name:      name,
			Unit:      unit,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if f.minStock != "" {
			minStock, err := decimal.NewFromString(f.minStock)
			if err != nil || minStock.IsNegative() {
				return nil, fmt.Errorf("ingrediente %s: mínimo inválido %q", name, f.minStock)
			}
			ing.MinStock = &minStock
		}
		out = append(out, ing)
	}
	return out, nil
}
