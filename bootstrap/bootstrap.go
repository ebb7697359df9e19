// Package bootstrap wires mapped properties to live generators and the store objects they need
package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/amirphl/orochi-idgen/dialect"
	"github.com/amirphl/orochi-idgen/generator"
	"github.com/amirphl/orochi-idgen/repository"
	"github.com/amirphl/orochi-idgen/schema"
	"gorm.io/gorm"
)

// Options carries the collaborators of Build
type Options struct {
	DB      *gorm.DB
	Dialect dialect.Dialect
	// Naming maps logical names to physical ones; nil uses gorm's naming without a prefix
	Naming         schema.PhysicalNamingStrategy
	DefaultCatalog string
	DefaultSchema  string
	// Defaults are the lowest precedence generator parameters
	Defaults   map[string]string
	Redis      generator.RedisCounter
	Strategies *generator.StrategyRegistry
	Markers    *generator.MarkerRegistry
	Provider   generator.InstanceProvider
	// SkipExport leaves the store untouched; the objects must already exist
	SkipExport bool
	Logger     *log.Logger
}

// Build resolves every mapped property, creates its generator once, registers and exports
// the store objects the generators need and renders their SQL
func Build(ctx context.Context, mapping *Mapping, opts Options) (*Registry, error) {
	if opts.Dialect == nil {
		return nil, fmt.Errorf("bootstrap: dialect is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	globals, err := generator.NewDefinitions(mapping.Generators...)
	if err != nil {
		return nil, err
	}
	resolver := generator.NewResolver(globals, opts.Defaults, opts.Strategies, opts.Markers, logger)

	cc := generator.CreationContext{
		Dialect:  opts.Dialect,
		Logger:   logger,
		Redis:    opts.Redis,
		Provider: opts.Provider,
	}

	registry := newRegistry(opts, logger)
	for _, entity := range mapping.Entities {
		local, err := generator.NewDefinitions(entity.Generators...)
		if err != nil {
			return nil, err
		}
		for _, pm := range entity.Properties {
			entry, err := createEntry(resolver, cc, entity, local, pm)
			if err != nil {
				return nil, err
			}
			if err := registry.add(entry); err != nil {
				return nil, err
			}
		}
	}

	for _, entry := range registry.ordered() {
		producer, ok := entry.Generator.(generator.ExportableProducer)
		if !ok {
			continue
		}
		if err := producer.RegisterExportables(registry.database); err != nil {
			return nil, fmt.Errorf("failed to register store objects of %s: %w", entry.Key, err)
		}
	}

	if !opts.SkipExport {
		if opts.DB == nil {
			return nil, fmt.Errorf("bootstrap: a database is required to export store objects")
		}
		exporter := schema.NewExporter(registry.sqlCtx, repository.NewSchemaRepository(opts.DB, opts.Dialect), logger)
		report, err := exporter.Export(ctx, registry.database)
		if err != nil {
			return nil, err
		}
		logger.Printf("bootstrap: created %d store objects, %d already present", len(report.Created), len(report.Skipped))
	}

	for _, entry := range registry.ordered() {
		producer, ok := entry.Generator.(generator.ExportableProducer)
		if !ok {
			continue
		}
		if err := producer.Initialize(registry.sqlCtx); err != nil {
			return nil, fmt.Errorf("failed to initialize %s: %w", entry.Key, err)
		}
	}

	logger.Printf("bootstrap: %d generators ready", len(registry.entries))
	return registry, nil
}

func createEntry(resolver *generator.Resolver, cc generator.CreationContext, entity Entity, local generator.Definitions, pm PropertyMapping) (*Entry, error) {
	markers := make([]generator.Marker, 0, len(pm.Markers))
	for _, mm := range pm.Markers {
		m, err := mm.Marker()
		if err != nil {
			return nil, generator.NewConfigurationErrorf("INVALID_MARKER", "property %s.%s", err, entity.Name, pm.Name)
		}
		markers = append(markers, m)
	}

	prop := generator.Property{
		Member: generator.Member{
			Entity:   entity.Name,
			Property: pm.Name,
			Table:    entity.Table,
			Column:   pm.Column,
			Version:  pm.Version,
		},
		GeneratorName: pm.Generator,
		Strategy:      pm.Strategy,
		Kind:          generator.GenerationKind(pm.GeneratedValue),
		Parameters:    pm.Parameters,
		Local:         local,
		Markers:       markers,
	}

	res, err := resolver.Resolve(prop)
	if err != nil {
		return nil, err
	}
	gen, err := res.Creator(cc)
	if err != nil {
		return nil, err
	}
	return &Entry{
		Key:       prop.Key(),
		Member:    prop.Member,
		Strategy:  res.Config.Strategy,
		Family:    res.Family,
		Generator: gen,
	}, nil
}
