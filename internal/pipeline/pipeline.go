package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/greenfield-eo/recmap/internal/decay"
	"github.com/greenfield-eo/recmap/internal/mobility"
	"github.com/greenfield-eo/recmap/internal/normalize"
	"github.com/greenfield-eo/recmap/internal/raster"
	"github.com/greenfield-eo/recmap/internal/rules"
	"github.com/greenfield-eo/recmap/internal/spectrum"
	"github.com/greenfield-eo/recmap/internal/zonal"
)

// Pipeline wires the computation stages for one run context. Construct with
// New; the zero value is not usable.
type Pipeline struct {
	store    raster.Store
	rc       raster.RunContext
	engine   *mobility.Engine
	schedule *decay.Schedule

	zeroFloor float64
	log       *zap.Logger
}

// New builds a pipeline over a grid store and run context. The schedule
// drives both infrastructure accessibility scoring and mobility; capacity
// scales potential to the supply basis.
func New(store raster.Store, rc raster.RunContext, schedule *decay.Schedule, capacity, zeroFloor float64) (*Pipeline, error) {
	engine, err := mobility.NewEngine(schedule, capacity, rc.Workers)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		store:     store,
		rc:        rc,
		engine:    engine,
		schedule:  schedule,
		zeroFloor: zeroFloor,
		log:       zap.L().With(zap.String("component", "pipeline")),
	}, nil
}

// Result carries everything a run produced: the derived grids keyed by
// output name, the zonal tables, and whole-grid statistics per output.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Grids map[Output]*raster.Grid
	Stats map[Output]raster.Statistics

	// DemandTable tabulates demand over the base zones when a base zone
	// layer is named.
	DemandTable []zonal.SummaryRow
	// FlowTable, SupplyTable and UseTable tabulate over the aggregation
	// zones.
	FlowTable   []zonal.SummaryRow
	SupplyTable []zonal.SummaryRow
	UseTable    []zonal.SummaryRow
}

// Run executes the request as a single fail-fast pass. Derived grids are
// registered back into the store under their output names, so a later run
// in the same store can reuse them as inputs.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Grids:     map[Output]*raster.Grid{},
		Stats:     map[Output]raster.Statistics{},
	}
	log := p.log.With(zap.String("run_id", res.RunID))
	log.Info("run started", zap.Any("outputs", req.Outputs))

	cuts := req.CutPoints
	if cuts == (spectrum.CutPoints{}) {
		cuts = spectrum.DefaultCutPoints()
	}
	if err := cuts.Validate(); err != nil {
		return nil, err
	}

	potential, err := p.potential(ctx, req)
	if err != nil {
		return nil, err
	}
	p.keep(res, OutPotential, potential)

	potClass, err := spectrum.Classify(ctx, p.rc.Workers, potential, cuts)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: classify potential")
	}

	var spectrumGrid *raster.Grid
	if req.needsOpportunity() {
		opportunity, err := p.opportunity(ctx, req)
		if err != nil {
			return nil, err
		}
		p.keep(res, OutOpportunity, opportunity)

		if req.needsSpectrum() {
			oppClass, err := spectrum.Classify(ctx, p.rc.Workers, opportunity, cuts)
			if err != nil {
				return nil, eris.Wrap(err, "pipeline: classify opportunity")
			}
			spectrumGrid, err = spectrum.Combine(ctx, p.rc.Workers, potClass, oppClass)
			if err != nil {
				return nil, eris.Wrap(err, "pipeline: spectrum")
			}
			p.keep(res, OutSpectrum, spectrumGrid)
		}
	}

	if req.needsDemand() {
		if err := p.demandSide(ctx, req, res, potential, spectrumGrid); err != nil {
			return nil, err
		}
	}

	for out, g := range res.Grids {
		if err := p.store.PutGrid(string(out), g); err != nil {
			return nil, eris.Wrapf(err, "pipeline: store output %s", out)
		}
	}

	res.FinishedAt = time.Now().UTC()
	log.Info("run finished",
		zap.Int("grids", len(res.Grids)),
		zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)))
	return res, nil
}

// potential builds the land component (scoring the raw landuse grid when one
// is named), folds in the water, natural and urban components, and
// normalizes the sum to the [0,1] potential index.
func (p *Pipeline) potential(ctx context.Context, req Request) (*raster.Grid, error) {
	var components []*raster.Grid

	if req.Landuse != "" {
		landuse, err := p.grid(req.Landuse)
		if err != nil {
			return nil, err
		}
		table, err := p.suitabilityTable(req)
		if err != nil {
			return nil, err
		}
		scored, err := rules.Reclassify(ctx, p.rc.Workers, landuse, table, req.SuitabilityDomain, req.Unscored)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: score landuse")
		}
		components = append(components, scored)
	} else {
		land, err := p.grid(req.Land)
		if err != nil {
			return nil, err
		}
		components = append(components, land)
	}

	for _, name := range append(append(append([]string{}, req.Water...), req.Natural...), req.Urban...) {
		g, err := p.grid(name)
		if err != nil {
			return nil, err
		}
		components = append(components, g)
	}

	out, err := normalize.Component(ctx, p.rc, "potential", components, normalize.Options{
		ZeroFloor: p.zeroFloor,
		Policy:    p.rc.NoData,
		Workers:   p.rc.Workers,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: potential")
	}
	return out, nil
}

// opportunity scores the infrastructure distance grid through the decay
// schedule and normalizes the accessibility to a [0,1] index.
func (p *Pipeline) opportunity(ctx context.Context, req Request) (*raster.Grid, error) {
	infra, err := p.grid(req.Infrastructure)
	if err != nil {
		return nil, err
	}
	access, err := p.schedule.Evaluate(ctx, p.rc.Workers, infra)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: infrastructure accessibility")
	}
	out, err := normalize.Rescale(ctx, p.rc.Workers, "opportunity", access, p.zeroFloor)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: opportunity")
	}
	return p.rc.ApplyMask(out), nil
}

// demandSide derives demand, supply, unmet demand, mobility and flow, plus
// the zone tables the request's zone layers enable.
func (p *Pipeline) demandSide(ctx context.Context, req Request, res *Result, potential, spectrumGrid *raster.Grid) error {
	population, err := p.grid(req.Population)
	if err != nil {
		return err
	}

	appeal := potential
	if req.AppealFromSpectrum {
		if spectrumGrid == nil {
			return &ConfigError{Reason: "spectrum appeal requested without a spectrum"}
		}
		appeal, err = raster.MapCells(ctx, p.rc.Workers, spectrumGrid, func(v float64) float64 {
			return v / float64(spectrum.HighestClass)
		})
		if err != nil {
			return eris.Wrap(err, "pipeline: spectrum appeal")
		}
	}

	demand, err := p.engine.Demand(ctx, p.rc, population, appeal)
	if err != nil {
		return err
	}
	p.keep(res, OutDemand, demand)

	if req.BaseZones != "" {
		baseZones, err := p.grid(req.BaseZones)
		if err != nil {
			return err
		}
		res.DemandTable, err = zonal.Aggregate(demand, baseZones)
		if err != nil {
			return eris.Wrap(err, "pipeline: demand table")
		}
	}

	supply, err := p.engine.Supply(ctx, p.rc, potential)
	if err != nil {
		return err
	}

	if req.wants(OutUnmetDemand) {
		unmet, err := p.engine.UnmetDemand(ctx, demand, supply)
		if err != nil {
			return err
		}
		p.keep(res, OutUnmetDemand, unmet)
	}

	if !req.needsMobility() {
		return nil
	}

	highest, err := spectrum.HighestMask(ctx, p.rc.Workers, spectrumGrid)
	if err != nil {
		return eris.Wrap(err, "pipeline: highest spectrum mask")
	}
	distance := raster.DistanceTo(highest, p.rc.Extent)

	mob, err := p.engine.Mobility(ctx, demand, distance)
	if err != nil {
		return err
	}
	p.keep(res, OutMobility, mob)

	if !req.wants(OutFlow) {
		return nil
	}

	aggZones, err := p.grid(req.AggregationZones)
	if err != nil {
		return err
	}
	rows, flowGrid, err := p.engine.Flow(mob, aggZones)
	if err != nil {
		return err
	}
	res.FlowTable = rows
	p.keep(res, OutFlow, flowGrid)

	if res.SupplyTable, err = zonal.Aggregate(supply, aggZones); err != nil {
		return eris.Wrap(err, "pipeline: supply table")
	}
	if res.UseTable, err = zonal.Aggregate(mob, aggZones); err != nil {
		return eris.Wrap(err, "pipeline: use table")
	}
	return nil
}

func (p *Pipeline) suitabilityTable(req Request) (*rules.Table, error) {
	if req.SuitabilityRules.IsZero() {
		return nil, nil // Reclassify falls back to the built-in domain table
	}
	table, err := rules.Load(req.SuitabilityRules)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: suitability rules")
	}
	return table, nil
}

func (p *Pipeline) grid(name string) (*raster.Grid, error) {
	g, err := p.store.Grid(name)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: input %s", name)
	}
	return g, nil
}

func (p *Pipeline) keep(res *Result, out Output, g *raster.Grid) {
	res.Grids[out] = g
	res.Stats[out] = raster.Univar(g)
	p.log.Debug("stage complete", zap.String("output", string(out)),
		zap.Int("valid_cells", res.Stats[out].Count))
}
