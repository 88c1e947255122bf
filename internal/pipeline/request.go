// Package pipeline runs the one-shot indicator DAG: request validation,
// stage sequencing from scored components through zonal tables, and named
// output registration. Stages either complete or abort the run; nothing is
// retried.
package pipeline

import (
	"fmt"

	"github.com/greenfield-eo/recmap/internal/rules"
	"github.com/greenfield-eo/recmap/internal/spectrum"
)

// Output names a derived grid a run can be asked to produce.
type Output string

const (
	OutPotential   Output = "potential"
	OutOpportunity Output = "opportunity"
	OutSpectrum    Output = "spectrum"
	OutDemand      Output = "demand"
	OutUnmetDemand Output = "unmet_demand"
	OutMobility    Output = "mobility"
	OutFlow        Output = "flow"
)

// ConfigError reports a request that cannot be satisfied with the inputs it
// names. It is raised during validation, before any grid is read.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return fmt.Sprintf("pipeline: %s", e.Reason) }

// Request describes one run: which outputs to derive and which store roles
// hold the inputs. Grid fields are logical role names resolved through the
// raster store.
type Request struct {
	Outputs []Output

	// Land component: either a pre-scored grid (Land) or a raw categorical
	// grid (Landuse) scored through SuitabilityRules, falling back to the
	// built-in table for SuitabilityDomain.
	Land              string
	Landuse           string
	SuitabilityRules  rules.Source
	SuitabilityDomain string
	Unscored          rules.UnscoredPolicy

	// Water, natural and urban components: zero or more pre-scored grids
	// each.
	Water   []string
	Natural []string
	Urban   []string

	// Infrastructure is a raw distance grid feeding the decay engine.
	// Required for opportunity, spectrum and everything downstream.
	Infrastructure string

	// Population density grid, required for the demand side.
	Population string

	// Zone layers: base zones tabulate demand, aggregation zones tabulate
	// flow and the supply/use tables. Distinct inputs by design.
	BaseZones        string
	AggregationZones string

	// CutPoints classify potential and opportunity; zero value selects the
	// equal-thirds default.
	CutPoints spectrum.CutPoints

	// AppealFromSpectrum draws demand appeal from the spectrum instead of
	// the potential index.
	AppealFromSpectrum bool
}

// wants reports whether an output was requested.
func (r *Request) wants(out Output) bool {
	for _, o := range r.Outputs {
		if o == out {
			return true
		}
	}
	return false
}

// needsOpportunity covers every output that requires the decay-scored
// infrastructure component.
func (r *Request) needsOpportunity() bool {
	return r.wants(OutOpportunity) || r.needsSpectrum()
}

func (r *Request) needsSpectrum() bool {
	return r.wants(OutSpectrum) || r.needsDemand()
}

func (r *Request) needsDemand() bool {
	return r.wants(OutDemand) || r.wants(OutUnmetDemand) || r.needsMobility()
}

func (r *Request) needsMobility() bool {
	return r.wants(OutMobility) || r.wants(OutFlow)
}

// Validate checks the request against the inputs it names. All failures are
// ConfigErrors raised before any computation or grid access.
func (r *Request) Validate() error {
	if len(r.Outputs) == 0 {
		return &ConfigError{Reason: "no outputs requested"}
	}
	known := map[Output]bool{
		OutPotential: true, OutOpportunity: true, OutSpectrum: true,
		OutDemand: true, OutUnmetDemand: true, OutMobility: true, OutFlow: true,
	}
	for _, o := range r.Outputs {
		if !known[o] {
			return &ConfigError{Reason: fmt.Sprintf("unknown output %q", o)}
		}
	}

	if r.Land == "" && r.Landuse == "" {
		return &ConfigError{Reason: "potential requires a land or landuse input"}
	}
	if r.Land != "" && r.Landuse != "" {
		return &ConfigError{Reason: "land and landuse inputs are exclusive"}
	}
	if r.needsOpportunity() && r.Infrastructure == "" {
		return &ConfigError{Reason: "opportunity and spectrum require an infrastructure input"}
	}
	if r.needsDemand() && r.Population == "" {
		return &ConfigError{Reason: "demand requires a population input"}
	}
	if r.wants(OutFlow) && r.AggregationZones == "" {
		return &ConfigError{Reason: "flow requires an aggregation zone layer"}
	}
	return nil
}
