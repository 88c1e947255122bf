package main

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/greenfield-eo/recmap/internal/pipeline"
	"github.com/greenfield-eo/recmap/internal/raster"
	"github.com/greenfield-eo/recmap/internal/rules"
	"github.com/greenfield-eo/recmap/internal/spectrum"
	"github.com/greenfield-eo/recmap/internal/zones"
)

// Manifest declares one run: the extent, the input grids and zone layers by
// role name, and the request itself.
type Manifest struct {
	Extent raster.Extent        `yaml:"extent"`
	Mask   string               `yaml:"mask"`
	Grids  map[string]string    `yaml:"grids"`
	Zones  map[string]ZoneLayer `yaml:"zones"`

	Outputs []string `yaml:"outputs"`

	Land        string   `yaml:"land"`
	Landuse     string   `yaml:"landuse"`
	Rules       string   `yaml:"rules"`
	RulesInline string   `yaml:"rules_inline"`
	Domain      string   `yaml:"domain"`
	Unscored    string   `yaml:"unscored"`
	Water       []string `yaml:"water"`
	Natural     []string `yaml:"natural"`
	Urban       []string `yaml:"urban"`

	Infrastructure string `yaml:"infrastructure"`
	Population     string `yaml:"population"`

	BaseZones        string `yaml:"base_zones"`
	AggregationZones string `yaml:"aggregation_zones"`

	CutPoints          spectrum.CutPoints `yaml:"cut_points"`
	AppealFromSpectrum bool               `yaml:"appeal_from_spectrum"`
}

// ZoneLayer names a shapefile and the attribute carrying the zone id.
type ZoneLayer struct {
	Shapefile string `yaml:"shapefile"`
	IDField   string `yaml:"id_field"`
}

// LoadManifest parses a run manifest from a YAML file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "manifest: read %s", path)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "manifest: parse %s", path)
	}
	return &m, nil
}

// Request maps the manifest onto a pipeline request.
func (m *Manifest) Request() pipeline.Request {
	outputs := make([]pipeline.Output, len(m.Outputs))
	for i, o := range m.Outputs {
		outputs[i] = pipeline.Output(o)
	}

	var src rules.Source
	switch {
	case m.RulesInline != "":
		src = rules.Inline(m.RulesInline)
	case m.Rules != "":
		src = rules.File(m.Rules)
	}

	return pipeline.Request{
		Outputs:            outputs,
		Land:               m.Land,
		Landuse:            m.Landuse,
		SuitabilityRules:   src,
		SuitabilityDomain:  m.Domain,
		Unscored:           rules.UnscoredPolicy(m.Unscored),
		Water:              m.Water,
		Natural:            m.Natural,
		Urban:              m.Urban,
		Infrastructure:     m.Infrastructure,
		Population:         m.Population,
		BaseZones:          m.BaseZones,
		AggregationZones:   m.AggregationZones,
		CutPoints:          m.CutPoints,
		AppealFromSpectrum: m.AppealFromSpectrum,
	}
}

// LoadInputs reads every grid and zone layer the manifest names into a fresh
// in-memory grid store and builds the run context.
func (m *Manifest) LoadInputs() (*raster.MemStore, raster.RunContext, error) {
	st := raster.NewMemStore()

	for name, path := range m.Grids {
		g, err := readGrid(path)
		if err != nil {
			return nil, raster.RunContext{}, err
		}
		if err := st.PutGrid(name, g); err != nil {
			return nil, raster.RunContext{}, err
		}
	}

	for name, layer := range m.Zones {
		polys, err := zones.LoadShapefile(layer.Shapefile, layer.IDField)
		if err != nil {
			return nil, raster.RunContext{}, err
		}
		zg, err := zones.Rasterize(polys, m.Extent)
		if err != nil {
			return nil, raster.RunContext{}, err
		}
		if err := st.PutGrid(name, zg); err != nil {
			return nil, raster.RunContext{}, err
		}
	}

	var mask *raster.Grid
	if m.Mask != "" {
		g, err := readGrid(m.Mask)
		if err != nil {
			return nil, raster.RunContext{}, err
		}
		mask = g
	}

	policy, err := raster.ParseNoDataPolicy(cfg.Run.NoDataPolicy)
	if err != nil {
		return nil, raster.RunContext{}, err
	}
	rc, err := raster.NewRunContext(m.Extent, mask, policy, cfg.Run.Workers)
	if err != nil {
		return nil, raster.RunContext{}, err
	}
	return st, rc, nil
}

func readGrid(path string) (*raster.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "manifest: open grid %s", path)
	}
	defer f.Close()

	ag, err := raster.ReadASCII(f)
	if err != nil {
		return nil, eris.Wrapf(err, "manifest: read grid %s", path)
	}
	return ag.Grid, nil
}
