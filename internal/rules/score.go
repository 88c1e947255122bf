package rules

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/greenfield-eo/recmap/internal/raster"
)

// UnscoredPolicy decides what happens to cells no rule covers.
type UnscoredPolicy string

const (
	// UnscoredError aborts the run on the first uncovered cell value.
	UnscoredError UnscoredPolicy = "error"
	// UnscoredNoData passes uncovered cells through as no-data.
	UnscoredNoData UnscoredPolicy = "nodata"
)

// UnscoredValueError reports a cell value outside every rule range.
type UnscoredValueError struct {
	Value float64
}

func (e *UnscoredValueError) Error() string {
	return fmt.Sprintf("rules: value %g matches no rule", e.Value)
}

// Reclassify maps every valid cell of g through the table's first matching
// rule. No-data cells pass through as no-data. A nil table falls back to the
// built-in table for the named domain (currently only CORINE); an explicit
// table always wins.
func Reclassify(ctx context.Context, workers int, g *raster.Grid, table *Table, domain string, policy UnscoredPolicy) (*raster.Grid, error) {
	if table == nil {
		builtin, err := BuiltinTable(domain)
		if err != nil {
			return nil, err
		}
		zap.L().Debug("rules: using built-in score table", zap.String("domain", domain))
		table = builtin
	}
	if policy == "" {
		policy = UnscoredError
	}

	return raster.MapCellsErr(ctx, workers, g, func(v float64) (float64, error) {
		rule, ok := table.Match(v)
		if !ok {
			if policy == UnscoredNoData {
				return raster.NoData(), nil
			}
			return 0, &UnscoredValueError{Value: v}
		}
		return rule.Score, nil
	})
}
