package raster

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ASCIIGrid couples a grid with its extent as read from a GRASS-style ASCII
// raster. This is boundary I/O for the CLI; the computation core only ever
// sees the Grid.
type ASCIIGrid struct {
	Grid   *Grid
	Extent Extent
}

// ReadASCII parses a GRASS ASCII raster: header lines `key: value` for
// north/south/east/west/rows/cols and optionally null, followed by
// whitespace-separated cell values in row-major order (north row first).
func ReadASCII(r io.Reader) (*ASCIIGrid, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)

	header := map[string]string{}
	var values []float64

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if key, value, ok := headerLine(line); ok && len(values) == 0 {
			header[key] = value
			continue
		}
		for _, field := range strings.Fields(line) {
			if field == header["null"] && header["null"] != "" {
				values = append(values, NoData())
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "raster: parse cell value %q", field)
			}
			values = append(values, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "raster: read ascii grid")
	}

	extent, err := extentFromHeader(header)
	if err != nil {
		return nil, err
	}
	grid, err := FromValues(extent.Rows, extent.Cols, values)
	if err != nil {
		return nil, err
	}
	return &ASCIIGrid{Grid: grid, Extent: extent}, nil
}

// WriteASCII writes a grid in the same format ReadASCII accepts, using "*"
// as the null marker.
func WriteASCII(w io.Writer, g *Grid, extent Extent) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "north: %g\n", extent.North)
	fmt.Fprintf(bw, "south: %g\n", extent.South)
	fmt.Fprintf(bw, "east: %g\n", extent.East)
	fmt.Fprintf(bw, "west: %g\n", extent.West)
	fmt.Fprintf(bw, "rows: %d\n", extent.Rows)
	fmt.Fprintf(bw, "cols: %d\n", extent.Cols)
	fmt.Fprintf(bw, "null: *\n")
	for row := 0; row < g.Rows(); row++ {
		for col := 0; col < g.Cols(); col++ {
			if col > 0 {
				bw.WriteByte(' ')
			}
			v := g.At(row, col)
			if IsNoData(v) {
				bw.WriteByte('*')
			} else {
				fmt.Fprintf(bw, "%g", v)
			}
		}
		bw.WriteByte('\n')
	}
	return eris.Wrap(bw.Flush(), "raster: write ascii grid")
}

// headerLine splits "key: value" header lines; cell rows never contain ':'.
func headerLine(line string) (key, value string, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", "", false
	}
	key = strings.ToLower(strings.TrimSpace(line[:idx]))
	value = strings.TrimSpace(line[idx+1:])
	switch key {
	case "north", "south", "east", "west", "rows", "cols", "null", "type", "multiplier":
		return key, value, true
	}
	return "", "", false
}

func extentFromHeader(header map[string]string) (Extent, error) {
	var extent Extent
	var err error
	get := func(key string) float64 {
		if err != nil {
			return 0
		}
		raw, ok := header[key]
		if !ok {
			err = eris.Errorf("raster: ascii header missing %q", key)
			return 0
		}
		v, perr := strconv.ParseFloat(raw, 64)
		if perr != nil {
			err = eris.Wrapf(perr, "raster: ascii header %q", key)
		}
		return v
	}
	extent.North = get("north")
	extent.South = get("south")
	extent.East = get("east")
	extent.West = get("west")
	extent.Rows = int(get("rows"))
	extent.Cols = int(get("cols"))
	if err != nil {
		return Extent{}, err
	}
	if extent.Rows <= 0 || extent.Cols <= 0 {
		return Extent{}, eris.Errorf("raster: ascii header rows/cols %dx%d", extent.Rows, extent.Cols)
	}
	return extent, nil
}
