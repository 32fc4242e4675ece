package gdcconfig

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charlie0129/lenscal/pkg/calibration"
)

// MaxDimension bounds the table height and width accepted by Decode.
const MaxDimension = 1 << 15

// Config is a parsed GDC custom config.
type Config struct {
	Version   int
	Margin    [2]int
	CenterRow int
	CenterCol int
	Table     calibration.RemapTable
}

// Decode parses a config produced by Encode. It rejects files whose row or
// token counts disagree with the declared size.
func Decode(r io.Reader) (*Config, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), 1<<28)

	lineNo := 0
	next := func() ([]string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("line %d: unexpected end of file", lineNo+1)
		}
		lineNo++
		return strings.Fields(sc.Text()), nil
	}

	ints := func(want int) ([]int, error) {
		fields, err := next()
		if err != nil {
			return nil, err
		}
		if len(fields) != want {
			return nil, fmt.Errorf("line %d: expected %d integers, got %d fields", lineNo, want, len(fields))
		}
		out := make([]int, want)
		for i, f := range fields {
			if out[i], err = strconv.Atoi(f); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		}
		return out, nil
	}

	cfg := &Config{}

	v, err := ints(1)
	if err != nil {
		return nil, err
	}
	cfg.Version = v[0]
	if cfg.Version != Version {
		return nil, fmt.Errorf("unsupported config version %d", cfg.Version)
	}

	m, err := ints(2)
	if err != nil {
		return nil, err
	}
	cfg.Margin = [2]int{m[0], m[1]}

	size, err := ints(2)
	if err != nil {
		return nil, err
	}
	height, width := size[0], size[1]
	if height <= 0 || width <= 0 || height > MaxDimension || width > MaxDimension {
		return nil, fmt.Errorf("line %d: invalid size %dx%d", lineNo, width, height)
	}

	center, err := ints(2)
	if err != nil {
		return nil, err
	}
	cfg.CenterRow, cfg.CenterCol = center[0], center[1]

	// Maps grow with the rows actually read, never from the header alone.
	var mapX, mapY []float32
	for row := 0; row < height; row++ {
		tokens, err := next()
		if err != nil {
			return nil, err
		}
		if len(tokens) != width {
			return nil, fmt.Errorf("line %d: expected %d tokens, got %d", lineNo, width, len(tokens))
		}
		for _, tok := range tokens {
			ys, xs, ok := strings.Cut(tok, ":")
			if !ok {
				return nil, fmt.Errorf("line %d: malformed token %q", lineNo, tok)
			}
			y, err := strconv.ParseFloat(ys, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			x, err := strconv.ParseFloat(xs, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			mapX = append(mapX, float32(x))
			mapY = append(mapY, float32(y))
		}
	}
	cfg.Table = calibration.RemapTable{Width: width, Height: height, MapX: mapX, MapY: mapY}

	for sc.Scan() {
		lineNo++
		if strings.TrimSpace(sc.Text()) != "" {
			return nil, fmt.Errorf("line %d: unexpected data after %d rows", lineNo, height)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Range returns the smallest and largest coordinate in each map.
func (c *Config) Range() (minX, maxX, minY, maxY float32) {
	t := c.Table
	if len(t.MapX) == 0 {
		return 0, 0, 0, 0
	}
	minX, maxX, minY, maxY = t.MapX[0], t.MapX[0], t.MapY[0], t.MapY[0]
	for i := range t.MapX {
		minX = min(minX, t.MapX[i])
		maxX = max(maxX, t.MapX[i])
		minY = min(minY, t.MapY[i])
		maxY = max(maxY, t.MapY[i])
	}
	return minX, maxX, minY, maxY
}
