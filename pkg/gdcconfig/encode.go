// Package gdcconfig reads and writes the GDC custom config: a line-oriented
// text file carrying a dense remap table for the geometric distortion
// correction block.
//
// Layout:
//
//	1                      format version
//	50 50                  block metadata, opaque to this tool
//	H W                    table height and width
//	H/2-1 W/2-1            image center
//	y:x y:x ... y:x        H lines of W "mapY:mapX" tokens, each followed by a space
package gdcconfig

import (
	"bufio"
	"io"
	"strconv"

	"github.com/charlie0129/lenscal/pkg/calibration"
)

const (
	Version = 1
	// Margin is written verbatim on the second line.
	Margin = 50

	// ShortestPrecision formats every value with the fewest digits that
	// still round-trip the float32.
	ShortestPrecision = -1
)

// Options controls value formatting.
type Options struct {
	// Precision is the number of decimals per coordinate, or
	// ShortestPrecision.
	Precision int
}

// DefaultOptions uses ShortestPrecision.
func DefaultOptions() Options {
	return Options{Precision: ShortestPrecision}
}

// Center returns the center line values for a table of the given size.
func Center(width, height int) (row, col int) {
	return height/2 - 1, width/2 - 1
}

// Encode writes table to w. Negative coordinates are written as 0.
func Encode(w io.Writer, table calibration.RemapTable, opts Options) error {
	if err := table.Validate(); err != nil {
		return err
	}

	bw := bufio.NewWriterSize(w, 1<<16)

	cRow, cCol := Center(table.Width, table.Height)
	var header []byte
	header = strconv.AppendInt(header, Version, 10)
	header = append(header, '\n')
	header = strconv.AppendInt(header, Margin, 10)
	header = append(header, ' ')
	header = strconv.AppendInt(header, Margin, 10)
	header = append(header, '\n')
	header = strconv.AppendInt(header, int64(table.Height), 10)
	header = append(header, ' ')
	header = strconv.AppendInt(header, int64(table.Width), 10)
	header = append(header, '\n')
	header = strconv.AppendInt(header, int64(cRow), 10)
	header = append(header, ' ')
	header = strconv.AppendInt(header, int64(cCol), 10)
	header = append(header, '\n')
	if _, err := bw.Write(header); err != nil {
		return err
	}

	line := make([]byte, 0, table.Width*24)
	for r := 0; r < table.Height; r++ {
		line = line[:0]
		for c := 0; c < table.Width; c++ {
			x, y := table.At(r, c)
			line = appendCoord(line, y, opts.Precision)
			line = append(line, ':')
			line = appendCoord(line, x, opts.Precision)
			line = append(line, ' ')
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func appendCoord(b []byte, v float32, precision int) []byte {
	// Also folds -0 and NaN into 0.
	if !(v > 0) {
		v = 0
	}
	return strconv.AppendFloat(b, float64(v), 'f', precision, 32)
}
