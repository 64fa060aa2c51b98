package gammaimg

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// WriteText writes the binning as labeled lines with latitude edges in degrees:
//
//	LatitudeBinEdges <deg_0> ... <deg_N>
//	LongitudeBins <n_0> ... <n_{N-1}>
//
// A LongitudeShift line (degrees) follows when the shift is non-zero.
func (f *FISBEL) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("LatitudeBinEdges")
	for _, e := range f.latEdges {
		bw.WriteByte(' ')
		bw.WriteString(strconv.FormatFloat(rad2deg(e), 'g', -1, 64))
	}
	bw.WriteString("\nLongitudeBins")
	for _, b := range f.longBins {
		bw.WriteByte(' ')
		bw.WriteString(strconv.Itoa(b))
	}
	bw.WriteByte('\n')
	if f.shift != 0 {
		fmt.Fprintf(bw, "LongitudeShift %s\n", strconv.FormatFloat(rad2deg(f.shift), 'g', -1, 64))
	}
	return bw.Flush()
}

// ReadFISBELText parses the labeled-line representation written by WriteText.
// Unknown labels and blank lines are ignored.
func ReadFISBELText(r io.Reader) (*FISBEL, error) {
	var (
		edges    []Real
		longBins []int
		shift    Real
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "LatitudeBinEdges":
			edges = edges[:0]
			for _, s := range fields[1:] {
				d, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidBinning, line, err)
				}
				edges = append(edges, deg2rad(d))
			}
		case "LongitudeBins":
			longBins = longBins[:0]
			for _, s := range fields[1:] {
				b, err := strconv.Atoi(s)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidBinning, line, err)
				}
				longBins = append(longBins, b)
			}
		case "LongitudeShift":
			if len(fields) != 2 {
				return nil, fmt.Errorf("%w: line %d: LongitudeShift takes one value", ErrInvalidBinning, line)
			}
			d, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidBinning, line, err)
			}
			shift = deg2rad(d)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(edges) > 0 {
		// the pole edges must be exact after the degree round trip
		if math.Abs(edges[0]) < 1e-9 {
			edges[0] = 0
		}
		if math.Abs(edges[len(edges)-1]-math.Pi) < 1e-9 {
			edges[len(edges)-1] = math.Pi
		}
	}
	n := 0
	for _, b := range longBins {
		n += b
	}
	return RestoreFISBEL(longBins, edges, n, shift)
}
