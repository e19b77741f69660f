package filter

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// Predictor algorithm identifiers, per spec.md §4.3 and PDF 32000-1 §7.4.4.4.
const (
	PredictorNo      = 1
	PredictorTIFF    = 2
	PredictorNone    = 10
	PredictorSub     = 11
	PredictorUp      = 12
	PredictorAverage = 13
	PredictorPaeth   = 14
	PredictorOptimum = 15
)

// PNG row-filter tags, prefixed to each row when a PNG predictor is in use.
const (
	pngNone    = 0x00
	pngSub     = 0x01
	pngUp      = 0x02
	pngAverage = 0x03
	pngPaeth   = 0x04
)

func intMemberOf(i int, list []int) bool {
	for _, v := range list {
		if i == v {
			return true
		}
	}
	return false
}

func predictorParameters(parms Params) (colors, bpc, columns int, err error) {
	colors, found := parms["Colors"]
	if !found {
		colors = 1
	} else if colors <= 0 {
		return 0, 0, 0, errors.New("micropdf: predictor: \"Colors\" must be > 0")
	}

	bpc, found = parms["BitsPerComponent"]
	if !found {
		bpc = 8
	} else if !intMemberOf(bpc, []int{1, 2, 4, 8, 16}) {
		return 0, 0, 0, errors.Errorf("micropdf: predictor: unexpected BitsPerComponent %d", bpc)
	}

	columns, found = parms["Columns"]
	if !found {
		columns = 1
	}
	return colors, bpc, columns, nil
}

func applyHorizontalDiff(row []byte, colors int) []byte {
	if colors <= 0 {
		return row
	}
	for i := 1; i < len(row)/colors; i++ {
		for j := 0; j < colors; j++ {
			row[i*colors+j] += row[(i-1)*colors+j]
		}
	}
	return row
}

func paeth(a, b, c byte) byte {
	pa := abs(int(b) - int(c))
	pb := abs(int(a) - int(c))
	pc := abs(int(a) + int(b) - 2*int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func processRow(pr, cr []byte, predictor, bytesPerPixel int) ([]byte, error) {
	if predictor == PredictorTIFF {
		return applyHorizontalDiff(cr, bytesPerPixel), nil
	}

	cdat := cr[1:]
	pdat := pr[1:]
	rowFilter := int(cr[0])

	switch rowFilter {
	case pngNone:
		// no-op
	case pngSub:
		for i := bytesPerPixel; i < len(cdat); i++ {
			cdat[i] += cdat[i-bytesPerPixel]
		}
	case pngUp:
		for i, p := range pdat {
			cdat[i] += p
		}
	case pngAverage:
		for i := 0; i < bytesPerPixel && i < len(cdat); i++ {
			cdat[i] += pdat[i] / 2
		}
		for i := bytesPerPixel; i < len(cdat); i++ {
			cdat[i] += byte((int(cdat[i-bytesPerPixel]) + int(pdat[i])) / 2)
		}
	case pngPaeth:
		for i := 0; i < len(cdat); i++ {
			var a, c byte
			if i >= bytesPerPixel {
				a = cdat[i-bytesPerPixel]
				c = pdat[i-bytesPerPixel]
			}
			b := pdat[i]
			cdat[i] += paeth(a, b, c)
		}
	default:
		return nil, errors.Errorf("micropdf: predictor: unexpected PNG row filter #%02x", rowFilter)
	}
	return cdat, nil
}

// applyPredictor reverses the PNG/TIFF prediction step applied before
// compression, row by row, following pdfcpu's flateDecode.go
// decodePostProcess/processRow almost verbatim (they share the same
// filter-independent postprocessing step).
func applyPredictor(data []byte, parms Params, predictor int) (*bytes.Buffer, error) {
	if !intMemberOf(predictor, []int{
		PredictorTIFF, PredictorNone, PredictorSub, PredictorUp, PredictorAverage, PredictorPaeth, PredictorOptimum,
	}) {
		return nil, errors.Errorf("micropdf: predictor: undefined Predictor %d", predictor)
	}

	colors, bpc, columns, err := predictorParameters(parms)
	if err != nil {
		return nil, err
	}

	bytesPerPixel := (bpc*colors + 7) / 8
	rowSize := bpc * colors * columns / 8
	if predictor != PredictorTIFF {
		rowSize++
	}
	if rowSize <= 0 {
		return nil, errors.New("micropdf: predictor: degenerate row size")
	}

	r := bytes.NewReader(data)
	cr := make([]byte, rowSize)
	pr := make([]byte, rowSize)

	var out bytes.Buffer
	for {
		n, rerr := io.ReadFull(r, cr)
		if rerr != nil {
			if rerr != io.EOF && rerr != io.ErrUnexpectedEOF {
				return nil, rerr
			}
			if n == 0 {
				break
			}
		}
		if n != rowSize {
			return nil, errors.Errorf("micropdf: predictor: truncated row, expected %d got %d", rowSize, n)
		}
		d, err := processRow(pr, cr, predictor, bytesPerPixel)
		if err != nil {
			return nil, err
		}
		out.Write(d)
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		pr, cr = cr, pr
	}
	return &out, nil
}
