package sparsenc

import (
	"sort"

	"github.com/derekoutis/sparsenc/galois"
)

// oaRow is one installed row: cols holds the ascending absolute columns
// still carrying a nonzero coefficient, cols[0] is the column it is keyed
// under in OADecoder.pivotRows.
type oaRow struct {
	cols []int
	vals []byte
	rhs  []byte
}

func (row *oaRow) valueAt(col int) byte {
	k := sort.SearchInts(row.cols, col)
	if k < len(row.cols) && row.cols[k] == col {
		return row.vals[k]
	}
	return 0
}

// OADecoder is the overlap-aware decoder of spec.md section 4.8: unlike
// CBDDecoder it makes no assumption that a generation's membership is a
// contiguous run of columns, so it works across any of the five grouping
// schemes and across an arbitrary overlap pattern between them. Each
// incoming packet is reduced, left to right, against whatever pivots are
// already installed; the first column left without a pivot becomes this
// row's new pivot, carrying every later column as its tail. A pivot whose
// support is unusually wide (more nonzero columns than fillInBudget) is
// recorded as an inactivation: not a distinct solving phase, just a
// diagnostic signal of how much cross-generation fill-in this session is
// paying for, surfaced through Inactivations().
type OADecoder struct {
	cc  *codeContext
	r   resolved
	M   int

	pivotRows  map[int]*oaRow
	rank       int
	fillInBudget int
	inactivations int

	pp         [][]byte
	finished   bool
	processed  int
	ops        int64
}

const oaFillInMultiplier = 2

// NewOADecoder creates an OA decoder. p.Seed must match the encoder's.
func NewOADecoder(p Parameters) (*OADecoder, error) {
	cc, err := newCodeContext(p)
	if err != nil {
		return nil, err
	}
	r := cc.Params
	budget := r.SizeG * oaFillInMultiplier
	if budget < 1 {
		budget = 1
	}
	return &OADecoder{
		cc:           cc,
		r:            r,
		M:            r.snum + r.cnum,
		pivotRows:    make(map[int]*oaRow),
		fillInBudget: budget,
	}, nil
}

// ProcessPacket folds pkt into the triangulated system.
func (d *OADecoder) ProcessPacket(pkt *Packet) error {
	if err := pkt.validate(d.r); err != nil {
		return err
	}
	d.processed++

	if pkt.IsSystematic() {
		d.admit([]int{int(pkt.Ucid)}, []byte{1}, append([]byte(nil), pkt.Syms...))
		return nil
	}

	gen := d.cc.generation(int(pkt.Gid))
	field := d.cc.Field
	cols := append([]int(nil), gen.PktID...)
	vals := make([]byte, len(cols))
	for i := range cols {
		vals[i] = field.ReadBits(pkt.Coes, i)
	}
	sortColsVals(cols, vals)
	d.admit(cols, vals, append([]byte(nil), pkt.Syms...))
	return nil
}

// admit performs a single left-to-right elimination pass against installed
// pivots (valid because a pivot row's support never reaches below its own
// pivot column, so earlier positions are never revisited), then installs
// whatever remains at its smallest column.
func (d *OADecoder) admit(cols []int, vals []byte, rhs []byte) {
	field := d.cc.Field
	for i := 0; i < len(cols); i++ {
		c := cols[i]
		if vals[i] == 0 {
			continue
		}
		row, ok := d.pivotRows[c]
		if !ok {
			continue
		}
		q, err := field.Divide(vals[i], row.valueAt(c))
		if err != nil {
			continue
		}
		d.ops++
		cols, vals = eliminateFrom(field, cols, vals, row, q, &d.ops)
		d.cc.combineSyms(rhs, row.rhs, q)
		d.ops += int64(d.r.SizeP)
	}

	remaining := remainingIndices(vals)
	if len(remaining) == 0 {
		return // fully canceled: no new information
	}
	if len(remaining) > d.fillInBudget {
		d.inactivations += len(remaining) - 1
	}
	idx := remaining[0]
	d.install(cols[idx], &oaRow{cols: cols[idx:], vals: vals[idx:], rhs: rhs})
}

// eliminateFrom returns (cols,vals) minus q*row, both ascending, merged by
// column via a two-pointer pass over the union of both column sets, so
// columns only row carries appear as fill-in.
func eliminateFrom(field *galois.Field, cols []int, vals []byte, row *oaRow, q byte, ops *int64) ([]int, []byte) {
	outCols := make([]int, 0, len(cols)+len(row.cols))
	outVals := make([]byte, 0, len(cols)+len(row.cols))
	i, j := 0, 0
	for i < len(cols) || j < len(row.cols) {
		switch {
		case j >= len(row.cols) || (i < len(cols) && cols[i] < row.cols[j]):
			outCols, outVals = append(outCols, cols[i]), append(outVals, vals[i])
			i++
		case i >= len(cols) || cols[i] > row.cols[j]:
			outCols, outVals = append(outCols, row.cols[j]), append(outVals, field.Multiply(q, row.vals[j]))
			*ops++
			j++
		default:
			outCols, outVals = append(outCols, cols[i]), append(outVals, vals[i]^field.Multiply(q, row.vals[j]))
			*ops++
			i++
			j++
		}
	}
	return outCols, outVals
}

// install records col's pivot row and, once every column 0..M-1 has one,
// runs a full-width back substitution (no bandwidth assumption, unlike
// CBDDecoder, since OA's generations may overlap arbitrarily).
func (d *OADecoder) install(col int, row *oaRow) {
	d.pivotRows[col] = row
	d.rank++
	if d.rank == d.M {
		d.backSubstitute()
	}
}

func (d *OADecoder) backSubstitute() {
	field := d.cc.Field
	for i := d.M - 1; i >= 0; i-- {
		row := d.pivotRows[i]
		pivotVal := row.vals[0]
		for p := i - 1; p >= 0; p-- {
			other := d.pivotRows[p]
			k := sort.SearchInts(other.cols, i)
			if k >= len(other.cols) || other.cols[k] != i {
				continue
			}
			coefAtI := other.vals[k]
			if coefAtI == 0 {
				continue
			}
			q, err := field.Divide(coefAtI, pivotVal)
			if err != nil {
				continue
			}
			d.ops++
			d.cc.combineSyms(other.rhs, row.rhs, q)
			d.ops += int64(d.r.SizeP)
			other.vals[k] = 0
		}
		if pivotVal != 1 {
			inv, err := field.Invert(pivotVal)
			if err == nil {
				d.cc.scaleSyms(row.rhs, inv)
				d.ops += int64(d.r.SizeP)
				row.vals[0] = 1
			}
		}
	}
	pp := make([][]byte, d.M)
	for i := 0; i < d.M; i++ {
		pp[i] = d.pivotRows[i].rhs
	}
	d.pp = pp
	d.finished = true
}

// Inactivations is a diagnostic count of extra un-pivoted columns carried
// in the tail of rows whose support exceeded the fill-in budget.
func (d *OADecoder) Inactivations() int { return d.inactivations }

// Finished reports whether the decoder has reached rank M.
func (d *OADecoder) Finished() bool { return d.finished }

// Overhead is the number of packets processed beyond snum.
func (d *OADecoder) Overhead() int {
	if o := d.processed - d.r.snum; o > 0 {
		return o
	}
	return 0
}

// Operations is the running field-operation tally.
func (d *OADecoder) Operations() int64 { return d.ops }

// Recover reassembles the original byte stream.
func (d *OADecoder) Recover() ([]byte, error) {
	if !d.finished {
		return nil, ErrNotReady
	}
	return recoverData(d.pp, d.r), nil
}

func remainingIndices(vals []byte) []int {
	out := make([]int, 0, 4)
	for i, v := range vals {
		if v != 0 {
			out = append(out, i)
		}
	}
	return out
}

// sortColsVals sorts (cols,vals) ascending by column, keeping them paired.
// Generations are usually already close to sorted (BAND/WINDWRAP are exactly
// sorted or a single wraparound split), so insertion sort is the right tool.
func sortColsVals(cols []int, vals []byte) {
	for i := 1; i < len(cols); i++ {
		c, v := cols[i], vals[i]
		j := i - 1
		for j >= 0 && cols[j] > c {
			cols[j+1] = cols[j]
			vals[j+1] = vals[j]
			j--
		}
		cols[j+1] = c
		vals[j+1] = v
	}
}
