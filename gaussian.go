package sparsenc

import "github.com/derekoutis/sparsenc/galois"

// forwardSubstitute transforms [A|B] (A is nrow x ncolA, B is nrow x ncolB)
// so that A becomes upper triangular, applying every row operation to B as
// well. Ties in pivot search resolve to the lowest row index (spec.md
// section 4.8). Mirrors gaussian.c's forward_substitute.
func forwardSubstitute(field *galois.Field, A, B [][]byte) (int64, error) {
	nrow := len(A)
	if nrow == 0 {
		return 0, nil
	}
	ncolA := len(A[0])
	ncolB := 0
	if len(B) > 0 {
		ncolB = len(B[0])
	}
	var ops int64
	boundary := ncolA
	if nrow < boundary {
		boundary = nrow
	}
	for i := 0; i < boundary; i++ {
		if A[i][i] == 0 {
			pivot := -1
			for p := i + 1; p < nrow; p++ {
				if A[p][i] != 0 {
					pivot = p
					break
				}
			}
			if pivot == -1 {
				continue // all-zero column, skip it
			}
			A[i], A[pivot] = A[pivot], A[i]
			if ncolB > 0 {
				B[i], B[pivot] = B[pivot], B[i]
			}
		}
		for j := i + 1; j < nrow; j++ {
			if A[j][i] == 0 {
				continue
			}
			q, err := field.Divide(A[j][i], A[i][i])
			if err != nil {
				return ops, wrapGaloisErr(err)
			}
			ops++
			field.MultiplyAddRegion(A[j][i:], A[i][i:], q, ncolA-i)
			ops += int64(ncolA - i)
			if ncolB > 0 {
				field.MultiplyAddRegion(B[j], B[i], q, ncolB)
				ops += int64(ncolB)
			}
		}
	}
	return ops, nil
}

// backSubstitute diagonalizes a full-rank upper-triangular A, applying the
// same row operations to B, so that back_substitute(forward_substitute([A|B]))
// == [I | A^-1 B] (spec.md section 8 property 7). Mirrors gaussian.c's
// back_substitute. B's rows are combined as symbol payloads through
// combineSymsRegion/scaleSymsRegion, so at gfpower in {2..7} each B byte
// holds several bit-packed field elements.
func backSubstitute(field *galois.Field, A, B [][]byte) (int64, error) {
	ncolA := 0
	if len(A) > 0 {
		ncolA = len(A[0])
	}
	ncolB := 0
	if len(B) > 0 {
		ncolB = len(B[0])
	}
	var ops int64
	for i := ncolA - 1; i >= 0; i-- {
		for j := 0; j < i; j++ {
			if A[j][i] == 0 {
				continue
			}
			q, err := field.Divide(A[j][i], A[i][i])
			if err != nil {
				return ops, wrapGaloisErr(err)
			}
			ops++
			A[j][i] = 0
			if ncolB > 0 {
				combineSymsRegion(field, B[j], B[i], q, ncolB, field.Power)
				ops += int64(ncolB)
			}
		}
		if A[i][i] != 1 {
			inv, err := field.Divide(1, A[i][i])
			if err != nil {
				return ops, wrapGaloisErr(err)
			}
			ops++
			if ncolB > 0 {
				scaleSymsRegion(field, B[i], inv, ncolB, field.Power)
				ops += int64(ncolB)
			}
			A[i][i] = 1
		}
	}
	return ops, nil
}
