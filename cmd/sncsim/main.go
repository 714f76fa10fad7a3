// Command sncsim drives an in-process encode/decode session over
// synthetic data, optionally comparing recovery overhead against a
// fixed-rate Reed-Solomon baseline.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/klauspost/reedsolomon"

	"github.com/derekoutis/sparsenc"
)

func main() {
	dataSize := flag.Int("datasize", 64*1024, "total bytes to encode")
	sizeP := flag.Int("sizep", 1024, "payload bytes per packet")
	sizeC := flag.Int("sizec", 0, "number of precode parity packets")
	sizeB := flag.Int("sizeb", 4, "generation stride")
	sizeG := flag.Int("sizeg", 16, "generation size")
	gfpower := flag.Int("gfpower", 8, "Galois field power, 1..8")
	codeType := flag.String("type", "band", "band, windwrap, rand, bats, or raptor")
	decoderName := flag.String("decoder", "cbd", "cbd, gg, or oa")
	lossProb := flag.Float64("loss", 0.0, "packet loss probability (0.0 to 1.0)")
	sys := flag.Bool("sys", false, "enable the systematic shortcut")
	compare := flag.Bool("compare", false, "also run a fixed-rate Reed-Solomon baseline")
	seed := flag.Int64("seed", time.Now().UnixNano(), "session seed")
	flag.Parse()

	ct, err := parseCodeType(*codeType)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	p := sparsenc.Parameters{
		DataSize: *dataSize,
		SizeP:    *sizeP,
		SizeC:    *sizeC,
		SizeB:    *sizeB,
		SizeG:    *sizeG,
		Type:     ct,
		GFPower:  *gfpower,
		Sys:      *sys,
		Seed:     *seed,
	}

	fmt.Printf("Running sncsim with:\n")
	fmt.Printf("  - datasize: %d  size_p: %d  size_c: %d  size_b: %d  size_g: %d\n", *dataSize, *sizeP, *sizeC, *sizeB, *sizeG)
	fmt.Printf("  - type: %s  GF(2^%d)  decoder: %s  loss: %.2f\n", *codeType, *gfpower, *decoderName, *lossProb)

	data := randomBytes(*seed, *dataSize)
	snc, err := runSNC(data, p, *decoderName, *lossProb)
	if err != nil {
		fmt.Println("sncsim failed:", err)
		return
	}
	fmt.Println(snc.summaryLine())

	if !*compare {
		return
	}
	rs, err := runReedSolomon(data, *sizeP, *sizeC, *lossProb, *seed)
	if err != nil {
		fmt.Println("reedsolomon comparison failed:", err)
		return
	}
	fmt.Println("\n| Scheme | Packets Used | Overhead | Recovered |")
	fmt.Println("|--------|--------------|----------|-----------|")
	fmt.Printf("| SNC(%s)  | %d | %d | %v |\n", *decoderName, snc.used, snc.overhead, snc.recovered)
	fmt.Printf("| RS     | %d | %d | %v |\n", rs.used, rs.overhead, rs.recovered)
}

func parseCodeType(s string) (sparsenc.CodeType, error) {
	switch s {
	case "band":
		return sparsenc.BAND, nil
	case "windwrap":
		return sparsenc.WINDWRAP, nil
	case "rand":
		return sparsenc.RAND, nil
	case "bats":
		return sparsenc.BATS, nil
	case "raptor":
		return sparsenc.RAPTOR, nil
	default:
		return 0, fmt.Errorf("unknown code type %q (want band, windwrap, rand, bats, or raptor)", s)
	}
}

func randomBytes(seed int64, n int) []byte {
	r := rand.New(rand.NewSource(seed))
	buf := make([]byte, n)
	r.Read(buf)
	return buf
}

type sncResult struct {
	used      int
	overhead  int
	recovered bool
}

func (r sncResult) summaryLine() string {
	return fmt.Sprintf("SNC: used %d packets (overhead %d), recovered=%v", r.used, r.overhead, r.recovered)
}

// runSNC drives an encoder, dropping each emitted packet with probability
// lossProb, feeding survivors to the requested decoder, up to a generous
// attempt cap so an unlucky streak of losses doesn't hang forever.
func runSNC(data []byte, p sparsenc.Parameters, decoderName string, lossProb float64) (sncResult, error) {
	enc, err := sparsenc.NewEncoderContext(data, p)
	if err != nil {
		return sncResult{}, err
	}
	dec, err := newDecoder(decoderName, enc.Parameters())
	if err != nil {
		return sncResult{}, err
	}
	lossRng := rand.New(rand.NewSource(p.Seed ^ 0x5ec0de))

	attemptCap := enc.SourceCount() * 50
	used := 0
	for attempts := 0; !dec.Finished() && attempts < attemptCap; attempts++ {
		pkt, err := enc.Emit()
		if err != nil {
			return sncResult{}, err
		}
		if lossRng.Float64() < lossProb {
			continue
		}
		used++
		if err := dec.ProcessPacket(pkt); err != nil {
			return sncResult{}, err
		}
	}
	result := sncResult{used: used, overhead: dec.Overhead(), recovered: dec.Finished()}
	if dec.Finished() {
		got, err := dec.Recover()
		if err == nil {
			result.recovered = got != nil
		}
	}
	return result, nil
}

func newDecoder(name string, p sparsenc.Parameters) (sparsenc.Decoder, error) {
	switch name {
	case "cbd":
		return sparsenc.NewCBDDecoder(p)
	case "gg":
		return sparsenc.NewGGDecoder(p)
	case "oa":
		return sparsenc.NewOADecoder(p)
	default:
		return nil, fmt.Errorf("unknown decoder %q (want cbd, gg, or oa)", name)
	}
}

type rsResult struct {
	used      int
	overhead  int
	recovered bool
}

// runReedSolomon splits data into dataShards equal to snum, adds sizeC
// parity shards (two when sizeC is 0), and drops shards uniformly at lossProb to report whether a
// fixed-rate scheme survives the same loss rate SNC was measured under.
func runReedSolomon(data []byte, sizeP, sizeC int, lossProb float64, seed int64) (rsResult, error) {
	if sizeC == 0 {
		sizeC = 2
	}
	dataShards := (len(data) + sizeP - 1) / sizeP
	enc, err := reedsolomon.New(dataShards, sizeC)
	if err != nil {
		return rsResult{}, err
	}
	shards := make([][]byte, dataShards+sizeC)
	for i := range shards {
		shards[i] = make([]byte, sizeP)
	}
	for i := 0; i < dataShards; i++ {
		copy(shards[i], data[i*sizeP:min((i+1)*sizeP, len(data))])
	}
	if err := enc.Encode(shards); err != nil {
		return rsResult{}, err
	}

	rng := rand.New(rand.NewSource(seed ^ 0x2513))
	used := 0
	for i := range shards {
		if rng.Float64() < lossProb {
			shards[i] = nil
			continue
		}
		used++
	}
	recoverable := enc.Reconstruct(shards) == nil
	ok, err := enc.Verify(shards)
	return rsResult{used: used, overhead: used - dataShards, recovered: recoverable && ok && err == nil}, nil
}
