package sparsenc

import (
	"fmt"
	"math/rand"
)

// RecodeSchedule selects which generation's buffer a recoded packet is
// drawn from, spec.md section 4.5.
type RecodeSchedule int

const (
	// TrivSched picks uniformly over all gnum generations, whether or not
	// anything has been buffered for them yet.
	TrivSched RecodeSchedule = iota
	// RandSched picks uniformly among generations with a nonempty buffer.
	RandSched
	// MLPISched (most-least-previously-issued) picks the generation
	// maximizing nc[gid]-nsched[gid], a load-balancing heuristic.
	MLPISched
)

// genBuffer is a single generation's FIFO of buffered coded packets,
// spec.md section 4.5: bufsize capacity, nc received, pn write pointer,
// nsched times recoded from.
type genBuffer struct {
	pkts   []*Packet
	nc     int
	pn     int
	nsched int
}

// RecoderContext buffers received coded packets per generation and emits
// fresh linear re-combinations without ever decoding, spec.md section 4.5.
// It takes ownership of buffered packets; evicted packets are simply
// dropped (Go's GC retires what the C source explicitly frees).
type RecoderContext struct {
	cc      *codeContext
	bufSize int
	gnum    int // -1 for BATS/RAPTOR: buffers keyed by gid seen so far
	buffers map[int]*genBuffer
	nemp    int // number of generations with a nonempty buffer
	rng     *rand.Rand
}

// NewRecoderContext creates a recoder for the given session parameters
// (Seed must match the encoder's, so TrivSched/MLPISched see the same
// generation layout) with a per-generation buffer capacity of bufSize.
func NewRecoderContext(p Parameters, bufSize int) (*RecoderContext, error) {
	if bufSize <= 0 {
		return nil, fmt.Errorf("%w: bufsize must be positive", ErrInvalidParameter)
	}
	cc, err := newCodeContext(p)
	if err != nil {
		return nil, err
	}
	return &RecoderContext{
		cc:      cc,
		bufSize: bufSize,
		gnum:    cc.Params.gnum,
		buffers: make(map[int]*genBuffer),
		rng:     rand.New(rand.NewSource(cc.Params.Seed + 2)),
	}, nil
}

// BufferPacket stores pkt in its generation's FIFO, evicting the oldest
// buffered packet if the buffer is already full. Systematic (gid==-1)
// packets cannot be recoded and are rejected.
func (rc *RecoderContext) BufferPacket(pkt *Packet) error {
	if pkt.Gid < 0 {
		return fmt.Errorf("%w: cannot buffer a systematic packet", ErrInvalidPacket)
	}
	gid := int(pkt.Gid)
	buf, ok := rc.buffers[gid]
	if !ok {
		buf = &genBuffer{pkts: make([]*Packet, rc.bufSize)}
		rc.buffers[gid] = buf
	}
	switch {
	case buf.nc == 0:
		buf.pkts[0] = pkt
		buf.nc++
		rc.nemp++
	case buf.nc == rc.bufSize:
		buf.pkts[buf.pn] = pkt // FIFO overwrite of the oldest slot
	default:
		buf.pkts[buf.pn] = pkt
		buf.nc++
	}
	buf.pn = (buf.pn + 1) % rc.bufSize
	return nil
}

// GenerateRecodedPacket produces Σ c_k·pkt_k over the packets buffered for
// a scheduled generation, with fresh random coefficients c_k. Returns
// (nil, nil) if the schedule has no packet to offer (RandSched on an empty
// recoder).
func (rc *RecoderContext) GenerateRecodedPacket(sched RecodeSchedule) (*Packet, error) {
	gid, ok, err := rc.scheduleGeneration(sched)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	buf := rc.buffers[gid]
	r := rc.cc.Params
	pkt := newEmptyPacket(r)
	pkt.Gid = int32(gid)
	fieldSize := 1 << uint(r.GFPower)
	for i := 0; i < buf.nc; i++ {
		co := byte(rc.rng.Intn(fieldSize))
		rc.cc.combineCoes(pkt.Coes, buf.pkts[i].Coes, co)
		rc.cc.combineSyms(pkt.Syms, buf.pkts[i].Syms, co)
	}
	return pkt, nil
}

// scheduleGeneration implements schedule_recode_generation. An explicit
// error is returned for an unrecognized schedule instead of the C source's
// uninitialized-variable fallthrough (spec.md section 9's open question).
func (rc *RecoderContext) scheduleGeneration(sched RecodeSchedule) (gid int, ok bool, err error) {
	switch sched {
	case TrivSched:
		gnum := rc.gnum
		if gnum <= 0 {
			gnum = len(rc.buffers)
			if gnum == 0 {
				return 0, false, nil
			}
		}
		gid = rc.rng.Intn(gnum)
		buf, exists := rc.buffers[gid]
		if !exists {
			buf = &genBuffer{pkts: make([]*Packet, rc.bufSize)}
			rc.buffers[gid] = buf
		}
		buf.nsched++
		return gid, buf.nc > 0, nil

	case RandSched:
		if rc.nemp == 0 {
			return 0, false, nil
		}
		index := rc.rng.Intn(rc.nemp)
		for candidate, buf := range rc.buffers {
			if buf.nc == 0 {
				continue
			}
			if index == 0 {
				buf.nsched++
				return candidate, true, nil
			}
			index--
		}
		return 0, false, nil

	case MLPISched:
		best := -1
		bestScore := -1 << 30
		for candidate, buf := range rc.buffers {
			score := buf.nc - buf.nsched
			if score > bestScore {
				bestScore = score
				best = candidate
			}
		}
		if best == -1 {
			return 0, false, nil
		}
		rc.buffers[best].nsched++
		return best, rc.buffers[best].nc > 0, nil

	default:
		return 0, false, fmt.Errorf("%w: unknown recode schedule %d", ErrInvalidParameter, sched)
	}
}
