// Command sncpeer demonstrates carrying real serialized sparsenc packets
// between two processes (here, a sender and receiver goroutine pair) over
// a websocket connection, rather than in-process channels.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/derekoutis/sparsenc"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func main() {
	dataSize := flag.Int("datasize", 32*1024, "total bytes to encode")
	sizeP := flag.Int("sizep", 512, "payload bytes per packet")
	sizeB := flag.Int("sizeb", 3, "generation stride")
	sizeG := flag.Int("sizeg", 10, "generation size")
	lossProb := flag.Float64("loss", 0.1, "simulated send-side packet loss")
	seed := flag.Int64("seed", 7, "session seed")
	flag.Parse()

	p := sparsenc.Parameters{
		DataSize: *dataSize,
		SizeP:    *sizeP,
		SizeB:    *sizeB,
		SizeG:    *sizeG,
		Type:     sparsenc.BAND,
		GFPower:  8,
		Seed:     *seed,
	}

	data := make([]byte, *dataSize)
	rand.New(rand.NewSource(*seed)).Read(data)

	enc, err := sparsenc.NewEncoderContext(data, p)
	if err != nil {
		fmt.Println("encoder setup failed:", err)
		return
	}
	params := enc.Parameters()

	done := make(chan result, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", receiverHandler(params, done))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		fmt.Println("listen failed:", err)
		return
	}
	srv := &http.Server{Handler: mux}
	go srv.Serve(ln)
	defer srv.Shutdown(context.Background())

	url := fmt.Sprintf("ws://%s/ws", ln.Addr().String())
	fmt.Printf("sncpeer: sending %d bytes over %s (loss=%.2f)\n", *dataSize, url, *lossProb)

	if err := sendPackets(url, enc, params, *lossProb); err != nil {
		fmt.Println("sender failed:", err)
		return
	}

	select {
	case r := <-done:
		if r.err != nil {
			fmt.Println("receiver failed:", r.err)
			return
		}
		fmt.Printf("sncpeer: recovered %d bytes, overhead=%d, match=%v\n", len(r.data), r.overhead, r.ok)
	case <-time.After(10 * time.Second):
		fmt.Println("sncpeer: receiver never finished (packet loss too high)")
	}
}

type result struct {
	data     []byte
	overhead int
	ok       bool
	err      error
}

// receiverHandler upgrades the connection and feeds every incoming binary
// frame, deserialized back into a Packet, to a CBD decoder until it
// finishes or the connection closes.
func receiverHandler(params sparsenc.Parameters, done chan<- result) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			done <- result{err: err}
			return
		}
		defer conn.Close()

		dec, err := sparsenc.NewCBDDecoder(params)
		if err != nil {
			done <- result{err: err}
			return
		}
		for !dec.Finished() {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				done <- result{err: fmt.Errorf("connection closed before decoding finished: %w", err)}
				return
			}
			pkt, err := sparsenc.DeserializePacket(msg, params)
			if err != nil {
				done <- result{err: err}
				return
			}
			if err := dec.ProcessPacket(pkt); err != nil {
				done <- result{err: err}
				return
			}
		}
		data, err := dec.Recover()
		done <- result{data: data, overhead: dec.Overhead(), ok: err == nil, err: err}
	}
}

// sendPackets dials url and streams Emit()ted, serialized packets as binary
// websocket frames, dropping a fraction of them to simulate a lossy link.
func sendPackets(url string, enc *sparsenc.EncoderContext, params sparsenc.Parameters, lossProb float64) error {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	rng := rand.New(rand.NewSource(params.Seed ^ 0x50c1a1))
	sent := 0
	for attempts := 0; attempts < enc.SourceCount()*50 && sent < enc.SourceCount()*6; attempts++ {
		pkt, err := enc.Emit()
		if err != nil {
			return err
		}
		if rng.Float64() < lossProb {
			continue
		}
		buf, err := pkt.Serialize(params)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, buf); err != nil {
			return err
		}
		sent++
	}
	return nil
}
