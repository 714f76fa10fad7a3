package sparsenc

import (
	"bytes"
	"testing"
)

// These mirror spec.md section 8's literal end-to-end scenarios S1-S6.

func TestScenarioS1BandCBD(t *testing.T) {
	data := randomData(1001, 10240)
	p := Parameters{DataSize: 10240, SizeP: 128, SizeB: 16, SizeG: 32, SizeC: 0, GFPower: 8, Type: BAND, Seed: 1}
	enc, err := NewEncoderContext(data, p)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := NewCBDDecoder(enc.Parameters())
	if err != nil {
		t.Fatal(err)
	}
	snum := enc.SourceCount()
	runToCompletion(t, enc, dec, snum*20)
	if !dec.Finished() {
		t.Fatal("S1: CBD decoder did not finish")
	}
	if dec.Overhead() > snum+snum/10 {
		t.Fatalf("S1: overhead %d exceeds 1.10*snum=%d", dec.Overhead(), snum+snum/10)
	}
	got, err := dec.Recover()
	if err != nil || !bytes.Equal(got, data) {
		t.Fatalf("S1: recovered data mismatch, err=%v", err)
	}
}

func TestScenarioS2RandOAWithPrecode(t *testing.T) {
	data := randomData(1002, 65536)
	p := Parameters{
		DataSize: 65536, SizeP: 256, SizeB: 32, SizeG: 64, SizeC: 16,
		BPC: true, GFPower: 8, Type: RAND, Seed: 42,
	}
	enc, err := NewEncoderContext(data, p)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := NewOADecoder(enc.Parameters())
	if err != nil {
		t.Fatal(err)
	}
	snum := enc.SourceCount()
	runToCompletion(t, enc, dec, snum*30)
	if !dec.Finished() {
		t.Fatal("S2: OA decoder did not finish")
	}
	got, err := dec.Recover()
	if err != nil || !bytes.Equal(got, data) {
		t.Fatalf("S2: recovered data mismatch, err=%v", err)
	}
}

func TestScenarioS3RandGG(t *testing.T) {
	data := randomData(1003, 65536)
	p := Parameters{
		DataSize: 65536, SizeP: 256, SizeB: 32, SizeG: 64, SizeC: 16,
		BPC: true, GFPower: 8, Type: RAND, Seed: 42,
	}
	enc, err := NewEncoderContext(data, p)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := NewGGDecoder(enc.Parameters())
	if err != nil {
		t.Fatal(err)
	}
	snum := enc.SourceCount()
	runToCompletion(t, enc, dec, snum*60)
	if !dec.Finished() {
		t.Fatal("S3: GG decoder did not finish")
	}
	got, err := dec.Recover()
	if err != nil || !bytes.Equal(got, data) {
		t.Fatalf("S3: recovered data mismatch, err=%v", err)
	}
}

func TestScenarioS4WindwrapCBDBinaryField(t *testing.T) {
	data := randomData(1004, 4096)
	p := Parameters{DataSize: 4096, SizeP: 64, SizeB: 8, SizeG: 16, SizeC: 0, GFPower: 1, Type: WINDWRAP, Seed: 7}
	enc, err := NewEncoderContext(data, p)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := NewCBDDecoder(enc.Parameters())
	if err != nil {
		t.Fatal(err)
	}
	snum := enc.SourceCount()
	runToCompletion(t, enc, dec, snum*40)
	if !dec.Finished() {
		t.Fatal("S4: CBD decoder did not finish")
	}
	got, err := dec.Recover()
	if err != nil || !bytes.Equal(got, data) {
		t.Fatalf("S4: recovered data mismatch, err=%v", err)
	}
}

func TestScenarioS5RecoderPassThrough(t *testing.T) {
	data := randomData(1005, 10240)
	p := Parameters{DataSize: 10240, SizeP: 128, SizeB: 16, SizeG: 32, SizeC: 0, GFPower: 8, Type: BAND, Seed: 1}

	// Baseline: no recoder.
	encBase, err := NewEncoderContext(data, p)
	if err != nil {
		t.Fatal(err)
	}
	decBase, err := NewCBDDecoder(encBase.Parameters())
	if err != nil {
		t.Fatal(err)
	}
	snum := encBase.SourceCount()
	runToCompletion(t, encBase, decBase, snum*20)
	if !decBase.Finished() {
		t.Fatal("S5 baseline: CBD decoder did not finish")
	}

	// Through a recoder.
	enc, err := NewEncoderContext(data, p)
	if err != nil {
		t.Fatal(err)
	}
	rc, err := NewRecoderContext(enc.Parameters(), 8)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := NewCBDDecoder(enc.Parameters())
	if err != nil {
		t.Fatal(err)
	}
	for attempts := 0; !dec.Finished() && attempts < snum*40; attempts++ {
		pkt, err := enc.Emit()
		if err != nil {
			t.Fatal(err)
		}
		if pkt.IsSystematic() {
			if err := dec.ProcessPacket(pkt); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := rc.BufferPacket(pkt); err != nil {
			t.Fatal(err)
		}
		recoded, err := rc.GenerateRecodedPacket(MLPISched)
		if err != nil {
			t.Fatal(err)
		}
		if recoded == nil {
			continue
		}
		if err := dec.ProcessPacket(recoded); err != nil {
			t.Fatal(err)
		}
	}
	if !dec.Finished() {
		t.Fatal("S5: recoded decoder did not finish")
	}
	if dec.Overhead() > decBase.Overhead()*12/10+1 {
		t.Fatalf("S5: recoded overhead %d exceeds 1.2x baseline %d", dec.Overhead(), decBase.Overhead())
	}
	got, err := dec.Recover()
	if err != nil || !bytes.Equal(got, data) {
		t.Fatalf("S5: recovered data mismatch, err=%v", err)
	}
}

func TestScenarioS6SystematicShortcutZeroOverhead(t *testing.T) {
	data := randomData(1006, 10240)
	p := Parameters{DataSize: 10240, SizeP: 128, SizeB: 16, SizeG: 32, SizeC: 0, GFPower: 8, Type: BAND, Seed: 1, Sys: true}
	enc, err := NewEncoderContext(data, p)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := NewCBDDecoder(enc.Parameters())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < enc.SourceCount(); i++ {
		pkt, err := enc.Emit()
		if err != nil {
			t.Fatal(err)
		}
		if !pkt.IsSystematic() {
			t.Fatalf("S6: packet %d expected systematic", i)
		}
		if err := dec.ProcessPacket(pkt); err != nil {
			t.Fatal(err)
		}
	}
	if !dec.Finished() {
		t.Fatal("S6: decoder did not finish from exactly snum systematic packets")
	}
	if dec.Overhead() != 0 {
		t.Fatalf("S6: expected zero overhead, got %d", dec.Overhead())
	}
	got, err := dec.Recover()
	if err != nil || !bytes.Equal(got, data) {
		t.Fatalf("S6: recovered data mismatch, err=%v", err)
	}
}
