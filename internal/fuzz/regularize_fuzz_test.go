package fuzztests

import (
	"bytes"
	"context"
	"testing"
	"time"

	"spvregular/internal/irfile"
	"spvregular/internal/regularize"
	"spvregular/internal/verify"
)

const maxFuzzInput = 1 << 16 // 64 KiB

// passTimeout is the maximum time allowed for one input. Longer runs point at
// a rewrite that keeps feeding itself.
const passTimeout = 5 * time.Second

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		return append([]byte(nil), input[:maxFuzzInput]...)
	}
	return append([]byte(nil), input...)
}

func FuzzDecodeSnapshot(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		m, err := irfile.Unmarshal(clampInput(input))
		if err != nil {
			return
		}
		_ = verify.Structure(m)
		// a decoded module encodes back to a stable form
		once, err := irfile.Marshal(m)
		if err != nil {
			t.Fatalf("re-encode: %v", err)
		}
		again, err := irfile.Unmarshal(once)
		if err != nil {
			t.Fatalf("decode of own encoding: %v", err)
		}
		twice, err := irfile.Marshal(again)
		if err != nil {
			t.Fatalf("second re-encode: %v", err)
		}
		if !bytes.Equal(once, twice) {
			t.Fatal("encoding is not stable")
		}
	})
}

func FuzzRegularizeNoHang(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		m, err := irfile.Unmarshal(clampInput(input))
		if err != nil || verify.Structure(m).HasErrors() {
			return
		}

		done := make(chan error, 1)
		go func() {
			done <- regularize.Run(context.Background(), m, regularize.Options{})
		}()

		select {
		case err := <-done:
			if err != nil {
				return
			}
		case <-time.After(passTimeout):
			t.Fatalf("regularize timed out after %v on input of %d bytes", passTimeout, len(input))
		}

		once, err := irfile.Marshal(m)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if err := regularize.Run(context.Background(), m, regularize.Options{}); err != nil {
			t.Fatalf("second run failed: %v", err)
		}
		twice, err := irfile.Marshal(m)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if !bytes.Equal(once, twice) {
			t.Fatal("regularize is not idempotent")
		}
	})
}
