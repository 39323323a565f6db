// Package stamp solves the proof-of-work stamp a protocol in the Tezos
// family requires on every candidate block header: the first 8 bytes of the
// blake2b-256 digest of the header, interpreted as a big-endian unsigned
// integer, must be at or below a fixed threshold.
//
// The original description frames this as a cooperative, single-threaded
// lazy sequence that yields to the scheduler every 2000 attempts. Go
// affords real parallelism for exactly this kind of CPU-bound search, so
// Search runs a small pool of goroutines over disjoint shards of the
// counter space instead; the contract (a verifiable stamp at or below
// Threshold) is unchanged.
package stamp

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// Threshold is 2^46 - 1, the stamp threshold for every network in scope.
const Threshold uint64 = 70368744177663

// PowHeader is the fixed proof-of-work header segment shared by every
// network in scope.
const PowHeader = "00000003"

// BatchSize is the number of counter increments a worker advances through
// before checking for cancellation, the same 2000-attempt pacing as the
// cooperative description above.
const BatchSize = 2000

// sigPlaceholderLen is the length, in bytes, of the trailing zero padding
// that stands in for the block signature while hashing for the stamp.
const sigPlaceholderLen = 64

// ProtocolData hex-encodes the protocol_data tail of a block header per
// the node's own encoding: priority as big-endian uint16 (4 hex chars), powHeader
// right-padded to 8 hex chars with '0', pow right-padded to 8 hex chars
// with '0', then either "ff"+seed (seed right-padded to 64 hex chars) or
// "00" when there is no commitment seed.
func ProtocolData(priority uint16, powHeader, pow, seedHex string) string {
	out := make([]byte, 0, 4+8+8+66)
	out = append(out, []byte(fmt.Sprintf("%04x", priority))...)
	out = append(out, padRight(powHeader, 8)...)
	out = append(out, padRight(pow, 8)...)

	if seedHex != "" {
		out = append(out, "ff"...)
		out = append(out, padRight(seedHex, 64)...)
	} else {
		out = append(out, "00"...)
	}

	return string(out)
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}

	b := make([]byte, n)
	copy(b, s)

	for i := len(s); i < n; i++ {
		b[i] = '0'
	}

	return string(b)
}

// Header is the input to Search: the shell header bytes the node forged
// (with its own placeholder protocol_data already stripped by the caller),
// the block's priority, and the hex-encoded commitment seed, if any.
type Header struct {
	ForgedPrefix []byte
	Priority     uint16
	SeedHex      string
}

// Result is a stamped candidate: the header bytes (shell + protocol_data)
// with the winning pow counter baked in, signature placeholder dropped.
type Result struct {
	Bytes      []byte
	PowCounter uint32
}

// build returns the full hashing buffer (forgedPrefix || protocolData with
// pow=0 || 64 zero bytes) and the byte offset of the 4-byte pow_counter
// region within it.
func (h Header) build() (buf []byte, counterOffset int) {
	pd := ProtocolData(h.Priority, PowHeader, "00000000", h.SeedHex)

	pdBytes, err := hex.DecodeString(pd)
	if err != nil {
		panic("stamp: protocol data is not valid hex: " + err.Error())
	}

	buf = make([]byte, 0, len(h.ForgedPrefix)+len(pdBytes)+sigPlaceholderLen)
	buf = append(buf, h.ForgedPrefix...)
	counterOffset = len(buf) + 2 + 4 // priority (2 bytes) + powHeader (4 bytes)
	buf = append(buf, pdBytes...)
	buf = append(buf, make([]byte, sigPlaceholderLen)...)

	return buf, counterOffset
}

// Passes reports whether buf's blake2b-256 digest, read as a big-endian
// uint64 over its first 8 bytes, is at or below threshold.
func Passes(buf []byte, threshold uint64) bool {
	sum := blake2b.Sum256(buf)
	return binary.BigEndian.Uint64(sum[:8]) <= threshold
}

// Search looks for a pow_counter value that makes Header's buffer pass the
// stamp test, sharding the 32-bit counter space across workers goroutines.
// It returns as soon as any worker finds a winner, or ctx's error if ctx is
// done first. workers <= 0 defaults to GOMAXPROCS.
func Search(ctx context.Context, h Header, workers int) (Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	buf, counterOffset := h.build()

	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type found struct {
		buf     []byte
		counter uint32
	}

	resultCh := make(chan found, 1)

	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func(start uint32) {
			defer wg.Done()

			local := make([]byte, len(buf))
			copy(local, buf)

			counter := start

			for {
				for i := 0; i < BatchSize; i++ {
					binary.BigEndian.PutUint32(local[counterOffset:counterOffset+4], counter)

					if Passes(local, Threshold) {
						winner := make([]byte, len(local))
						copy(winner, local)

						select {
						case resultCh <- found{buf: winner, counter: counter}:
						default:
						}

						cancel()

						return
					}

					counter += uint32(workers)
				}

				select {
				case <-searchCtx.Done():
					return
				default:
				}
			}
		}(uint32(w))
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case r := <-resultCh:
		return Result{
			Bytes:      r.buf[:len(r.buf)-sigPlaceholderLen],
			PowCounter: r.counter,
		}, nil
	case <-done:
		// All workers returned without a result: only happens if ctx was
		// cancelled before anyone found a winner.
		select {
		case r := <-resultCh:
			return Result{
				Bytes:      r.buf[:len(r.buf)-sigPlaceholderLen],
				PowCounter: r.counter,
			}, nil
		default:
		}

		return Result{}, ctx.Err()
	}
}
