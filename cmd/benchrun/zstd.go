package main

import (
	"fmt"
	"math/rand" //nolint:gosec // intentional use for reproducible benchmarks
	"sync/atomic"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meigma/bench"
)

// Zstd suite operation types.
const (
	opCompress bench.OpType = iota
	opDecompress
)

// zstdTarget compresses and decompresses pre-generated blocks. EncodeAll
// and DecodeAll are safe for concurrent use, so every worker shares one
// encoder and one decoder.
type zstdTarget struct {
	enc        *zstd.Encoder
	dec        *zstd.Decoder
	raw        [][]byte
	compressed [][]byte
	bytesOut   atomic.Uint64
}

var _ bench.Target[uint64] = (*zstdTarget)(nil)

func newZstdTarget(level zstd.EncoderLevel, blocks, blockSize int) (*zstdTarget, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, fmt.Errorf("new encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}

	t := &zstdTarget{enc: enc, dec: dec}
	rng := rand.New(rand.NewSource(1))
	for i := range blocks {
		t.raw = append(t.raw, makeBlock(rng, i, blockSize))
	}
	for _, raw := range t.raw {
		t.compressed = append(t.compressed, enc.EncodeAll(raw, nil))
	}
	return t, nil
}

// makeBlock builds one input block. Even blocks are compressible fill
// text, odd blocks are random bytes.
func makeBlock(rng *rand.Rand, i, size int) []byte {
	block := make([]byte, size)
	if i%2 == 1 {
		_, _ = rng.Read(block)
		return block
	}
	fillByte := byte('a' + i%26)
	for j := range block {
		block[j] = fillByte
	}
	if size > 0 {
		block[0] = byte(i)
	}
	return block
}

func (t *zstdTarget) SetUpForWorker() error {
	return nil
}

func (t *zstdTarget) Execute(op bench.Operation[uint64]) (uint64, error) {
	i := op.Payload % uint64(len(t.raw))
	if op.Type == opCompress {
		out := t.enc.EncodeAll(t.raw[i], nil)
		t.bytesOut.Add(uint64(len(out)))
		return 1, nil
	}

	out, err := t.dec.DecodeAll(t.compressed[i], nil)
	if err != nil {
		return 0, fmt.Errorf("decompress block %d: %w", i, err)
	}
	t.bytesOut.Add(uint64(len(out)))
	return 1, nil
}

func (t *zstdTarget) TearDownForWorker() error {
	return nil
}

func newZstdCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zstd",
		Short: "Benchmark zstd compression and decompression",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requirePositiveInt("blocks", int64(v.GetInt("blocks"))); err != nil {
				return err
			}
			if err := requirePositiveInt("block-size", int64(v.GetInt("block-size"))); err != nil {
				return err
			}
			if err := requireProbability("compress-ratio", v.GetFloat64("compress-ratio")); err != nil {
				return err
			}
			ok, level := zstd.EncoderLevelFromString(v.GetString("level"))
			if !ok {
				return fmt.Errorf("unknown zstd level %q (want fastest, default, better, or best)", v.GetString("level"))
			}

			target, err := newZstdTarget(level, v.GetInt("blocks"), v.GetInt("block-size"))
			if err != nil {
				return err
			}
			engine := &mixEngine{
				ops:   v.GetUint64("ops"),
				keys:  uint64(v.GetInt("blocks")),
				ratio: v.GetFloat64("compress-ratio"),
				typeA: opCompress,
				typeB: opDecompress,
				types: 2,
			}
			return runBenchmark(cmd, v, target, engine)
		},
	}

	f := cmd.Flags()
	f.String("level", "default", "zstd encoder level: fastest, default, better, or best")
	f.Int("blocks", 64, "number of distinct input blocks")
	f.Int("block-size", 64*1024, "input block size in bytes")
	f.Float64("compress-ratio", 0.5, "fraction of operations that compress rather than decompress")
	return cmd
}
