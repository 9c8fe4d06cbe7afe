package spill

import (
	"fmt"

	"github.com/lKGreat/cyscaledb/internal/engine"
)

// Partitioned hosts n parallel spill files; Write directs each row to
// partition abs(hash) mod n, letting a hash-join or hash-aggregate
// operator spill build-side rows by bucket (spec.md §4.8
// "PartitionedSpillFiles{n}").
type Partitioned struct {
	files []*File
}

// NewPartitioned creates n spill files under dir, all sharing schema.
func NewPartitioned(dir string, schema engine.Schema, n int) (*Partitioned, error) {
	if n <= 0 {
		return nil, fmt.Errorf("spill: partition count must be positive, got %d", n)
	}
	files := make([]*File, n)
	for i := 0; i < n; i++ {
		f, err := New(dir, schema)
		if err != nil {
			for _, created := range files[:i] {
				created.Delete()
			}
			return nil, err
		}
		files[i] = f
	}
	return &Partitioned{files: files}, nil
}

// Write appends row to the partition hash selects.
func (p *Partitioned) Write(hash int64, row []engine.DataValue) error {
	idx := partitionIndex(hash, len(p.files))
	return p.files[idx].Write(row)
}

// File returns the backing File for partition i, for FinishWriting/
// OpenForRead once all writers are done.
func (p *Partitioned) File(i int) *File { return p.files[i] }

// Len reports the partition count.
func (p *Partitioned) Len() int { return len(p.files) }

// FinishWriting flushes and closes every partition's write handle.
func (p *Partitioned) FinishWriting() error {
	for i, f := range p.files {
		if err := f.FinishWriting(); err != nil {
			return fmt.Errorf("spill: finishing partition %d: %w", i, err)
		}
	}
	return nil
}

// Delete best-effort removes every partition's backing file.
func (p *Partitioned) Delete() {
	for _, f := range p.files {
		f.Delete()
	}
}

func partitionIndex(hash int64, n int) int {
	if hash < 0 {
		hash = -hash
	}
	return int(hash % int64(n))
}
