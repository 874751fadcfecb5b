package dataset

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
)

// Batch is a group of transformed samples.
type Batch struct {
	Inputs [][]float32
	Labels []int
	Paths  []string
}

// Len returns the number of samples in the batch.
func (b Batch) Len() int {
	return len(b.Labels)
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	BatchSize int
	Seed      int64
	// NumWorkers decodes up to this many images of a batch concurrently.
	NumWorkers int
	Transform  Transform
}

// Loader yields shuffled batches over a discovered image folder.
type Loader struct {
	items      []Item
	batchSize  int
	numWorkers int
	transform  Transform
	rng        *rand.Rand
}

// NewLoader wraps items in a shuffling batch iterator.
func NewLoader(items []Item, opts LoaderOptions) (*Loader, error) {
	if len(items) == 0 {
		return nil, ErrNoImages
	}
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("dataset: batch size must be > 0 (got %d)", opts.BatchSize)
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 1
	}
	return &Loader{
		items:      append([]Item(nil), items...),
		batchSize:  opts.BatchSize,
		numWorkers: opts.NumWorkers,
		transform:  opts.Transform,
		rng:        rand.New(rand.NewSource(opts.Seed)),
	}, nil
}

// Open discovers the <channel>_test split under root and returns a Loader.
func Open(root, channel string, opts LoaderOptions) (*Loader, error) {
	items, err := DiscoverImageFolder(TestDir(root, channel))
	if err != nil {
		return nil, err
	}
	return NewLoader(items, opts)
}

// Len returns the number of batches per pass, counting a partial last batch.
func (l *Loader) Len() int {
	return (len(l.items) + l.batchSize - 1) / l.batchSize
}

// NumSamples returns the dataset size.
func (l *Loader) NumSamples() int {
	return len(l.items)
}

// BatchSize returns the configured batch size.
func (l *Loader) BatchSize() int {
	return l.batchSize
}

// Iter shuffles the dataset and returns an iterator over one pass.
func (l *Loader) Iter() *Iterator {
	order := make([]int, len(l.items))
	for i := range order {
		order[i] = i
	}
	l.rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return &Iterator{loader: l, order: order}
}

// Iterator walks one shuffled pass of a Loader.
type Iterator struct {
	loader *Loader
	order  []int
	pos    int
}

// Next returns the next batch, or io.EOF after the last one. A sample that
// cannot be decoded ends the pass with an error.
func (it *Iterator) Next() (Batch, error) {
	if it.pos >= len(it.order) {
		return Batch{}, io.EOF
	}
	end := it.pos + it.loader.batchSize
	if end > len(it.order) {
		end = len(it.order)
	}
	idxs := it.order[it.pos:end]
	n := len(idxs)
	if n == 0 {
		return Batch{}, errors.New("dataset: empty batch")
	}
	batch := Batch{
		Inputs: make([][]float32, n),
		Labels: make([]int, n),
		Paths:  make([]string, n),
	}
	for i, idx := range idxs {
		item := it.loader.items[idx]
		batch.Labels[i] = item.Label
		batch.Paths[i] = item.Path
	}
	if err := it.decode(batch); err != nil {
		return Batch{}, err
	}
	it.pos = end
	return batch, nil
}

// decode fills batch.Inputs using a pool of workers. Slot i always holds
// the tensor for batch.Paths[i]; the first decode error wins.
func (it *Iterator) decode(batch Batch) error {
	workers := it.loader.numWorkers
	if workers > len(batch.Paths) {
		workers = len(batch.Paths)
	}
	jobs := make(chan int, len(batch.Paths))
	for i := range batch.Paths {
		jobs <- i
	}
	close(jobs)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				tensor, err := it.loader.transform.LoadTensor(batch.Paths[i])
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					continue
				}
				batch.Inputs[i] = tensor
			}
		}()
	}
	wg.Wait()
	return firstErr
}
