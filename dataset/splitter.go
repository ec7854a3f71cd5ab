package dataset

import (
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/YuminosukeSato/modelselect/pkg/errors"
	"github.com/YuminosukeSato/modelselect/pkg/log"
)

// DefaultSeed is the splitter seed used when none is configured.
const DefaultSeed int64 = 42

// Split is an immutable train/test partition of a dataset.
type Split struct {
	Train *Dataset
	Test  *Dataset
}

// Splitter partitions datasets reproducibly. A Splitter is safe for
// concurrent use; successive calls consume the same seeded stream.
type Splitter struct {
	mu              sync.Mutex
	seed            int64
	rng             *rand.Rand
	withReplacement bool
	logger          log.Logger
}

// SplitterOption configures a Splitter.
type SplitterOption func(*Splitter)

// WithSeed sets the random seed.
func WithSeed(seed int64) SplitterOption {
	return func(s *Splitter) {
		s.seed = seed
	}
}

// WithReplacement makes Sample draw with replacement.
func WithReplacement(replace bool) SplitterOption {
	return func(s *Splitter) {
		s.withReplacement = replace
	}
}

// WithLogger sets the logger used for split diagnostics.
func WithLogger(logger log.Logger) SplitterOption {
	return func(s *Splitter) {
		s.logger = logger
	}
}

// NewSplitter creates a splitter. Sampling is without replacement unless
// WithReplacement(true) is given.
func NewSplitter(opts ...SplitterOption) *Splitter {
	s := &Splitter{seed: DefaultSeed}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.GetLoggerWithName("dataset")
	}
	s.rng = rand.New(rand.NewPCG(uint64(s.seed), uint64(s.seed)))
	return s
}

// Seed returns the configured seed.
func (s *Splitter) Seed() int64 {
	return s.seed
}

// Split partitions ds into a training part holding round(trainFraction·n)
// records and a test part holding the rest. With at least two records both
// parts are non-empty; a single record cannot be split and yields an
// InsufficientDataError. Records keep their original relative order.
func (s *Splitter) Split(ds *Dataset, trainFraction float64) (*Split, error) {
	if err := validateFraction("Split", trainFraction); err != nil {
		return nil, err
	}
	n := ds.Len()
	if n == 0 {
		return nil, errors.NewEmptyDatasetError("Split")
	}
	if n < 2 {
		return nil, errors.NewInsufficientDataError("Split", 2, n)
	}

	nTrain := min(max(int(math.Round(trainFraction*float64(n))), 1), n-1)

	perm := s.perm(n)
	trainIdx := append([]int(nil), perm[:nTrain]...)
	testIdx := append([]int(nil), perm[nTrain:]...)
	sort.Ints(trainIdx)
	sort.Ints(testIdx)

	s.logger.Debug("Dataset split",
		log.OperationKey, log.OperationSplit,
		log.SamplesKey, n,
		log.FractionKey, trainFraction,
		log.TrainSamplesKey, len(trainIdx),
		log.TestSamplesKey, len(testIdx),
	)

	return &Split{
		Train: ds.Subset(trainIdx),
		Test:  ds.Subset(testIdx),
	}, nil
}

// Sample draws max(1, round(fraction·n)) records. Without replacement the
// drawn records are distinct and keep their original order; with
// replacement they appear in draw order and may repeat.
func (s *Splitter) Sample(ds *Dataset, fraction float64) (*Dataset, error) {
	if err := validateFraction("Sample", fraction); err != nil {
		return nil, err
	}
	n := ds.Len()
	if n == 0 {
		return nil, errors.NewEmptyDatasetError("Sample")
	}

	size := max(int(math.Round(fraction*float64(n))), 1)

	var idx []int
	if s.withReplacement {
		idx = s.draw(n, size)
	} else {
		idx = append([]int(nil), s.perm(n)[:size]...)
		sort.Ints(idx)
	}

	s.logger.Debug("Dataset sampled",
		log.OperationKey, log.OperationSample,
		log.SamplesKey, n,
		log.FractionKey, fraction,
		"sample.size", size,
		"sample.with_replacement", s.withReplacement,
	)

	return ds.Subset(idx), nil
}

func (s *Splitter) perm(n int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Perm(n)
}

func (s *Splitter) draw(n, size int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := make([]int, size)
	for i := range idx {
		idx[i] = s.rng.IntN(n)
	}
	return idx
}

func validateFraction(op string, f float64) error {
	if math.IsNaN(f) || f <= 0 || f >= 1 {
		return errors.NewInvalidFractionError(op, f)
	}
	return nil
}
