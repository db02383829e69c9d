// Package embeddings generates vectors over insight text for similarity
// search. Generation is deterministic and local: a hashed bag-of-words over
// the content, so equal insights always map to equal vectors.
package embeddings

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"
)

// Dimensions is the width of every generated vector.
const Dimensions = 64

// Result represents the result of embedding generation
type Result struct {
	Content   string
	Embedding []float32
	Error     error
}

// Work represents a unit of embedding work
type Work struct {
	Content string
	Result  chan<- Result
}

// Service manages embedding generation and caching
type Service struct {
	numWorkers int
	workQueue  chan Work
	cache      sync.Map // Thread-safe map for caching embeddings
	wg         sync.WaitGroup
}

// NewService creates a new embedding service with the specified number of workers
func NewService(numWorkers int) *Service {
	if numWorkers <= 0 {
		numWorkers = 4 // Default to 4 workers if not specified
	}

	workQueue := make(chan Work, 100) // Buffer size for embedding requests

	service := &Service{
		numWorkers: numWorkers,
		workQueue:  workQueue,
	}

	// Start embedding workers
	service.startWorkers()

	return service
}

// startWorkers starts a pool of goroutines for generating embeddings
func (s *Service) startWorkers() {
	for i := 0; i < s.numWorkers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for work := range s.workQueue {
				// Check cache first
				if cachedEmb, ok := s.cache.Load(work.Content); ok {
					if embedding, validCache := cachedEmb.([]float32); validCache {
						work.Result <- Result{
							Content:   work.Content,
							Embedding: embedding,
						}
						continue
					}
				}

				embedding := generateEmbedding(work.Content)
				s.cache.Store(work.Content, embedding)

				work.Result <- Result{
					Content:   work.Content,
					Embedding: embedding,
				}
			}
		}()
	}
}

// GetEmbedding requests an embedding generation asynchronously
func (s *Service) GetEmbedding(content string) <-chan Result {
	resultChan := make(chan Result, 1)

	select {
	case s.workQueue <- Work{
		Content: content,
		Result:  resultChan,
	}:
		// Work queued successfully
	default:
		// Queue is full, return an error immediately
		resultChan <- Result{
			Content: content,
			Error:   fmt.Errorf("embedding queue is full, try again later"),
		}
		close(resultChan)
	}

	return resultChan
}

// generateEmbedding hashes each token into a bucket of a fixed-width vector
// and L2-normalizes the result. Deterministic: no model call involved.
func generateEmbedding(content string) []float32 {
	vector := make([]float32, Dimensions)

	for _, token := range strings.Fields(strings.ToLower(content)) {
		token = strings.Trim(token, ".,;:!?\"'()[]")
		if token == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(token))
		sum := h.Sum32()
		bucket := sum % Dimensions
		// Alternate sign off a hash bit so common tokens don't all pile up
		// positive.
		if sum&(1<<16) != 0 {
			vector[bucket]++
		} else {
			vector[bucket]--
		}
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= scale
		}
	}
	return vector
}

// Close shuts down the embedding service and waits for all workers to finish
func (s *Service) Close() {
	if s.workQueue != nil {
		close(s.workQueue)
	}
	s.wg.Wait() // Wait for all workers to finish
}
