package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"reviewagent"
)

// ErrNotFound is returned by ReviewStore.Get when no review is stored under the key.
var ErrNotFound = errors.New("review not found")

// InputState loads the raw review input document.
type InputState interface {
	Load(ctx context.Context) ([]byte, error)
}

// ReviewStore persists finished reviews. Keys are caller chosen, usually ReviewKey.
type ReviewStore interface {
	Save(ctx context.Context, key string, review reviewagent.Review) error
	Get(ctx context.Context, key string) (reviewagent.Review, error)
}

// LoadInput loads and decodes a ReviewInput from state.
func LoadInput(ctx context.Context, state InputState) (reviewagent.ReviewInput, error) {
	data, err := state.Load(ctx)
	if err != nil {
		return reviewagent.ReviewInput{}, fmt.Errorf("failed to load review input: %w", err)
	}

	var in reviewagent.ReviewInput
	if err := json.Unmarshal(data, &in); err != nil {
		return reviewagent.ReviewInput{}, fmt.Errorf("failed to decode review input: %w", err)
	}
	return in, nil
}

// ReviewKey builds the storage key for a user's review, e.g. "user-1/2025-03-10/<id>".
func ReviewKey(userKey string, review reviewagent.Review) string {
	if userKey == "" {
		userKey = "anonymous"
	}
	return fmt.Sprintf("%s/%s/%s", sanitize(userKey), review.CreatedAt.UTC().Format("2006-01-02"), review.ID)
}

func sanitize(s string) string {
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_", " ", "_").Replace(s)
}

// TestInputState is a simple in-memory implementation for testing
type TestInputState struct {
	data []byte
	err  error
}

func NewTestInputState(data []byte) *TestInputState {
	return &TestInputState{data: data}
}

func NewTestInputStateWithError() *TestInputState {
	return &TestInputState{err: errors.New("not found")}
}

func (t *TestInputState) Load(ctx context.Context) ([]byte, error) {
	if t.err != nil {
		return nil, t.err
	}
	return t.data, nil
}

// MemoryReviewStore keeps reviews in process memory.
type MemoryReviewStore struct {
	mu      sync.RWMutex
	reviews map[string][]byte
}

func NewMemoryReviewStore() *MemoryReviewStore {
	return &MemoryReviewStore{reviews: make(map[string][]byte)}
}

// Reviews are stored encoded so callers cannot mutate a saved review through shared slices.
func (m *MemoryReviewStore) Save(ctx context.Context, key string, review reviewagent.Review) error {
	b, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("failed to encode review: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews[key] = b
	return nil
}

func (m *MemoryReviewStore) Get(ctx context.Context, key string) (reviewagent.Review, error) {
	m.mu.RLock()
	b, ok := m.reviews[key]
	m.mu.RUnlock()
	if !ok {
		return reviewagent.Review{}, ErrNotFound
	}
	return decodeReview(b)
}

func decodeReview(b []byte) (reviewagent.Review, error) {
	var review reviewagent.Review
	if err := json.Unmarshal(b, &review); err != nil {
		return reviewagent.Review{}, fmt.Errorf("failed to decode review: %w", err)
	}
	return review, nil
}
