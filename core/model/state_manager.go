// Package model holds the estimator interfaces, fitted-state tracking and gob
// persistence shared by the vectorizer, the oversamplers and the booster.
package model

import (
	"sync"

	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
)

// StateManager tracks whether an estimator has been fitted.
// Exported fields are persisted with gob.
type StateManager struct {
	Name      string
	Fitted    bool
	NFeatures int
	NSamples  int

	mu sync.RWMutex
}

// NewStateManager creates an unfitted StateManager for the named estimator.
func NewStateManager(name string) *StateManager {
	return &StateManager{Name: name}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// SetFitted marks the model as fitted.
func (s *StateManager) SetFitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = true
}

// Reset clears the fitted state and dimensions.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = false
	s.NFeatures = 0
	s.NSamples = 0
}

// SetDimensions records the shape seen during fitting.
func (s *StateManager) SetDimensions(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NFeatures = nFeatures
	s.NSamples = nSamples
}

// GetDimensions returns the shape seen during fitting.
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NFeatures, s.NSamples
}

// RequireFitted returns a NotFittedError naming method when the model is
// not fitted. A nil receiver counts as unfitted.
func (s *StateManager) RequireFitted(method string) error {
	if s == nil {
		return errors.NewNotFittedError("estimator", method)
	}
	if !s.IsFitted() {
		return errors.NewNotFittedError(s.Name, method)
	}
	return nil
}
