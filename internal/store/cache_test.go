package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlotEmpty(t *testing.T) {
	s := NewSlot[string]()
	v, ok := s.Get()
	assert.False(t, ok)
	assert.Equal(t, "", v)
}

func TestSlotOverwrite(t *testing.T) {
	s := NewSlot[int]()
	s.Set(1)
	s.Set(2)
	v, ok := s.Get()
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestSlotClear(t *testing.T) {
	s := NewSlot[int]()
	s.Set(7)
	s.Clear()
	_, ok := s.Get()
	assert.False(t, ok)
}

func TestSlotConcurrentAccess(t *testing.T) {
	s := NewSlot[int]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			s.Set(n)
		}(i)
		go func() {
			defer wg.Done()
			s.Get()
		}()
	}
	wg.Wait()
	_, ok := s.Get()
	assert.True(t, ok)
}
