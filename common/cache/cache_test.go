package cache

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheHit(t *testing.T) {
	var backend = &MockBackend[string, string]{}
	cche := New[string, string](backend)

	isCachableFnCalled := false
	key := "key"
	val := "value"
	backend.On("Get", key).Return(val, true)

	cacheableFn := func() (string, error) {
		isCachableFnCalled = true
		return "h", nil
	}

	v, err := Cacheable[string, string](key, cacheableFn, cche)

	backend.AssertExpectations(t)
	assert.NoError(t, err)
	assert.Equal(t, val, v)
	assert.Equal(t, false, isCachableFnCalled, "cacheable fn should not have been called")
}

func TestCacheHitIntKey(t *testing.T) {
	var backend = &MockBackend[int64, string]{}
	cche := New[int64, string](backend)

	isCachableFnCalled := false
	key := int64(3)
	val := "value"
	backend.On("Get", key).Return(val, true)

	cacheableFn := func() (string, error) {
		isCachableFnCalled = true
		return "3", nil
	}

	v, err := Cacheable[int64, string](key, cacheableFn, cche)

	backend.AssertExpectations(t)
	assert.NoError(t, err)
	assert.Equal(t, val, v)
	assert.Equal(t, false, isCachableFnCalled, "cacheable fn should not have been called")
}

func TestCacheMiss(t *testing.T) {
	var backend = &MockBackend[string, string]{}
	cache := New[string, string](backend)

	isCachableFnCalled := false
	key := "key"
	val := "value"
	backend.On("Get", key).Return("", false)
	backend.On("Set", key, val).Return(true)

	cacheableFn := func() (string, error) {
		isCachableFnCalled = true
		return val, nil
	}

	v, err := Cacheable(key, cacheableFn, cache)

	backend.AssertExpectations(t)
	assert.NoError(t, err)
	assert.Equal(t, val, v)
	assert.Equal(t, true, isCachableFnCalled, "cacheable fn should have been called")
}

func TestCacheMissError(t *testing.T) {
	var backend = &MockBackend[string, string]{}
	cache := New[string, string](backend)

	isCachableFnCalled := false
	key := "key"
	backend.On("Get", key).Return("", false)

	cacheableFn := func() (string, error) {
		isCachableFnCalled = true
		return "", fmt.Errorf("test chache missL %w", errors.New("cacheableFn err"))
	}

	v, err := Cacheable[string, string](key, cacheableFn, cache)

	backend.AssertExpectations(t)
	backend.AssertNotCalled(t, "Set")
	assert.Equal(t, "", v)
	assert.Error(t, err)
	assert.Equal(t, true, isCachableFnCalled, "cacheable fn should have been called")
}

func TestRistrettoBackend(t *testing.T) {
	backend, err := NewRistrettoCacheBackend[int64, string](16)
	require.NoError(t, err)
	c := New[int64, string](backend)

	assert.True(t, c.Set(1, "one"))
	v, ok := c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "one", v)

	c.Del(1)
	_, ok = c.Get(1)
	assert.False(t, ok)
}
