package cache

import (
	"errors"
	"sync/atomic"

	"github.com/outofoffice3/aws-samples/go-keyid-toolbox/internal/keyvaluestore"
	"github.com/outofoffice3/aws-samples/go-keyid-toolbox/internal/shared"
)

type DecodeResultsCache interface {
	Get(key DecodeCacheKey) (interface{}, bool)
	Set(key DecodeCacheKey, value interface{}) error
	Delete(key DecodeCacheKey) error
	GetCacheHits() int32
	GetCacheMisses() int32
	Len() int
}

type _DecodeResultsCache struct {
	cache       keyvaluestore.KeyValueStore // key value store interface for storing results
	cacheHits   atomic.Int32
	cacheMisses atomic.Int32
}

type DecodeCacheKey struct {
	Match string // matched text (access key id or arn)
	Kind  string // candidate kind from shared
}

type DecodeCacheResult struct {
	AccountId    string
	ResourceType string
	ErrMessage   string // non-empty when the match could not be decoded
}

func NewDecodeResultsCache() DecodeResultsCache {
	return &_DecodeResultsCache{cache: keyvaluestore.NewKeyValueStore(),
		cacheHits:   atomic.Int32{},
		cacheMisses: atomic.Int32{}}
}

func (c *_DecodeResultsCache) Get(key DecodeCacheKey) (interface{}, bool) {
	result, ok := c.cache.Get(shared.Key{
		PrimaryKey: key.Match,
		SortKey:    key.Kind,
	})
	if ok {
		c.cacheHits.Add(1)
		return result, true
	}
	c.cacheMisses.Add(1)
	return nil, false
}

func (c *_DecodeResultsCache) Set(key DecodeCacheKey, value interface{}) error {
	valueAssert, ok := value.(DecodeCacheResult)
	if !ok {
		return errors.New("type assertion failed. value is incorrect type")
	}
	c.cache.Set(shared.Key{
		PrimaryKey: key.Match,
		SortKey:    key.Kind,
	}, valueAssert)
	return nil
}

func (c *_DecodeResultsCache) Delete(key DecodeCacheKey) error {
	c.cache.Delete(shared.Key{
		PrimaryKey: key.Match,
		SortKey:    key.Kind,
	})
	return nil
}

func (c *_DecodeResultsCache) GetCacheHits() int32 {
	return c.cacheHits.Load()
}

func (c *_DecodeResultsCache) GetCacheMisses() int32 {
	return c.cacheMisses.Load()
}

// number of distinct matches cached so far
func (c *_DecodeResultsCache) Len() int {
	return c.cache.Len()
}
