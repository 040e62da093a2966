package server

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tartampluch/go-bridgedays/internal/config"
)

// cacheItem stores a rendered feed and its metadata for HTTP caching.
type cacheItem struct {
	data         []byte
	etag         string
	lastModified string // RFC1123 format required by HTTP headers
}

// feedCache keeps one item per feed key. Reads are lock-free; writers copy
// the map and swap it in.
type feedCache struct {
	mu       sync.Mutex
	items    atomic.Pointer[map[string]*cacheItem]
	maxItems int
	now      func() time.Time
	log      *zap.Logger
}

func (c *feedCache) load(key string) *cacheItem {
	m := c.items.Load()
	if m == nil {
		return nil
	}
	return (*m)[key]
}

// update stores data under key and returns the item to serve. Last-Modified
// only moves when the content changes.
func (c *feedCache) update(key string, data []byte) *cacheItem {
	hash := sha256.Sum256(data)
	etag := fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:]))

	if cur := c.load(key); cur != nil && cur.etag == etag {
		return cur
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cur := c.load(key); cur != nil && cur.etag == etag {
		return cur
	}

	now := time.Now
	if c.now != nil {
		now = c.now
	}
	item := &cacheItem{
		data:         data,
		etag:         etag,
		lastModified: now().UTC().Format(http.TimeFormat),
	}

	next := make(map[string]*cacheItem)
	if m := c.items.Load(); m != nil && (c.maxItems <= 0 || len(*m) < c.maxItems) {
		for k, v := range *m {
			next[k] = v
		}
	} else if m != nil && c.log != nil {
		c.log.Debug(config.MsgCacheReset, zap.Int(config.LogKeyCount, len(*m)))
	}
	next[key] = item
	c.items.Store(&next)

	if c.log != nil {
		c.log.Debug(config.MsgCacheUpdated,
			zap.String(config.LogKeyFeed, key),
			zap.Int(config.LogKeySizeBytes, len(data)),
			zap.String(config.LogKeyETag, etag),
		)
	}
	return item
}

// notModified applies If-None-Match, then If-Modified-Since.
func notModified(r *http.Request, item *cacheItem) bool {
	if match := r.Header.Get(config.HeaderIfNoneMatch); match != "" {
		return etagMatches(match, item.etag)
	}
	if since := r.Header.Get(config.HeaderIfModifiedSince); since != "" {
		clientTime, err := time.Parse(http.TimeFormat, since)
		if err != nil {
			return false
		}
		serverTime, err := time.Parse(http.TimeFormat, item.lastModified)
		if err != nil {
			return false
		}
		return !serverTime.After(clientTime)
	}
	return false
}

// etagMatches reports whether the If-None-Match list names etag. Comparison
// is weak: a W/ prefix is ignored on both sides.
func etagMatches(header, etag string) bool {
	want := strings.TrimPrefix(etag, config.ETagWeakPrefix)
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == config.ETagAny {
			return true
		}
		if strings.TrimPrefix(candidate, config.ETagWeakPrefix) == want {
			return true
		}
	}
	return false
}
