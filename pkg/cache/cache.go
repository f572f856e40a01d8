package cache

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Cache is a weight bounded LRU cache whose entries optionally expire after a
// fixed time to live.
type Cache interface {
	GetWeight() int
	GetBudget() int
	// Insert stores value under key, replacing any existing entry and
	// resetting its expiry.
	Insert(key string, value interface{}, weight int)
	// Retrieve returns the value for key if present and not expired.
	Retrieve(key string) (interface{}, bool)
	Delete(key string)
	Clear()
}

type cacheNode struct {
	next      *cacheNode
	prev      *cacheNode
	key       string
	value     interface{}
	weight    int
	expiresAt time.Time
}

type cache struct {
	log *logrus.Entry

	head   *cacheNode
	tail   *cacheNode
	lookup map[string]*cacheNode
	weight int
	budget int

	ttl time.Duration
	now func() time.Time

	mutex sync.Mutex
}

type Option func(*cache)

// WithTTL expires entries ttl after they were inserted.
func WithTTL(ttl time.Duration) Option {
	return func(c *cache) {
		c.ttl = ttl
	}
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(c *cache) {
		c.now = now
	}
}

// NewCache initializes and returns a new cache with a given weight budget.
func NewCache(budget int, opts ...Option) Cache {
	c := &cache{
		log:    logrus.StandardLogger().WithField("type", "cache"),
		lookup: make(map[string]*cacheNode),
		budget: budget,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *cache) GetWeight() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.weight
}

func (c *cache) GetBudget() int {
	return c.budget
}

func (c *cache) Insert(key string, value interface{}, weight int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if existing, found := c.lookup[key]; found {
		c.remove(existing)
	}

	node := &cacheNode{
		key:    key,
		value:  value,
		weight: weight,
	}
	if c.ttl > 0 {
		node.expiresAt = c.now().Add(c.ttl)
	}

	c.pushFront(node)
	c.lookup[key] = node
	c.weight += weight

	for c.weight > c.budget && c.tail != nil {
		evicted := c.tail
		c.remove(evicted)

		c.log.WithFields(logrus.Fields{
			"key":          evicted.key,
			"weight":       evicted.weight,
			"spare_weight": c.budget - c.weight,
		}).Trace("evicted cache entry")
	}
}

func (c *cache) Retrieve(key string) (interface{}, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	node, found := c.lookup[key]
	if !found {
		return nil, false
	}

	if !node.expiresAt.IsZero() && !c.now().Before(node.expiresAt) {
		c.remove(node)
		return nil, false
	}

	if node != c.head {
		c.unlink(node)
		c.pushFront(node)
	}

	return node.value, true
}

func (c *cache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, found := c.lookup[key]; found {
		c.remove(node)
	}
}

func (c *cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.head = nil
	c.tail = nil
	c.lookup = make(map[string]*cacheNode)
	c.weight = 0
}

func (c *cache) pushFront(node *cacheNode) {
	node.prev = nil
	node.next = c.head
	if c.head != nil {
		c.head.prev = node
	}
	c.head = node
	if c.tail == nil {
		c.tail = node
	}
}

func (c *cache) unlink(node *cacheNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		c.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		c.tail = node.prev
	}
	node.prev = nil
	node.next = nil
}

func (c *cache) remove(node *cacheNode) {
	c.unlink(node)
	delete(c.lookup, node.key)
	c.weight -= node.weight
}
