package main

import (
	"container/heap"
	"time"
)

// EffectKind is a timed powerup effect that must be reverted later
type EffectKind string

const (
	EffectSlow       EffectKind = "slow"
	EffectBigPaddle  EffectKind = "big_paddle"
	EffectSmallBall  EffectKind = "small_ball"
	EffectMultiplier EffectKind = "multiplier"
	EffectReverse    EffectKind = "reverse"
)

// pendingEffect is one scheduled revert. Target is a player id, or empty
// for effects on the whole arena.
type pendingEffect struct {
	Kind      EffectKind
	Target    string
	ExpiresAt time.Time
	Gen       uint64
	index     int
}

func (e *pendingEffect) key() string {
	return string(e.Kind) + "/" + e.Target
}

type effectHeap []*pendingEffect

func (h effectHeap) Len() int           { return len(h) }
func (h effectHeap) Less(i, j int) bool { return h[i].ExpiresAt.Before(h[j].ExpiresAt) }
func (h effectHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *effectHeap) Push(x interface{}) {
	e := x.(*pendingEffect)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *effectHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// EffectQueue orders pending reverts by expiry. One entry exists per
// (kind, target); scheduling an existing pair pushes its expiry out.
type EffectQueue struct {
	h     effectHeap
	byKey map[string]*pendingEffect
}

func NewEffectQueue() *EffectQueue {
	return &EffectQueue{byKey: make(map[string]*pendingEffect)}
}

// Schedule registers a revert at expiresAt. It returns true when an
// existing entry was refreshed instead of added.
func (q *EffectQueue) Schedule(kind EffectKind, target string, expiresAt time.Time, gen uint64) bool {
	e := &pendingEffect{Kind: kind, Target: target, ExpiresAt: expiresAt, Gen: gen}
	if old, ok := q.byKey[e.key()]; ok {
		old.ExpiresAt = expiresAt
		old.Gen = gen
		heap.Fix(&q.h, old.index)
		return true
	}
	heap.Push(&q.h, e)
	q.byKey[e.key()] = e
	return false
}

// PopDue removes and returns every entry that has expired at now
func (q *EffectQueue) PopDue(now time.Time) []*pendingEffect {
	var due []*pendingEffect
	for q.h.Len() > 0 && !q.h[0].ExpiresAt.After(now) {
		e := heap.Pop(&q.h).(*pendingEffect)
		delete(q.byKey, e.key())
		due = append(due, e)
	}
	return due
}

// Shift moves every expiry forward by d (used when resuming from pause)
func (q *EffectQueue) Shift(d time.Duration) {
	for _, e := range q.h {
		e.ExpiresAt = e.ExpiresAt.Add(d)
	}
}

// Clear drops every pending revert
func (q *EffectQueue) Clear() {
	q.h = nil
	q.byKey = make(map[string]*pendingEffect)
}

func (q *EffectQueue) Len() int {
	return q.h.Len()
}
