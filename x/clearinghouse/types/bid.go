package types

import (
	"time"

	"cosmossdk.io/math"
	"github.com/google/btree"
)

// BidOrder is one encoded liquidation order inside a bid. Inputs are
// opaque to the clearinghouse; the target market validates and executes
// them.
type BidOrder struct {
	MarketID uint64
	Inputs   []byte
}

// LiquidationBid is a ranked offer to liquidate an account that sits
// between its maintenance and liquidation margin requirements.
type LiquidationBid struct {
	ID                 string
	LiquidatorAccount  uint64
	KeeperAccount      uint64
	QuoteToken         string
	Orders             []BidOrder
	HookAddress        string
	RewardParameter    math.LegacyDec

	// Rank orders the bid inside its priority queue; higher executes
	// first. Seq breaks ties in submission order.
	Rank math.LegacyDec
	Seq  uint64

	SubmittedAt time.Time
}

// BidQueue is one generation of an account's per-quote-token liquidation
// bid priority queue. A queue is immutable once its end timestamp has
// passed; a new generation is opened lazily on the next submission.
type BidQueue struct {
	AccountID  uint64
	QuoteToken string
	ID         uint64

	StartTime time.Time
	EndTime   time.Time

	// NextSeq is the submission sequence assigned to the next bid.
	NextSeq uint64

	// Bids is the ranked bid set, persisted in execution order.
	Bids []LiquidationBid
}

// IsExpired reports whether the queue's lifetime window has passed.
func (q *BidQueue) IsExpired(now time.Time) bool {
	return !now.Before(q.EndTime)
}

// rankedBidItem adapts a bid for btree ordering: rank descending, then
// submission sequence ascending.
type rankedBidItem struct {
	bid LiquidationBid
}

func (a rankedBidItem) Less(than btree.Item) bool {
	b := than.(rankedBidItem)
	if !a.bid.Rank.Equal(b.bid.Rank) {
		return a.bid.Rank.GT(b.bid.Rank)
	}
	return a.bid.Seq < b.bid.Seq
}

// BidQueueIndex is the in-memory ranked view of a queue, rebuilt from the
// persisted bid set on demand.
type BidQueueIndex struct {
	tree *btree.BTree
}

// NewBidQueueIndex builds the ranked index from a queue's persisted bids.
func NewBidQueueIndex(queue *BidQueue) *BidQueueIndex {
	index := &BidQueueIndex{tree: btree.New(8)}
	for _, bid := range queue.Bids {
		index.tree.ReplaceOrInsert(rankedBidItem{bid: bid})
	}
	return index
}

// Insert adds a bid to the ranked index.
func (i *BidQueueIndex) Insert(bid LiquidationBid) {
	i.tree.ReplaceOrInsert(rankedBidItem{bid: bid})
}

// PopTop removes and returns the top-ranked bid.
func (i *BidQueueIndex) PopTop() (LiquidationBid, bool) {
	item := i.tree.DeleteMin()
	if item == nil {
		return LiquidationBid{}, false
	}
	return item.(rankedBidItem).bid, true
}

// Len returns the number of bids in the index.
func (i *BidQueueIndex) Len() int {
	return i.tree.Len()
}

// Ordered returns the bids in execution order.
func (i *BidQueueIndex) Ordered() []LiquidationBid {
	bids := make([]LiquidationBid, 0, i.tree.Len())
	i.tree.Ascend(func(item btree.Item) bool {
		bids = append(bids, item.(rankedBidItem).bid)
		return true
	})
	return bids
}
