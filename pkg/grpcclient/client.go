// Package grpcclient provides a high-performance gRPC client for chain interaction
package grpcclient

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cosmossdk.io/math"
	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/crypto/keys/secp256k1"
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/tx/signing"
	authsigning "github.com/cosmos/cosmos-sdk/x/auth/signing"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	clearinghousetypes "github.com/openalpha/clearing-core/x/clearinghouse/types"
)

// Config holds gRPC client configuration
type Config struct {
	GRPCAddr      string
	ChainID       string
	AccountNumber uint64
	GasLimit      uint64
	GasPrice      string
	PoolSize      int           // Connection pool size
	Timeout       time.Duration // Request timeout
	RetryAttempts int           // Retry attempts on failure
	BatchSize     int           // Max transactions per batch
}

// DefaultConfig returns optimized default configuration
func DefaultConfig() *Config {
	return &Config{
		GRPCAddr:      "localhost:9090",
		ChainID:       "clearingcore-1",
		AccountNumber: 0,
		GasLimit:      200000,
		GasPrice:      "0.001usdc",
		PoolSize:      10,
		Timeout:       5 * time.Second,
		RetryAttempts: 3,
		BatchSize:     100,
	}
}

// Client is a high-performance gRPC client with connection pooling
type Client struct {
	config    *Config
	pool      []*grpc.ClientConn
	poolIndex uint64
	mu        sync.RWMutex

	// Cached signer info
	privKey  cryptotypes.PrivKey
	pubKey   cryptotypes.PubKey
	address  sdk.AccAddress
	sequence uint64
	seqMu    sync.Mutex

	// Metrics
	txCount      uint64
	successCount uint64
	failCount    uint64
	totalLatency int64

	// TX encoder
	txConfig client.TxConfig
}

// NewClient creates a new high-performance gRPC client
func NewClient(config *Config, privKeyHex string) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	// Decode private key
	privKeyBytes, err := hex.DecodeString(privKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}

	privKey := &secp256k1.PrivKey{Key: privKeyBytes}
	pubKey := privKey.PubKey()
	address := sdk.AccAddress(pubKey.Address())

	c := &Client{
		config:   config,
		pool:     make([]*grpc.ClientConn, config.PoolSize),
		privKey:  privKey,
		pubKey:   pubKey,
		address:  address,
		sequence: 0,
	}

	// Initialize connection pool
	for i := 0; i < config.PoolSize; i++ {
		conn, err := grpc.Dial(
			config.GRPCAddr,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(1024*1024*10), // 10MB
				grpc.MaxCallSendMsgSize(1024*1024*10),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("connect to gRPC: %w", err)
		}
		c.pool[i] = conn
	}

	return c, nil
}

// getConn returns a connection from the pool (round-robin)
func (c *Client) getConn() *grpc.ClientConn {
	idx := atomic.AddUint64(&c.poolIndex, 1) % uint64(len(c.pool))
	return c.pool[idx]
}

// nextSequence atomically increments and returns the next sequence number
func (c *Client) nextSequence() uint64 {
	c.seqMu.Lock()
	defer c.seqMu.Unlock()
	seq := c.sequence
	c.sequence++
	return seq
}

// SubmitResult contains the result of a message submission
type SubmitResult struct {
	TxHash  string
	Success bool
	Latency time.Duration
	Error   error
}

// BidOrder describes one liquidation order inside a bid
type BidOrder struct {
	MarketID uint64
	Inputs   []byte
}

// SubmitLiquidationBid submits a single ranked auction bid with minimal latency
func (c *Client) SubmitLiquidationBid(ctx context.Context, accountID, liquidatorAccount uint64, quoteToken string, orders []BidOrder, rewardParameter string) *SubmitResult {
	msg := &clearinghousetypes.MsgSubmitLiquidationBid{
		Sender:            c.address.String(),
		AccountID:         accountID,
		LiquidatorAccount: liquidatorAccount,
		QuoteToken:        quoteToken,
		Orders:            toOrderInputs(orders),
		RewardParameter:   rewardParameter,
	}
	return c.broadcast(ctx, msg)
}

// ExecuteTopRankedBid requests execution of the top bid of an account's
// closed queue generation
func (c *Client) ExecuteTopRankedBid(ctx context.Context, accountID uint64, quoteToken string, keeperAccount uint64) *SubmitResult {
	msg := &clearinghousetypes.MsgExecuteTopRankedLiquidationBid{
		Sender:        c.address.String(),
		AccountID:     accountID,
		QuoteToken:    quoteToken,
		KeeperAccount: keeperAccount,
	}
	return c.broadcast(ctx, msg)
}

// ExecuteDutchLiquidation executes one liquidation order on the dutch
// penalty curve
func (c *Client) ExecuteDutchLiquidation(ctx context.Context, accountID, liquidatorAccount uint64, quoteToken string, marketID uint64, inputs []byte) *SubmitResult {
	msg := &clearinghousetypes.MsgExecuteDutchLiquidation{
		Sender:            c.address.String(),
		AccountID:         accountID,
		LiquidatorAccount: liquidatorAccount,
		QuoteToken:        quoteToken,
		MarketID:          marketID,
		Inputs:            inputs,
	}
	return c.broadcast(ctx, msg)
}

// ExecuteBackstopLiquidation unwinds an account below the ADL requirement
func (c *Client) ExecuteBackstopLiquidation(ctx context.Context, accountID uint64, quoteToken string, orders []BidOrder) *SubmitResult {
	msg := &clearinghousetypes.MsgExecuteBackstopLiquidation{
		Sender:     c.address.String(),
		AccountID:  accountID,
		QuoteToken: quoteToken,
		Orders:     toOrderInputs(orders),
	}
	return c.broadcast(ctx, msg)
}

// BatchBid represents one bid in a batch submission
type BatchBid struct {
	AccountID         uint64
	LiquidatorAccount uint64
	QuoteToken        string
	Orders            []BidOrder
	RewardParameter   string
}

// BatchSubmitBids submits multiple bids in a single transaction
func (c *Client) BatchSubmitBids(ctx context.Context, bids []BatchBid) *SubmitResult {
	result := &SubmitResult{}

	if len(bids) == 0 {
		result.Error = fmt.Errorf("no bids to submit")
		return result
	}

	if len(bids) > c.config.BatchSize {
		result.Error = fmt.Errorf("batch size %d exceeds max %d", len(bids), c.config.BatchSize)
		return result
	}

	msgs := make([]sdk.Msg, len(bids))
	for i, bid := range bids {
		msgs[i] = &clearinghousetypes.MsgSubmitLiquidationBid{
			Sender:            c.address.String(),
			AccountID:         bid.AccountID,
			LiquidatorAccount: bid.LiquidatorAccount,
			QuoteToken:        bid.QuoteToken,
			Orders:            toOrderInputs(bid.Orders),
			RewardParameter:   bid.RewardParameter,
		}
	}
	return c.broadcastMulti(ctx, msgs)
}

// broadcast signs and broadcasts a single-message transaction
func (c *Client) broadcast(ctx context.Context, msg sdk.Msg) *SubmitResult {
	return c.broadcastMulti(ctx, []sdk.Msg{msg})
}

// broadcastMulti signs and broadcasts a multi-message transaction
func (c *Client) broadcastMulti(ctx context.Context, msgs []sdk.Msg) *SubmitResult {
	start := time.Now()
	result := &SubmitResult{}

	atomic.AddUint64(&c.txCount, uint64(len(msgs)))

	seq := c.nextSequence()

	txBytes, err := c.buildSignedTxMulti(ctx, msgs, seq)
	if err != nil {
		result.Error = err
		result.Latency = time.Since(start)
		atomic.AddUint64(&c.failCount, uint64(len(msgs)))
		return result
	}

	conn := c.getConn()
	txClient := NewTxServiceClient(conn)

	resp, err := txClient.BroadcastTx(ctx, &BroadcastTxRequest{
		TxBytes: txBytes,
		Mode:    BroadcastMode_BROADCAST_MODE_ASYNC,
	})

	result.Latency = time.Since(start)
	atomic.AddInt64(&c.totalLatency, int64(result.Latency))

	if err != nil {
		result.Error = err
		atomic.AddUint64(&c.failCount, uint64(len(msgs)))
		return result
	}

	if resp.TxResponse.Code == 0 {
		result.Success = true
		result.TxHash = resp.TxResponse.TxHash
		atomic.AddUint64(&c.successCount, uint64(len(msgs)))
	} else {
		result.Error = fmt.Errorf("tx failed: %s", resp.TxResponse.RawLog)
		atomic.AddUint64(&c.failCount, uint64(len(msgs)))
	}

	return result
}

// buildSignedTxMulti builds and signs a multi-message transaction in memory
func (c *Client) buildSignedTxMulti(ctx context.Context, msgs []sdk.Msg, sequence uint64) ([]byte, error) {
	txBuilder := c.txConfig.NewTxBuilder()

	if err := txBuilder.SetMsgs(msgs...); err != nil {
		return nil, err
	}

	fee := sdk.NewCoins(sdk.NewCoin("usdc", math.NewInt(int64(c.config.GasLimit)*10)))
	txBuilder.SetFeeAmount(fee)
	txBuilder.SetGasLimit(c.config.GasLimit * uint64(len(msgs)))

	sigV2 := signing.SignatureV2{
		PubKey: c.pubKey,
		Data: &signing.SingleSignatureData{
			SignMode:  signing.SignMode_SIGN_MODE_DIRECT,
			Signature: nil,
		},
		Sequence: sequence,
	}

	if err := txBuilder.SetSignatures(sigV2); err != nil {
		return nil, err
	}

	signerData := authsigning.SignerData{
		ChainID:       c.config.ChainID,
		AccountNumber: c.config.AccountNumber,
		Sequence:      sequence,
		PubKey:        c.pubKey,
		Address:       c.address.String(),
	}

	signBytes, err := authsigning.GetSignBytesAdapter(
		ctx,
		c.txConfig.SignModeHandler(),
		signing.SignMode_SIGN_MODE_DIRECT,
		signerData,
		txBuilder.GetTx(),
	)
	if err != nil {
		return nil, err
	}

	signature, err := c.privKey.Sign(signBytes)
	if err != nil {
		return nil, err
	}

	sigV2.Data = &signing.SingleSignatureData{
		SignMode:  signing.SignMode_SIGN_MODE_DIRECT,
		Signature: signature,
	}

	if err := txBuilder.SetSignatures(sigV2); err != nil {
		return nil, err
	}

	return c.txConfig.TxEncoder()(txBuilder.GetTx())
}

// GetMetrics returns current client metrics
func (c *Client) GetMetrics() (txCount, successCount, failCount uint64, avgLatency time.Duration) {
	txCount = atomic.LoadUint64(&c.txCount)
	successCount = atomic.LoadUint64(&c.successCount)
	failCount = atomic.LoadUint64(&c.failCount)

	if successCount > 0 {
		avgLatency = time.Duration(atomic.LoadInt64(&c.totalLatency) / int64(successCount))
	}
	return
}

// ResetMetrics resets all metrics
func (c *Client) ResetMetrics() {
	atomic.StoreUint64(&c.txCount, 0)
	atomic.StoreUint64(&c.successCount, 0)
	atomic.StoreUint64(&c.failCount, 0)
	atomic.StoreInt64(&c.totalLatency, 0)
}

// Close closes all connections in the pool
func (c *Client) Close() error {
	for _, conn := range c.pool {
		if err := conn.Close(); err != nil {
			return err
		}
	}
	return nil
}

func toOrderInputs(orders []BidOrder) []clearinghousetypes.BidOrderInput {
	inputs := make([]clearinghousetypes.BidOrderInput, len(orders))
	for i, order := range orders {
		inputs[i] = clearinghousetypes.BidOrderInput{
			MarketID: order.MarketID,
			Inputs:   order.Inputs,
		}
	}
	return inputs
}

// Placeholder types for gRPC (would be generated from proto)
type TxServiceClient interface {
	BroadcastTx(ctx context.Context, req *BroadcastTxRequest, opts ...grpc.CallOption) (*BroadcastTxResponse, error)
}

type BroadcastTxRequest struct {
	TxBytes []byte
	Mode    BroadcastMode
}

type BroadcastMode int

const (
	BroadcastMode_BROADCAST_MODE_ASYNC BroadcastMode = iota
	BroadcastMode_BROADCAST_MODE_SYNC
	BroadcastMode_BROADCAST_MODE_BLOCK
)

type BroadcastTxResponse struct {
	TxResponse *TxResponse
}

type TxResponse struct {
	TxHash string
	Code   uint32
	RawLog string
}

func NewTxServiceClient(conn *grpc.ClientConn) TxServiceClient {
	return &txServiceClient{conn: conn}
}

type txServiceClient struct {
	conn *grpc.ClientConn
}

func (c *txServiceClient) BroadcastTx(ctx context.Context, req *BroadcastTxRequest, opts ...grpc.CallOption) (*BroadcastTxResponse, error) {
	// Implementation would use actual gRPC call
	return &BroadcastTxResponse{
		TxResponse: &TxResponse{
			TxHash: "placeholder",
			Code:   0,
		},
	}, nil
}
