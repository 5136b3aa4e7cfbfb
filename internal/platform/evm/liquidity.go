package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

// positionManagerABI covers the NonfungiblePositionManager calls the
// recenter sequence uses.
const positionManagerABI = `[
	{"name":"decreaseLiquidity","type":"function","inputs":[{"name":"params","type":"tuple","components":[{"name":"tokenId","type":"uint256"},{"name":"liquidity","type":"uint128"},{"name":"amount0Min","type":"uint256"},{"name":"amount1Min","type":"uint256"},{"name":"deadline","type":"uint256"}]}],"outputs":[{"name":"amount0","type":"uint256"},{"name":"amount1","type":"uint256"}]},
	{"name":"collect","type":"function","inputs":[{"name":"params","type":"tuple","components":[{"name":"tokenId","type":"uint256"},{"name":"recipient","type":"address"},{"name":"amount0Max","type":"uint128"},{"name":"amount1Max","type":"uint128"}]}],"outputs":[{"name":"amount0","type":"uint256"},{"name":"amount1","type":"uint256"}]},
	{"name":"mint","type":"function","inputs":[{"name":"params","type":"tuple","components":[{"name":"token0","type":"address"},{"name":"token1","type":"address"},{"name":"fee","type":"uint24"},{"name":"tickLower","type":"int24"},{"name":"tickUpper","type":"int24"},{"name":"amount0Desired","type":"uint256"},{"name":"amount1Desired","type":"uint256"},{"name":"amount0Min","type":"uint256"},{"name":"amount1Min","type":"uint256"},{"name":"recipient","type":"address"},{"name":"deadline","type":"uint256"}]}],"outputs":[{"name":"tokenId","type":"uint256"},{"name":"liquidity","type":"uint128"},{"name":"amount0","type":"uint256"},{"name":"amount1","type":"uint256"}]}
]`

// swapRouterABI covers the single-hop exact-input swap.
const swapRouterABI = `[
	{"name":"exactInputSingle","type":"function","inputs":[{"name":"params","type":"tuple","components":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"fee","type":"uint24"},{"name":"recipient","type":"address"},{"name":"deadline","type":"uint256"},{"name":"amountIn","type":"uint256"},{"name":"amountOutMinimum","type":"uint256"},{"name":"sqrtPriceLimitX96","type":"uint160"}]}],"outputs":[{"name":"amountOut","type":"uint256"}]}
]`

// txDeadline bounds how long a submitted transaction stays valid.
const txDeadline = 10 * time.Minute

// maxUint128 is the collect-all sentinel for fee collection.
var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// PoolBinding pins the executor to the single managed pool: contract
// addresses, fee tier, token decimals, and the LP NFT being managed.
type PoolBinding struct {
	PositionManager string
	SwapRouter      string
	Token0          string
	Token0Symbol    string
	Token0Decimals  int
	Token1          string
	Token1Symbol    string
	Token1Decimals  int
	FeeTier         int
	TokenID         uint64
}

// LiquidityExecutor builds, signs, and submits the on-chain legs of a
// recenter against the bound pool. Every call waits for the receipt; a
// reverted transaction fails the step.
type LiquidityExecutor struct {
	client  *ethclient.Client
	key     *ecdsa.PrivateKey
	chainID *big.Int
	owner   common.Address
	binding PoolBinding
	pmABI   abi.ABI
	srABI   abi.ABI
	logger  *slog.Logger
}

// NewLiquidityExecutor creates a LiquidityExecutor for one pool binding.
func NewLiquidityExecutor(ctx context.Context, client *ethclient.Client, key *ecdsa.PrivateKey, binding PoolBinding, logger *slog.Logger) (*LiquidityExecutor, error) {
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("evm: chain id: %w", err)
	}

	pmABI, err := abi.JSON(strings.NewReader(positionManagerABI))
	if err != nil {
		return nil, fmt.Errorf("evm: parse position manager abi: %w", err)
	}
	srABI, err := abi.JSON(strings.NewReader(swapRouterABI))
	if err != nil {
		return nil, fmt.Errorf("evm: parse swap router abi: %w", err)
	}

	return &LiquidityExecutor{
		client:  client,
		key:     key,
		chainID: chainID,
		owner:   crypto.PubkeyToAddress(key.PublicKey),
		binding: binding,
		pmABI:   pmABI,
		srABI:   srABI,
		logger:  logger.With(slog.String("component", "liquidity_executor")),
	}, nil
}

// RemoveLiquidity burns the plan's liquidity from the managed position and
// collects the freed tokens plus accrued fees.
func (e *LiquidityExecutor) RemoveLiquidity(ctx context.Context, plan domain.RecenterPlan) (string, error) {
	deadline := big.NewInt(time.Now().Add(txDeadline).Unix())

	liquidity, ok := new(big.Int).SetString(fmt.Sprintf("%.0f", plan.LiquidityToRemove), 10)
	if !ok || liquidity.Sign() <= 0 {
		return "", fmt.Errorf("evm: invalid liquidity to remove %f", plan.LiquidityToRemove)
	}

	decreaseParams := struct {
		TokenId    *big.Int
		Liquidity  *big.Int
		Amount0Min *big.Int
		Amount1Min *big.Int
		Deadline   *big.Int
	}{
		TokenId:    new(big.Int).SetUint64(e.binding.TokenID),
		Liquidity:  liquidity,
		Amount0Min: big.NewInt(0),
		Amount1Min: big.NewInt(0),
		Deadline:   deadline,
	}

	calldata, err := e.pmABI.Pack("decreaseLiquidity", decreaseParams)
	if err != nil {
		return "", fmt.Errorf("evm: pack decreaseLiquidity: %w", err)
	}

	txHash, err := e.sendAndWait(ctx, e.binding.PositionManager, calldata)
	if err != nil {
		return "", fmt.Errorf("evm: decrease liquidity: %w", err)
	}

	collectParams := struct {
		TokenId    *big.Int
		Recipient  common.Address
		Amount0Max *big.Int
		Amount1Max *big.Int
	}{
		TokenId:    new(big.Int).SetUint64(e.binding.TokenID),
		Recipient:  e.owner,
		Amount0Max: maxUint128,
		Amount1Max: maxUint128,
	}

	calldata, err = e.pmABI.Pack("collect", collectParams)
	if err != nil {
		return "", fmt.Errorf("evm: pack collect: %w", err)
	}

	if _, err := e.sendAndWait(ctx, e.binding.PositionManager, calldata); err != nil {
		return "", fmt.Errorf("evm: collect: %w", err)
	}

	return txHash, nil
}

// Swap runs the plan's rebalancing swap through the router.
func (e *LiquidityExecutor) Swap(ctx context.Context, plan domain.RecenterPlan) (string, error) {
	tokenIn, decIn, err := e.resolveToken(plan.SwapTokenIn)
	if err != nil {
		return "", err
	}
	tokenOut, decOut, err := e.resolveToken(plan.SwapTokenOut)
	if err != nil {
		return "", err
	}

	amountIn := toWei(plan.SwapAmountIn, decIn)
	minOut := toWei(plan.SwapAmountOut, decOut)
	if plan.SwapSlippageBps > 0 {
		slip := new(big.Int).Div(new(big.Int).Mul(minOut, big.NewInt(int64(plan.SwapSlippageBps))), big.NewInt(10_000))
		minOut = new(big.Int).Sub(minOut, slip)
	}

	params := struct {
		TokenIn           common.Address
		TokenOut          common.Address
		Fee               *big.Int
		Recipient         common.Address
		Deadline          *big.Int
		AmountIn          *big.Int
		AmountOutMinimum  *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		Fee:               big.NewInt(int64(e.binding.FeeTier)),
		Recipient:         e.owner,
		Deadline:          big.NewInt(time.Now().Add(txDeadline).Unix()),
		AmountIn:          amountIn,
		AmountOutMinimum:  minOut,
		SqrtPriceLimitX96: big.NewInt(0),
	}

	calldata, err := e.srABI.Pack("exactInputSingle", params)
	if err != nil {
		return "", fmt.Errorf("evm: pack exactInputSingle: %w", err)
	}

	txHash, err := e.sendAndWait(ctx, e.binding.SwapRouter, calldata)
	if err != nil {
		return "", fmt.Errorf("evm: swap: %w", err)
	}
	return txHash, nil
}

// AddLiquidity mints the new position at the plan's tick range.
func (e *LiquidityExecutor) AddLiquidity(ctx context.Context, plan domain.RecenterPlan) (string, error) {
	params := struct {
		Token0         common.Address
		Token1         common.Address
		Fee            *big.Int
		TickLower      *big.Int
		TickUpper      *big.Int
		Amount0Desired *big.Int
		Amount1Desired *big.Int
		Amount0Min     *big.Int
		Amount1Min     *big.Int
		Recipient      common.Address
		Deadline       *big.Int
	}{
		Token0:         common.HexToAddress(e.binding.Token0),
		Token1:         common.HexToAddress(e.binding.Token1),
		Fee:            big.NewInt(int64(e.binding.FeeTier)),
		TickLower:      big.NewInt(int64(plan.NewTickLower)),
		TickUpper:      big.NewInt(int64(plan.NewTickUpper)),
		Amount0Desired: toWei(plan.NewToken0Amount, e.binding.Token0Decimals),
		Amount1Desired: toWei(plan.NewToken1Amount, e.binding.Token1Decimals),
		Amount0Min:     big.NewInt(0),
		Amount1Min:     big.NewInt(0),
		Recipient:      e.owner,
		Deadline:       big.NewInt(time.Now().Add(txDeadline).Unix()),
	}

	calldata, err := e.pmABI.Pack("mint", params)
	if err != nil {
		return "", fmt.Errorf("evm: pack mint: %w", err)
	}

	txHash, err := e.sendAndWait(ctx, e.binding.PositionManager, calldata)
	if err != nil {
		return "", fmt.Errorf("evm: mint: %w", err)
	}
	return txHash, nil
}

// resolveToken maps a pool token symbol to its address and decimals.
func (e *LiquidityExecutor) resolveToken(symbol string) (common.Address, int, error) {
	switch {
	case strings.EqualFold(symbol, e.binding.Token0Symbol):
		return common.HexToAddress(e.binding.Token0), e.binding.Token0Decimals, nil
	case strings.EqualFold(symbol, e.binding.Token1Symbol):
		return common.HexToAddress(e.binding.Token1), e.binding.Token1Decimals, nil
	}
	return common.Address{}, 0, fmt.Errorf("evm: token %s is not in the bound pool", symbol)
}

// sendAndWait signs one call, submits it, and blocks until the receipt.
func (e *LiquidityExecutor) sendAndWait(ctx context.Context, to string, calldata []byte) (string, error) {
	toAddr := common.HexToAddress(to)

	nonce, err := e.client.PendingNonceAt(ctx, e.owner)
	if err != nil {
		return "", fmt.Errorf("pending nonce: %w", err)
	}

	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("suggest gas price: %w", err)
	}

	gasLimit, err := e.client.EstimateGas(ctx, ethereum.CallMsg{
		From: e.owner,
		To:   &toAddr,
		Data: calldata,
	})
	if err != nil {
		return "", fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &toAddr,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     calldata,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(e.chainID), e.key)
	if err != nil {
		return "", fmt.Errorf("sign tx: %w", err)
	}

	if err := e.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send tx: %w", err)
	}

	e.logger.InfoContext(ctx, "transaction submitted",
		slog.String("tx", signed.Hash().Hex()),
		slog.String("to", toAddr.Hex()),
	)

	receipt, err := bind.WaitMined(ctx, e.client, signed)
	if err != nil {
		return "", fmt.Errorf("wait mined %s: %w", signed.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("tx %s reverted", signed.Hash().Hex())
	}

	return signed.Hash().Hex(), nil
}

// toWei converts a human amount to the token's smallest unit.
func toWei(amount float64, decimals int) *big.Int {
	f := new(big.Float).Mul(big.NewFloat(amount), big.NewFloat(math.Pow10(decimals)))
	i, _ := f.Int(nil)
	if i.Sign() < 0 {
		return big.NewInt(0)
	}
	return i
}
