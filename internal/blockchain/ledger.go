// Package blockchain submits market settlements to the on-chain contract.
package blockchain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log"
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
)

var (
	// ErrSimulationFailed means the dry-run of the settlement call was
	// rejected by the node (already settled on-chain, access control, ...).
	// Nothing was submitted; needs investigation, not blind retry.
	ErrSimulationFailed = errors.New("blockchain: settlement simulation failed")

	// ErrConfirmationTimeout means the transaction was submitted but did not
	// mine within the configured window. It may still mine later; callers
	// must check the prior hash before submitting again.
	ErrConfirmationTimeout = errors.New("blockchain: timed out waiting for confirmation")
)

const marketContractABI = `[
	{"name":"settleMarket","type":"function","stateMutability":"nonpayable",
	 "inputs":[{"name":"marketId","type":"uint256"},{"name":"settlementValue","type":"uint256"}],
	 "outputs":[]},
	{"name":"getMarket","type":"function","stateMutability":"view",
	 "inputs":[{"name":"marketId","type":"uint256"}],
	 "outputs":[{"name":"settled","type":"bool"},{"name":"settlementValue","type":"uint256"}]}
]`

// EthereumLedger talks to the settlement contract through an EVM node.
type EthereumLedger struct {
	client         *ethclient.Client
	contractAddr   common.Address
	contractABI    abi.ABI
	privateKey     *ecdsa.PrivateKey
	fromAddr       common.Address
	chainID        *big.Int
	confirmTimeout time.Duration
}

// NewEthereumLedger dials the node and loads the operator key. The returned
// ledger holds the connection for the process lifetime; call Close on shutdown.
func NewEthereumLedger(ctx context.Context, rpcURL, contractAddress, privateKeyHex string, confirmTimeout time.Duration) (*EthereumLedger, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chain RPC: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to parse operator key: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to read chain ID: %w", err)
	}

	contractABI, err := abi.JSON(strings.NewReader(marketContractABI))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	fromAddr := crypto.PubkeyToAddress(privateKey.PublicKey)
	log.Printf("[Ledger] Connected to chain %s, operator %s, contract %s", chainID, fromAddr.Hex(), contractAddress)

	return &EthereumLedger{
		client:         client,
		contractAddr:   common.HexToAddress(contractAddress),
		contractABI:    contractABI,
		privateKey:     privateKey,
		fromAddr:       fromAddr,
		chainID:        chainID,
		confirmTimeout: confirmTimeout,
	}, nil
}

// Close releases the node connection.
func (l *EthereumLedger) Close() {
	l.client.Close()
}

// feeCap returns the EIP-1559 fee cap tip + 2*baseFee, or nil when the chain
// reports no base fee and the caller must use legacy gas pricing instead.
func feeCap(baseFee, tip *big.Int) *big.Int {
	if baseFee == nil {
		return nil
	}
	return new(big.Int).Add(tip, new(big.Int).Mul(baseFee, big.NewInt(2)))
}

// SettleMarket submits settleMarket(marketId, settlementValue) and blocks
// until one confirmation. The call is simulated first; a rejected dry-run
// aborts before anything reaches the chain.
func (l *EthereumLedger) SettleMarket(ctx context.Context, marketID uint64, settlementValue *big.Int) (string, error) {
	if settlementValue.Sign() < 0 {
		return "", fmt.Errorf("settlement value %s is negative, contract field is uint256", settlementValue)
	}

	calldata, err := l.contractABI.Pack("settleMarket", new(big.Int).SetUint64(marketID), settlementValue)
	if err != nil {
		return "", fmt.Errorf("failed to encode settleMarket call: %w", err)
	}

	msg := ethereum.CallMsg{
		From: l.fromAddr,
		To:   &l.contractAddr,
		Data: calldata,
	}

	// Dry-run before spending gas or settling garbage on-chain.
	if _, err := l.client.CallContract(ctx, msg, nil); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSimulationFailed, err)
	}

	nonce, err := l.client.PendingNonceAt(ctx, l.fromAddr)
	if err != nil {
		return "", fmt.Errorf("failed to fetch nonce: %w", err)
	}

	head, err := l.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to fetch chain head: %w", err)
	}

	gasLimit, err := l.client.EstimateGas(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSimulationFailed, err)
	}

	var tx *types.Transaction
	if head.BaseFee == nil {
		// No EIP-1559 fee market on this chain; fall back to a legacy
		// gas-priced transaction.
		gasPrice, err := l.client.SuggestGasPrice(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to fetch gas price: %w", err)
		}
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gasLimit,
			To:       &l.contractAddr,
			Data:     calldata,
		})
	} else {
		gasTipCap, err := l.client.SuggestGasTipCap(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to fetch gas tip: %w", err)
		}
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   l.chainID,
			Nonce:     nonce,
			GasTipCap: gasTipCap,
			GasFeeCap: feeCap(head.BaseFee, gasTipCap),
			Gas:       gasLimit,
			To:        &l.contractAddr,
			Data:      calldata,
		})
	}

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(l.chainID), l.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := l.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to submit transaction: %w", err)
	}

	txHash := signedTx.Hash().Hex()
	log.Printf("[Ledger] Submitted settleMarket(%d, %s): %s", marketID, settlementValue, txHash)

	waitCtx, cancel := context.WithTimeout(ctx, l.confirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, l.client, signedTx)
	if err != nil {
		if waitCtx.Err() != nil {
			return txHash, fmt.Errorf("%w: tx %s", ErrConfirmationTimeout, txHash)
		}
		return txHash, fmt.Errorf("failed waiting for confirmation of %s: %w", txHash, err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return txHash, fmt.Errorf("settlement transaction %s reverted", txHash)
	}

	log.Printf("[Ledger] settleMarket(%d) mined in block %s", marketID, receipt.BlockNumber)
	return txHash, nil
}

// IsSettled reads the contract's settled flag for a market. Used to detect
// a prior settlement that mined but was never persisted off-chain.
func (l *EthereumLedger) IsSettled(ctx context.Context, marketID uint64) (bool, error) {
	calldata, err := l.contractABI.Pack("getMarket", new(big.Int).SetUint64(marketID))
	if err != nil {
		return false, fmt.Errorf("failed to encode getMarket call: %w", err)
	}

	out, err := l.client.CallContract(ctx, ethereum.CallMsg{To: &l.contractAddr, Data: calldata}, nil)
	if err != nil {
		return false, fmt.Errorf("getMarket call failed: %w", err)
	}

	values, err := l.contractABI.Unpack("getMarket", out)
	if err != nil {
		return false, fmt.Errorf("failed to decode getMarket result: %w", err)
	}

	settled, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected getMarket return shape")
	}
	return settled, nil
}
