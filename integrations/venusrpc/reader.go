// Package venusrpc reads Venus protocol state from a live BNB Chain node.
package venusrpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ErrNotContract is returned when a call lands on an address without code or
// the call reverts.
var ErrNotContract = errors.New("venusrpc: call returned no data")

// ContractCaller is the subset of the Ethereum RPC used by the reader.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Dial initialises an RPC client for the provided endpoint.
func Dial(endpoint string) (*ethclient.Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("venusrpc: endpoint required")
	}
	return ethclient.Dial(trimmed)
}

// MarketInfo summarises one listed market.
type MarketInfo struct {
	Address      common.Address
	Symbol       string
	Decimals     uint8
	Native       bool
	Underlying   common.Address
	ExchangeRate *big.Int
	TotalBorrows *big.Int
	Cash         *big.Int
}

// AccountSnapshot is a market's view of one account.
type AccountSnapshot struct {
	Error        uint64
	VTokens      *big.Int
	Borrow       *big.Int
	ExchangeRate *big.Int
}

// Reader answers read-only questions about a Comptroller and its markets.
// It satisfies the adapter's Comptroller interface, so the adapter can
// enumerate reserves straight from chain.
type Reader struct {
	client       ContractCaller
	comptroller  common.Address
	nativeMarket common.Address
	block        *big.Int
}

// NewReader binds a reader to the given Comptroller. nativeMarket names the
// market that lends the chain's native coin and therefore has no underlying().
func NewReader(client ContractCaller, comptroller, nativeMarket common.Address) (*Reader, error) {
	if client == nil {
		return nil, fmt.Errorf("venusrpc: client required")
	}
	if comptroller == (common.Address{}) {
		return nil, fmt.Errorf("venusrpc: comptroller address required")
	}
	if err := loadABIs(); err != nil {
		return nil, fmt.Errorf("venusrpc: parse abi: %w", err)
	}
	return &Reader{client: client, comptroller: comptroller, nativeMarket: nativeMarket}, nil
}

// AtBlock pins subsequent reads to a block height. Nil reads the latest block.
func (r *Reader) AtBlock(number *big.Int) *Reader {
	clone := *r
	if number != nil {
		clone.block = new(big.Int).Set(number)
	} else {
		clone.block = nil
	}
	return &clone
}

func (r *Reader) Address() common.Address { return r.comptroller }

// GetAllMarkets lists every market the Comptroller has listed.
func (r *Reader) GetAllMarkets(ctx context.Context) ([]common.Address, error) {
	var markets []common.Address
	if err := r.call(ctx, comptrollerABI, r.comptroller, "getAllMarkets", &markets); err != nil {
		return nil, err
	}
	return markets, nil
}

// AssetsIn lists the markets an account has entered.
func (r *Reader) AssetsIn(ctx context.Context, account common.Address) ([]common.Address, error) {
	var markets []common.Address
	if err := r.call(ctx, comptrollerABI, r.comptroller, "getAssetsIn", &markets, account); err != nil {
		return nil, err
	}
	return markets, nil
}

// Liquidity returns the account's excess liquidity and shortfall in USD
// mantissa.
func (r *Reader) Liquidity(ctx context.Context, account common.Address) (*big.Int, *big.Int, error) {
	out, err := r.unpack(ctx, comptrollerABI, r.comptroller, "getAccountLiquidity", account)
	if err != nil {
		return nil, nil, err
	}
	if code := out[0].(*big.Int); code.Sign() != 0 {
		return nil, nil, fmt.Errorf("venusrpc: getAccountLiquidity error code %s", code)
	}
	return out[1].(*big.Int), out[2].(*big.Int), nil
}

// Market reads a market's descriptive fields.
func (r *Reader) Market(ctx context.Context, market common.Address) (*MarketInfo, error) {
	info := &MarketInfo{Address: market, Native: market == r.nativeMarket}
	if err := r.call(ctx, vTokenABI, market, "symbol", &info.Symbol); err != nil {
		return nil, err
	}
	if err := r.call(ctx, vTokenABI, market, "decimals", &info.Decimals); err != nil {
		return nil, err
	}
	if !info.Native {
		if err := r.call(ctx, vTokenABI, market, "underlying", &info.Underlying); err != nil {
			return nil, err
		}
	}
	if err := r.call(ctx, vTokenABI, market, "exchangeRateStored", &info.ExchangeRate); err != nil {
		return nil, err
	}
	if err := r.call(ctx, vTokenABI, market, "totalBorrows", &info.TotalBorrows); err != nil {
		return nil, err
	}
	if err := r.call(ctx, vTokenABI, market, "getCash", &info.Cash); err != nil {
		return nil, err
	}
	return info, nil
}

// Markets reads every listed market.
func (r *Reader) Markets(ctx context.Context) ([]*MarketInfo, error) {
	addrs, err := r.GetAllMarkets(ctx)
	if err != nil {
		return nil, err
	}
	infos := make([]*MarketInfo, 0, len(addrs))
	for _, addr := range addrs {
		info, err := r.Market(ctx, addr)
		if err != nil {
			return nil, fmt.Errorf("market %s: %w", addr.Hex(), err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Snapshot reads getAccountSnapshot for an account on one market.
func (r *Reader) Snapshot(ctx context.Context, market, account common.Address) (*AccountSnapshot, error) {
	out, err := r.unpack(ctx, vTokenABI, market, "getAccountSnapshot", account)
	if err != nil {
		return nil, err
	}
	return &AccountSnapshot{
		Error:        out[0].(*big.Int).Uint64(),
		VTokens:      out[1].(*big.Int),
		Borrow:       out[2].(*big.Int),
		ExchangeRate: out[3].(*big.Int),
	}, nil
}

func (r *Reader) call(ctx context.Context, contract abi.ABI, to common.Address, method string, out interface{}, args ...interface{}) error {
	output, err := r.raw(ctx, contract, to, method, args...)
	if err != nil {
		return err
	}
	if err := contract.UnpackIntoInterface(out, method, output); err != nil {
		return fmt.Errorf("venusrpc: unpack %s: %w", method, err)
	}
	return nil
}

func (r *Reader) unpack(ctx context.Context, contract abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	output, err := r.raw(ctx, contract, to, method, args...)
	if err != nil {
		return nil, err
	}
	values, err := contract.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("venusrpc: unpack %s: %w", method, err)
	}
	return values, nil
}

func (r *Reader) raw(ctx context.Context, contract abi.ABI, to common.Address, method string, args ...interface{}) ([]byte, error) {
	input, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("venusrpc: pack %s: %w", method, err)
	}
	output, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, r.block)
	if err != nil {
		return nil, fmt.Errorf("venusrpc: call %s on %s: %w", method, to.Hex(), err)
	}
	if len(output) == 0 {
		return nil, fmt.Errorf("%w: %s on %s", ErrNotContract, method, to.Hex())
	}
	return output, nil
}
