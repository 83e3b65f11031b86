package venusrpc

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	t       *testing.T
	outputs map[common.Address]map[string][]byte
	blocks  []*big.Int
}

func newFakeCaller(t *testing.T) *fakeCaller {
	require.NoError(t, loadABIs())
	return &fakeCaller{t: t, outputs: make(map[common.Address]map[string][]byte)}
}

func (f *fakeCaller) set(contract abi.ABI, to common.Address, method string, values ...interface{}) {
	packed, err := contract.Methods[method].Outputs.Pack(values...)
	require.NoError(f.t, err)
	if f.outputs[to] == nil {
		f.outputs[to] = make(map[string][]byte)
	}
	f.outputs[to][string(contract.Methods[method].ID)] = packed
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	f.blocks = append(f.blocks, block)
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, errors.New("malformed call")
	}
	byMethod, ok := f.outputs[*msg.To]
	if !ok {
		return nil, nil
	}
	out, ok := byMethod[string(msg.Data[:4])]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return out, nil
}

var (
	comptroller = common.HexToAddress("0xfD36E2c2a6789Db23113685031d7F16329158384")
	vUSDT       = common.HexToAddress("0xfD5840Cd36d94D7229439859C0112a4185BC0255")
	vBNB        = common.HexToAddress("0xA07c5b74C9B40447a954e1466938b865b6BBea36")
	usdt        = common.HexToAddress("0x55d398326f99059fF775485246999027B3197955")
	holder      = common.HexToAddress("0x00000000000000000000000000000000000000a1")
)

func seedMarkets(f *fakeCaller) {
	f.set(comptrollerABI, comptroller, "getAllMarkets", []common.Address{vUSDT, vBNB})
	f.set(vTokenABI, vUSDT, "symbol", "vUSDT")
	f.set(vTokenABI, vUSDT, "decimals", uint8(8))
	f.set(vTokenABI, vUSDT, "underlying", usdt)
	f.set(vTokenABI, vUSDT, "exchangeRateStored", big.NewInt(21_000_000))
	f.set(vTokenABI, vUSDT, "totalBorrows", big.NewInt(500))
	f.set(vTokenABI, vUSDT, "getCash", big.NewInt(1_000))
	f.set(vTokenABI, vBNB, "symbol", "vBNB")
	f.set(vTokenABI, vBNB, "decimals", uint8(8))
	f.set(vTokenABI, vBNB, "exchangeRateStored", big.NewInt(22_000_000))
	f.set(vTokenABI, vBNB, "totalBorrows", big.NewInt(7))
	f.set(vTokenABI, vBNB, "getCash", big.NewInt(9))
}

func TestReaderListsMarkets(t *testing.T) {
	f := newFakeCaller(t)
	seedMarkets(f)
	r, err := NewReader(f, comptroller, vBNB)
	require.NoError(t, err)
	require.Equal(t, comptroller, r.Address())

	markets, err := r.GetAllMarkets(context.Background())
	require.NoError(t, err)
	require.Equal(t, []common.Address{vUSDT, vBNB}, markets)

	infos, err := r.Markets(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 2)
	require.Equal(t, "vUSDT", infos[0].Symbol)
	require.Equal(t, uint8(8), infos[0].Decimals)
	require.Equal(t, usdt, infos[0].Underlying)
	require.False(t, infos[0].Native)
	require.Equal(t, 0, infos[0].ExchangeRate.Cmp(big.NewInt(21_000_000)))
	require.True(t, infos[1].Native)
	require.Equal(t, common.Address{}, infos[1].Underlying)
	require.Equal(t, 0, infos[1].Cash.Cmp(big.NewInt(9)))
}

func TestReaderSnapshotAndLiquidity(t *testing.T) {
	f := newFakeCaller(t)
	f.set(vTokenABI, vUSDT, "getAccountSnapshot", big.NewInt(0), big.NewInt(10), big.NewInt(20), big.NewInt(30))
	f.set(comptrollerABI, comptroller, "getAccountLiquidity", big.NewInt(0), big.NewInt(1234), big.NewInt(0))
	f.set(comptrollerABI, comptroller, "getAssetsIn", []common.Address{vUSDT})
	r, err := NewReader(f, comptroller, vBNB)
	require.NoError(t, err)

	snap, err := r.Snapshot(context.Background(), vUSDT, holder)
	require.NoError(t, err)
	require.Equal(t, uint64(0), snap.Error)
	require.Equal(t, int64(10), snap.VTokens.Int64())
	require.Equal(t, int64(20), snap.Borrow.Int64())
	require.Equal(t, int64(30), snap.ExchangeRate.Int64())

	liquidity, shortfall, err := r.Liquidity(context.Background(), holder)
	require.NoError(t, err)
	require.Equal(t, int64(1234), liquidity.Int64())
	require.Zero(t, shortfall.Sign())

	in, err := r.AssetsIn(context.Background(), holder)
	require.NoError(t, err)
	require.Equal(t, []common.Address{vUSDT}, in)
}

func TestReaderLiquidityErrorCode(t *testing.T) {
	f := newFakeCaller(t)
	f.set(comptrollerABI, comptroller, "getAccountLiquidity", big.NewInt(3), big.NewInt(0), big.NewInt(0))
	r, err := NewReader(f, comptroller, vBNB)
	require.NoError(t, err)
	_, _, err = r.Liquidity(context.Background(), holder)
	require.Error(t, err)
}

func TestReaderMissingContract(t *testing.T) {
	f := newFakeCaller(t)
	r, err := NewReader(f, comptroller, vBNB)
	require.NoError(t, err)
	_, err = r.GetAllMarkets(context.Background())
	require.ErrorIs(t, err, ErrNotContract)
}

func TestReaderRevertedCall(t *testing.T) {
	f := newFakeCaller(t)
	f.set(vTokenABI, vUSDT, "symbol", "vUSDT")
	r, err := NewReader(f, comptroller, vBNB)
	require.NoError(t, err)
	_, err = r.Market(context.Background(), vUSDT)
	require.ErrorContains(t, err, "execution reverted")
}

func TestReaderAtBlock(t *testing.T) {
	f := newFakeCaller(t)
	seedMarkets(f)
	r, err := NewReader(f, comptroller, vBNB)
	require.NoError(t, err)

	pinned := r.AtBlock(big.NewInt(42))
	_, err = pinned.GetAllMarkets(context.Background())
	require.NoError(t, err)
	_, err = r.GetAllMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, f.blocks, 2)
	require.Equal(t, int64(42), f.blocks[0].Int64())
	require.Nil(t, f.blocks[1])
}

func TestNewReaderValidates(t *testing.T) {
	_, err := NewReader(nil, comptroller, vBNB)
	require.Error(t, err)
	_, err = NewReader(newFakeCaller(t), common.Address{}, vBNB)
	require.Error(t, err)
}
