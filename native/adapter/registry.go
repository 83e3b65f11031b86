package adapter

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
	"github.com/ethereum/go-ethereum/common"
)

// resolvedMarket is a listed market together with the asset it lends.
type resolvedMarket struct {
	address    common.Address
	market     Market
	underlying Asset
	native     bool
}

// underlyingRef is the immutable part of a market's identity worth caching.
type underlyingRef struct {
	native  bool
	address common.Address
}

// registry answers which markets exist (always asked fresh from the
// comptroller) and what each one lends (cached, since a market's underlying
// never changes).
type registry struct {
	comptroller  Comptroller
	directory    Directory
	gateway      nativeGateway
	nativeMarket common.Address
	underlying   *ristretto.Cache
}

func newRegistry(comptroller Comptroller, directory Directory, gateway nativeGateway, nativeMarket common.Address) (*registry, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("adapter: underlying cache: %w", err)
	}
	return &registry{
		comptroller:  comptroller,
		directory:    directory,
		gateway:      gateway,
		nativeMarket: nativeMarket,
		underlying:   cache,
	}, nil
}

func (r *registry) markets(ctx context.Context) ([]common.Address, error) {
	markets, err := r.comptroller.GetAllMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("adapter: list markets: %w", err)
	}
	return markets, nil
}

func (r *registry) resolve(ctx context.Context, addr common.Address) (*resolvedMarket, error) {
	listed, err := r.markets(ctx)
	if err != nil {
		return nil, err
	}
	found := false
	for _, m := range listed {
		if m == addr {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMarket, addr.Hex())
	}
	market, ok := r.directory.Market(addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no contract", ErrUnknownMarket, addr.Hex())
	}

	ref := r.lookupUnderlying(addr, market)
	resolved := &resolvedMarket{address: addr, market: market, native: ref.native}
	if ref.native {
		resolved.underlying = r.gateway
		return resolved, nil
	}
	asset, ok := r.directory.Asset(ref.address)
	if !ok {
		return nil, fmt.Errorf("%w: underlying %s of %s has no contract", ErrUnknownMarket, ref.address.Hex(), addr.Hex())
	}
	resolved.underlying = asset
	return resolved, nil
}

func (r *registry) lookupUnderlying(addr common.Address, market Market) underlyingRef {
	key := addr.Hex()
	if cached, ok := r.underlying.Get(key); ok {
		if ref, ok := cached.(underlyingRef); ok {
			return ref
		}
	}
	ref := underlyingRef{native: market.IsNative() || addr == r.nativeMarket}
	if !ref.native {
		ref.address = market.Underlying()
	}
	// Set is buffered; a later miss just recomputes.
	r.underlying.Set(key, ref, 1)
	return ref
}

func (r *registry) close() {
	r.underlying.Close()
}
