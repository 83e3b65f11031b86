package server

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"venusadapter/services/adapterd/api"
)

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req api.ApproveRequest
	if err := decode(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	caller, err := s.actingFor(r, req.Caller)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	contract, err := s.world.ResolveContract(req.Contract)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	spender := s.world.Adapter().Address()
	if req.Spender != nil {
		spender = *req.Spender
	}
	amount, ok := req.Amount.Value()
	if !ok {
		amount = new(uint256.Int).SetAllOne()
	}
	s.mu.Lock()
	err = s.world.Apply(func() error {
		return s.world.Approve(caller, contract, spender, amount)
	})
	s.mu.Unlock()
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.logger.Info("allowance set", "caller", caller.Hex(), "contract", contract.Hex(), "spender", spender.Hex(), "amount", amount.Dec())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEnterMarkets(w http.ResponseWriter, r *http.Request) {
	var req api.EnterMarketsRequest
	if err := decode(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	caller, err := s.actingFor(r, req.Caller)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	markets := make([]common.Address, 0, len(req.Markets))
	for _, ref := range req.Markets {
		addr, err := s.world.ResolveMarket(ref)
		if err != nil {
			s.writeErr(w, err)
			return
		}
		markets = append(markets, addr)
	}
	s.mu.Lock()
	err = s.world.Apply(func() error {
		return s.world.EnterMarkets(caller, markets)
	})
	s.mu.Unlock()
	if err != nil {
		s.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBorrow(w http.ResponseWriter, r *http.Request) {
	var req api.BorrowRequest
	if err := decode(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	caller, err := s.actingFor(r, req.Caller)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	market, err := s.world.ResolveMarket(req.Market)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	amount := req.Amount
	if amount == nil {
		amount = new(uint256.Int)
	}
	s.mu.Lock()
	err = s.world.Apply(func() error {
		return s.world.Borrow(caller, market, amount)
	})
	view := s.world.Account(caller)
	s.mu.Unlock()
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	var req api.MineRequest
	if err := decode(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	if req.Blocks == 0 {
		req.Blocks = 1
	}
	var height uint64
	s.mu.Lock()
	err := s.world.Apply(func() error {
		height = s.world.Mine(req.Blocks)
		return nil
	})
	s.mu.Unlock()
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.MineResponse{Block: height})
}
