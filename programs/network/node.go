// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package network

import (
	"github.com/pkg/errors"
	"github.com/vechain/metronome/runtime"
)

func handleNodeRegister(ctx *runtime.Context, ix *runtime.Instruction) (*runtime.CrankResponse, error) {
	var args nodeRegisterArgs
	if err := ix.DecodeArgs(&args); err != nil {
		return nil, err
	}
	authority, err := ix.Account(0)
	if err != nil {
		return nil, err
	}
	if err := ctx.RequireSigner(authority); err != nil {
		return nil, err
	}

	var registry Registry
	if err := ctx.Load(RegistryAddress, RegistryAccount, &registry); err != nil {
		return nil, err
	}
	node := &Node{ID: registry.NodeCount, Authority: authority, Worker: args.Worker}
	if err := ctx.Create(NodeAddress(node.ID), authority, NodeAccount, node); err != nil {
		return nil, errors.WithMessagef(err, "node %d", node.ID)
	}
	registry.NodeCount++
	return runtime.Done(), ctx.Store(RegistryAddress, RegistryAccount, &registry)
}

// loadOwnedNode loads the node at account #1 and checks account #0 is its signing authority.
func loadOwnedNode(ctx *runtime.Context, ix *runtime.Instruction) (*Node, error) {
	authority, err := ix.Account(0)
	if err != nil {
		return nil, err
	}
	if err := ctx.RequireSigner(authority); err != nil {
		return nil, err
	}
	addr, err := ix.Account(1)
	if err != nil {
		return nil, err
	}
	var node Node
	if err := ctx.Load(addr, NodeAccount, &node); err != nil {
		return nil, err
	}
	if NodeAddress(node.ID) != addr {
		return nil, ErrInvalidNode
	}
	if node.Authority != authority {
		return nil, ErrUnauthorized
	}
	return &node, nil
}

func handleNodeStake(ctx *runtime.Context, ix *runtime.Instruction) (*runtime.CrankResponse, error) {
	var args nodeStakeArgs
	if err := ix.DecodeArgs(&args); err != nil {
		return nil, err
	}
	node, err := loadOwnedNode(ctx, ix)
	if err != nil {
		return nil, err
	}
	if node.Stake, err = addStake(node.Stake, args.Amount); err != nil {
		return nil, err
	}
	addr := NodeAddress(node.ID)
	if err := ctx.Transfer(node.Authority, addr, args.Amount); err != nil {
		return nil, err
	}
	return runtime.Done(), ctx.Store(addr, NodeAccount, node)
}

func handleNodeUpdate(ctx *runtime.Context, ix *runtime.Instruction) (*runtime.CrankResponse, error) {
	var args nodeUpdateArgs
	if err := ix.DecodeArgs(&args); err != nil {
		return nil, err
	}
	node, err := loadOwnedNode(ctx, ix)
	if err != nil {
		return nil, err
	}
	if args.Worker.IsZero() {
		return nil, ErrInvalidArguments
	}
	node.Worker = args.Worker
	return runtime.Done(), ctx.Store(NodeAddress(node.ID), NodeAccount, node)
}
